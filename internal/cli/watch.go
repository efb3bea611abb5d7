package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the realtime session open and record message arrivals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx.session.Start(cmd.Context())
			defer func() { _ = appCtx.session.Close() }()

			fmt.Println("Watching for messages, press Ctrl-C to stop")
			<-cmd.Context().Done()
			return nil
		},
	}
}
