package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the periodic account state check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.mgr.CheckAccountState(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Account state OK")
			return nil
		},
	}
}
