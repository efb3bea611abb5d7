package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func setDeviceNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-device-name [name]",
		Short: "Set this device's encrypted display name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.mgr.SetDeviceName(cmd.Context(), args[0]); err != nil {
				return err
			}
			if err := appCtx.mgr.UpdateAccountAttributes(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Device name updated")
			return nil
		},
	}
}
