package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func pinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Manage the registration lock PIN",
	}
	cmd.AddCommand(pinSetCmd(), pinRemoveCmd())
	return cmd
}

func pinSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set",
		Short: "Set or change the registration lock PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := promptPin("New PIN")
			if err != nil {
				return err
			}
			confirm, err := promptPin("Repeat PIN")
			if err != nil {
				return err
			}
			if pin != confirm {
				return fmt.Errorf("pins do not match")
			}
			if err := appCtx.mgr.SetRegistrationPin(cmd.Context(), pin); err != nil {
				return err
			}
			fmt.Println("Registration lock PIN set")
			return nil
		},
	}
}

func pinRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the registration lock PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appCtx.mgr.RemoveRegistrationPin(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Registration lock PIN removed")
			return nil
		},
	}
}
