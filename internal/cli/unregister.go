package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func unregisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unregister",
		Short: "Stop message delivery and mark the account unregistered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx.mgr.SetUnregisteredListener(func() {
				fmt.Println("Account is now unregistered")
			})
			return appCtx.mgr.Unregister(cmd.Context())
		},
	}
}

func deleteAccountCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete the account from the service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("deletion is irreversible, re-run with --yes to confirm")
			}
			appCtx.mgr.SetUnregisteredListener(func() {
				fmt.Println("Account deleted")
			})
			return appCtx.mgr.DeleteAccount(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}
