package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlevchenko/signet/internal/devname"
	"github.com/mlevchenko/signet/internal/provision"
)

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Manage linked devices",
	}
	cmd.AddCommand(devicesListCmd(), devicesAddCmd(), devicesRemoveCmd())
	return cmd
}

func devicesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List linked devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := appCtx.svc.GetDevices(cmd.Context())
			if err != nil {
				return err
			}
			for _, d := range devices {
				name := "-"
				if len(d.Name) > 0 {
					if n, err := devname.Decrypt(d.Name, appCtx.record.IdentityKeyPair); err == nil {
						name = n
					}
				}
				fmt.Printf("%d\t%s\tcreated %s\tlast seen %s\n",
					d.ID, name,
					time.UnixMilli(d.Created).Format(time.DateOnly),
					time.UnixMilli(d.LastSeen).Format(time.DateOnly))
			}
			return nil
		},
	}
}

func devicesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [link-uri]",
		Short: "Link a new device from its sgnl:// linking URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			link, err := provision.ParseLink(args[0])
			if err != nil {
				return err
			}
			if err := appCtx.mgr.AddDevice(cmd.Context(), link); err != nil {
				return err
			}
			fmt.Println("Device linked")
			return nil
		},
	}
}

func devicesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [device-id]",
		Short: "Unlink a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid device id %q", args[0])
			}
			if err := appCtx.mgr.RemoveLinkedDevice(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Println("Device removed")
			return nil
		},
	}
}
