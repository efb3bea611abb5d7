package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlevchenko/signet/internal/remote"
)

func numberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "number",
		Short: "Change the account's phone number",
	}
	cmd.AddCommand(numberStartCmd(), numberFinishCmd())
	return cmd
}

func numberStartCmd() *cobra.Command {
	var captcha string
	var voice bool

	cmd := &cobra.Command{
		Use:   "start [new-number]",
		Short: "Request a verification code for the new number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := appCtx.mgr.StartChangeNumber(cmd.Context(), args[0], captcha, voice)
			if errors.Is(err, remote.ErrCaptchaRequired) {
				return fmt.Errorf("the service demands a captcha, solve one and retry with --captcha: %w", err)
			}
			if err != nil {
				return err
			}
			fmt.Println("Verification code requested")
			return nil
		},
	}

	cmd.Flags().StringVar(&captcha, "captcha", "", "solved captcha token")
	cmd.Flags().BoolVar(&voice, "voice", false, "deliver the code by voice call instead of SMS")
	return cmd
}

func numberFinishCmd() *cobra.Command {
	var pin string

	cmd := &cobra.Command{
		Use:   "finish [new-number] [code]",
		Short: "Submit the verification code and switch to the new number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newNumber, code := args[0], args[1]

			if pin == "" && appCtx.record.HasRegistrationLock() {
				var err error
				if pin, err = promptPin("Registration lock PIN"); err != nil {
					return err
				}
			}

			if err := appCtx.mgr.FinishChangeNumber(cmd.Context(), newNumber, code, pin); err != nil {
				return err
			}
			fmt.Printf("Number changed to %s\n", newNumber)
			return nil
		},
	}

	cmd.Flags().StringVar(&pin, "pin", "", "registration lock PIN (prompted when omitted)")
	return cmd
}
