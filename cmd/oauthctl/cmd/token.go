package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	oautherrors "go.pilab.hu/oauthkit/errors"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print the current access token, refreshing it if expired",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		token, err := svc.AccessToken(cmd.Context())
		if errors.Is(err, oautherrors.ErrNotAuthorized) {
			return fmt.Errorf("not authorized yet; run 'oauthctl url' and complete the flow")
		}
		if err != nil {
			return err
		}

		fmt.Println(token)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored token record for the service",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.Reset(cmd.Context()); err != nil {
			return err
		}

		fmt.Println("token record deleted")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(resetCmd)
}
