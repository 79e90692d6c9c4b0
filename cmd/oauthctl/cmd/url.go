package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagPayload string

var urlCmd = &cobra.Command{
	Use:   "url",
	Short: "Print the authorization URL to surface to the user",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		authURL, err := svc.AuthorizationURL(flagPayload)
		if err != nil {
			return err
		}

		fmt.Println(authURL)
		return nil
	},
}

func init() {
	urlCmd.Flags().StringVar(&flagPayload, "payload", "", "opaque payload round-tripped through the state token")
	rootCmd.AddCommand(urlCmd)
}
