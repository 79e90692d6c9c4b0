package cmd

import (
	"fmt"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	oauthkit "go.pilab.hu/oauthkit"
	echoapi "go.pilab.hu/oauthkit/api/echo"
)

var flagListen string

var callbackCmd = &cobra.Command{
	Use:   "callback [redirect-url]",
	Short: "Complete an authorization callback",
	Long: `Completes the authorization-code flow either from a pasted redirect URL
or by listening for the provider's redirect on --listen.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		if len(args) == 1 {
			redirect, err := url.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid redirect URL: %w", err)
			}

			authorized, err := svc.HandleCallback(cmd.Context(),
				oauthkit.CallbackFromValues(redirect.Query()))
			if err != nil {
				return err
			}
			if !authorized {
				return fmt.Errorf("callback rejected")
			}

			fmt.Println("authorization complete")
			return nil
		}

		if flagListen == "" {
			return fmt.Errorf("pass a redirect URL or set --listen")
		}

		codec, err := stateCodec()
		if err != nil {
			return err
		}

		e := echo.New()
		e.HideBanner = true
		echoapi.NewCallbackAPI(codec, svc).RegisterRoutes(e, "/"+flagCallbackID)

		fmt.Printf("listening on %s for the provider redirect\n", flagListen)
		return e.Start(flagListen)
	},
}

func init() {
	callbackCmd.Flags().StringVar(&flagListen, "listen", "", "address to listen on for the redirect (e.g. :8085)")
	rootCmd.AddCommand(callbackCmd)
}
