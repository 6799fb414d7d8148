package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewEndpointCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "endpoint",
		Short: "Print the WebSocket endpoint the client would connect to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			endpoint, err := app.Config().Endpoint()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), endpoint)
			return err
		},
	}
}
