package cmds

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/resume-chat/pkg/server"
)

func NewServeCommand(app *App) *cobra.Command {
	d := server.DefaultSettings()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a development chat server",
		Long: "Run a development chat server speaking the same WebSocket protocol as the production backend.\n" +
			"The echo responder needs no backend; the openrouter responder needs OPENROUTER_API_KEY.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config()
			responder, err := newResponder(cfg.Serve.Responder, cfg.OpenRouter)
			if err != nil {
				return err
			}
			srv, err := server.New(cfg.Serve, responder)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	fs := cmd.Flags()
	fs.String("addr", d.Addr, "Listen address (PORT is used when unset)")
	fs.String("mode", d.Mode, "Reply mode (structured, stream)")
	fs.String("responder", d.Responder, "Responder (echo, openrouter)")
	fs.String("greeting", d.Greeting, "Welcome message sent on connect, empty to disable")
	fs.Int("history-limit", d.HistoryLimit, "Messages of history kept per connection")
	fs.String("model", server.DefaultOpenRouterModel, "OpenRouter model")
	fs.String("profile", "", "JSON or YAML profile the openrouter responder answers from")
	fs.String("persona", "", "Who the openrouter responder speaks as")
	return cmd
}

func newResponder(name string, or server.OpenRouterSettings) (server.Responder, error) {
	switch name {
	case server.ResponderEcho:
		return server.EchoResponder{}, nil
	case server.ResponderOpenRouter:
		r, err := server.NewOpenRouterResponder(or)
		if err != nil {
			return nil, err
		}
		log.Info().Str("model", or.Model).Str("base_url", or.BaseURL).Msg("using openrouter responder")
		return r, nil
	default:
		return nil, errors.Errorf("unknown responder %q", name)
	}
}
