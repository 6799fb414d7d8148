package cmds

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/config"
	"github.com/go-go-golems/resume-chat/pkg/transport"
)

// connect dials the configured endpoint and consumes the welcome reply so it
// cannot be mistaken for the answer to the first question.
func connect(ctx context.Context, cfg config.Config) (*transport.Session, string, error) {
	endpoint, err := cfg.Endpoint()
	if err != nil {
		return nil, "", err
	}
	sess, err := transport.Dial(ctx, endpoint,
		transport.WithHandshakeTimeout(cfg.Client.HandshakeTimeout),
	)
	if err != nil {
		return nil, "", errors.Wrapf(err, "connect to %s", endpoint)
	}

	greeting, err := chat.AwaitGreeting(ctx, sess, cfg.Client.GreetingWait)
	if err != nil {
		_ = sess.Close()
		return nil, "", err
	}
	log.Debug().Str("endpoint", endpoint).Int("greeting_length", len(greeting)).Msg("connected")
	return sess, greeting, nil
}

func addClientFlags(cmd *cobra.Command) {
	d := config.Default().Client
	cmd.Flags().Duration("handshake-timeout", d.HandshakeTimeout, "WebSocket handshake timeout")
	cmd.Flags().Duration("greeting-wait", d.GreetingWait, "How long to wait for the welcome message, 0 to skip")
}
