package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Run shows the chat screen until the user quits or ctx is done.
func Run(ctx context.Context, b Backend, changes <-chan struct{}, opts Options) error {
	m, err := NewModel(b, changes, opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	log.Debug().Str("endpoint", opts.Endpoint).Msg("starting chat ui")
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.Wrap(err, "run chat ui")
	}
	return nil
}
