package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/ui"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

type AskSettings struct {
	Output        string
	Timeout       time.Duration
	MarkdownStyle string
	Plain         bool
}

// askResult is what --output json and yaml print.
type askResult struct {
	Endpoint string         `json:"endpoint" yaml:"endpoint"`
	Greeting string         `json:"greeting,omitempty" yaml:"greeting,omitempty"`
	Complete bool           `json:"complete" yaml:"complete"`
	Messages []chat.Message `json:"messages" yaml:"messages"`
}

func NewAskCommand(app *App) *cobra.Command {
	s := &AskSettings{}

	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask one question and print the reply",
		Long:  "Ask one question and print the reply. Without arguments the question is read from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if len(args) == 0 {
				input, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "read question from stdin")
				}
				question = string(input)
			}
			question = strings.TrimSpace(question)
			if question == "" {
				return errors.New("no question given")
			}
			return runAsk(cmd.Context(), app, s, question, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&s.Output, "output", "o", outputText, "Output format (text, json, yaml)")
	cmd.Flags().DurationVar(&s.Timeout, "timeout", 2*time.Minute, "How long to wait for the complete reply")
	cmd.Flags().StringVar(&s.MarkdownStyle, "markdown-style", ui.StyleAuto, "Markdown style for terminal output")
	cmd.Flags().BoolVar(&s.Plain, "plain", false, "Print replies without markdown rendering")
	addClientFlags(cmd)
	return cmd
}

func runAsk(ctx context.Context, app *App, s *AskSettings, question string, w io.Writer) error {
	switch s.Output {
	case outputText, outputJSON, outputYAML:
	default:
		return errors.Errorf("unknown output format %q", s.Output)
	}

	sess, greeting, err := connect(ctx, app.Config())
	if err != nil {
		return err
	}
	defer sess.Close()

	rec := chat.NewReconciler(sess)
	defer rec.Close()
	if !rec.Submit(question) {
		return errors.New("connection closed before the question could be sent")
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	go func() {
		select {
		case <-sess.Done():
			cancel()
		case <-waitCtx.Done():
		}
	}()

	var waitErr error
	if err := rec.WaitIdle(waitCtx); err != nil {
		switch {
		case sess.Err() != nil:
			waitErr = errors.Wrap(sess.Err(), "connection lost before the reply completed")
		case !sess.IsOpen():
			waitErr = errors.New("connection closed before the reply completed")
		default:
			waitErr = errors.Wrap(err, "waiting for the reply")
		}
	}

	snap := rec.Snapshot()
	res := askResult{
		Endpoint: sess.URL(),
		Greeting: greeting,
		Complete: waitErr == nil,
		Messages: snap.Messages,
	}
	if err := printAskResult(w, s, res); err != nil {
		return err
	}
	return waitErr
}

func printAskResult(w io.Writer, s *AskSettings, res askResult) error {
	switch s.Output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	}

	render := func(text string) string { return text }
	if width, ok := terminalWidth(w); ok && !s.Plain {
		md, err := ui.NewMarkdownRenderer(s.MarkdownStyle, width)
		if err != nil {
			return err
		}
		render = md.Render
	}

	var replies []string
	for _, m := range res.Messages {
		if m.Role == chat.RoleAssistant {
			replies = append(replies, render(m.Content))
		}
	}
	if len(replies) == 0 {
		return nil
	}
	_, err := fmt.Fprintln(w, strings.Join(replies, "\n\n"))
	return err
}

// terminalWidth reports the width of w when it is a terminal.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}
