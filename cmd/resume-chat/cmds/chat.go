package cmds

import (
	"github.com/spf13/cobra"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/ui"
)

func NewChatCommand(app *App) *cobra.Command {
	var markdownStyle string

	cmd := &cobra.Command{
		Use:         "chat",
		Short:       "Open the interactive chat screen",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, greeting, err := connect(ctx, app.Config())
			if err != nil {
				return err
			}
			defer sess.Close()

			fwd := ui.NewChangeForwarder()
			rec := chat.NewReconciler(sess, chat.WithOnChange(fwd.Notify))
			defer rec.Close()

			return ui.Run(ctx, rec, fwd.C(), ui.Options{
				Endpoint:      sess.URL(),
				Greeting:      greeting,
				Disconnected:  sess.Done(),
				MarkdownStyle: markdownStyle,
			})
		},
	}
	cmd.Flags().StringVar(&markdownStyle, "markdown-style", ui.StyleAuto, "Markdown style (auto, dark, light, notty)")
	addClientFlags(cmd)
	return cmd
}
