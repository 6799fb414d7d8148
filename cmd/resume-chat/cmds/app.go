package cmds

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-go-golems/resume-chat/pkg/config"
	"github.com/go-go-golems/resume-chat/pkg/logging"
)

// annotationTUI marks commands that take over the terminal. Their logs go to a
// file unless --log-file says otherwise.
const annotationTUI = "tui"

// flagKeys maps flag names to the configuration keys they set when the two
// differ.
var flagKeys = map[string]string{
	"env":               "environment",
	"url":               "endpoints.url",
	"handshake-timeout": "client.handshake-timeout",
	"greeting-wait":     "client.greeting-wait",
	"addr":              "serve.addr",
	"mode":              "serve.mode",
	"responder":         "serve.responder",
	"greeting":          "serve.greeting",
	"history-limit":     "serve.history-limit",
	"model":             "openrouter.model",
	"profile":           "openrouter.profile",
	"persona":           "openrouter.persona",
}

// App carries the configuration shared by all commands.
type App struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

func NewApp() *App {
	return &App{v: config.New(), cfg: config.Default()}
}

func (a *App) Config() config.Config {
	return a.cfg
}

func (a *App) Viper() *viper.Viper {
	return a.v
}

// AddFlags registers the flags every command understands.
func (a *App) AddFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringVar(&a.configFile, "config", "", "Config file (default ~/.resume-chat/config.yaml)")
	fs.String("env", "", "Environment selecting the endpoint (production or development)")
	fs.String("url", "", "WebSocket endpoint, overrides --env")
	logging.AddFlags(cmd)
}

// Init merges flags, config file and environment, then sets up logging. It
// runs before every command.
func (a *App) Init(cmd *cobra.Command) error {
	if err := config.BindFlags(a.v, cmd.Flags(), flagKeys); err != nil {
		return err
	}
	if err := config.ReadFile(a.v, a.configFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}

	if cmd.Annotations[annotationTUI] == "true" && !cmd.Flags().Changed("log-file") && cfg.Logging.File == "" {
		path, err := config.DefaultLogPath()
		if err != nil {
			return err
		}
		cfg.Logging.File = path
	}
	if err := logging.InitLogger(cfg.Logging); err != nil {
		return errors.Wrap(err, "init logger")
	}
	a.cfg = cfg

	log.Debug().
		Str("command", cmd.Name()).
		Str("config_file", cfg.File).
		Str("environment", cfg.Environment).
		Msg("configuration loaded")
	return nil
}

// NewRootCommand assembles the resume-chat command tree.
func NewRootCommand(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "resume-chat",
		Short:         "Chat with a resume assistant over WebSocket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Init(cmd)
		},
	}
	app.AddFlags(root)

	root.AddCommand(
		NewChatCommand(app),
		NewAskCommand(app),
		NewServeCommand(app),
		NewEndpointCommand(app),
		NewConfigGroupCommand(app),
	)
	return root
}
