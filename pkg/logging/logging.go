// Package logging configures the global zerolog logger from command line
// flags and configuration.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Settings struct {
	Level      string `mapstructure:"log-level"`
	Format     string `mapstructure:"log-format"`
	File       string `mapstructure:"log-file"`
	WithCaller bool   `mapstructure:"with-caller"`
}

func DefaultSettings() Settings {
	return Settings{
		Level:  "info",
		Format: "text",
	}
}

// AddFlags registers the logging flags as persistent flags of cmd.
func AddFlags(cmd *cobra.Command) {
	d := DefaultSettings()
	fs := cmd.PersistentFlags()
	fs.String("log-level", d.Level, "Log level (trace, debug, info, warn, error)")
	fs.String("log-format", d.Format, "Log format (text, json)")
	fs.String("log-file", d.File, "Write logs to this file instead of stderr")
	fs.Bool("with-caller", d.WithCaller, "Add caller information to log lines")
}

// InitLogger replaces the global logger. Logs go to s.File when set,
// otherwise to stderr.
func InitLogger(s Settings) error {
	return initLogger(s, os.Stderr)
}

func initLogger(s Settings, stderr io.Writer) error {
	level := zerolog.InfoLevel
	if strings.TrimSpace(s.Level) != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s.Level)))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = stderr
	if s.File != "" {
		out = &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}

	switch strings.ToLower(strings.TrimSpace(s.Format)) {
	case "", "text":
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    s.File != "",
		}
	case "json":
	default:
		return errors.Errorf("invalid log format %q", s.Format)
	}

	ctx := zerolog.New(out).With().Timestamp()
	if s.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	return nil
}
