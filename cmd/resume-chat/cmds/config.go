package cmds

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/resume-chat/pkg/config"
)

// commands for inspecting the configuration
//
// - path: which file is read
// - show: the merged settings, secrets redacted
// - edit: open the file in $EDITOR

var secretKeys = map[string]bool{
	"openrouter.api-key": true,
}

type ConfigCommand struct {
	app *App
}

func NewConfigGroupCommand(app *App) *cobra.Command {
	c := &ConfigCommand{app: app}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Commands for inspecting the configuration",
	}
	cmd.AddCommand(c.newPathCommand())
	cmd.AddCommand(c.newShowCommand())
	cmd.AddCommand(c.newEditCommand())
	return cmd
}

// configPath returns the file in use, or the default location when none was
// read.
func (c *ConfigCommand) configPath() (string, error) {
	if p := c.app.Config().File; p != "" {
		return p, nil
	}
	return config.DefaultConfigPath()
}

func (c *ConfigCommand) newPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the path of the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.configPath()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), p)
			return err
		},
	}
}

func (c *ConfigCommand) newShowCommand() *cobra.Command {
	var concise bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := c.app.Viper()
			w := cmd.OutOrStdout()

			if concise {
				keys := v.AllKeys()
				sort.Strings(keys)
				for _, k := range keys {
					fmt.Fprintln(w, k)
				}
				return nil
			}

			settings := redact(v.AllSettings(), "")
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				return errors.Wrap(err, "encode settings")
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVarP(&concise, "concise", "c", false, "Only show keys")
	return cmd
}

// redact replaces secrets with a marker and durations with their string form.
func redact(settings map[string]any, prefix string) map[string]any {
	out := make(map[string]any, len(settings))
	for k, val := range settings {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		switch tv := val.(type) {
		case map[string]any:
			out[k] = redact(tv, full)
		case time.Duration:
			out[k] = tv.String()
		default:
			if secretKeys[full] && fmt.Sprint(val) != "" {
				out[k] = "********"
				continue
			}
			out[k] = val
		}
	}
	return out
}

func (c *ConfigCommand) newEditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the configuration file in your default editor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			editor := os.Getenv("EDITOR")
			if editor == "" {
				editor = "vim"
			}

			configPath, err := c.configPath()
			if err != nil {
				return err
			}
			log.Debug().Str("config_path", configPath).Msg("editing config file")

			if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
				return errors.Wrap(err, "could not create config directory")
			}

			editCmd := exec.CommandContext(cmd.Context(), editor, configPath)
			editCmd.Stdin = os.Stdin
			editCmd.Stdout = os.Stdout
			editCmd.Stderr = os.Stderr
			return editCmd.Run()
		},
	}
}
