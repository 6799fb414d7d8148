// Package config merges defaults, an optional YAML file, environment
// variables and command line flags into a typed Config.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/go-go-golems/resume-chat/pkg/logging"
	"github.com/go-go-golems/resume-chat/pkg/server"
	"github.com/go-go-golems/resume-chat/pkg/transport"
)

const (
	AppName   = "resume-chat"
	EnvPrefix = "RESUME_CHAT"
)

// ClientSettings tunes the chat client.
type ClientSettings struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake-timeout"`
	// GreetingWait is how long to wait for the welcome reply after connecting.
	// Zero skips waiting.
	GreetingWait time.Duration `mapstructure:"greeting-wait"`
}

type Config struct {
	Environment string                    `mapstructure:"environment"`
	Endpoints   transport.Endpoints       `mapstructure:"endpoints"`
	Client      ClientSettings            `mapstructure:"client"`
	Serve       server.Settings           `mapstructure:"serve"`
	OpenRouter  server.OpenRouterSettings `mapstructure:"openrouter"`
	Logging     logging.Settings          `mapstructure:"-"`

	// File is the config file that was read, empty when none was.
	File string `mapstructure:"-"`
}

func Default() Config {
	return Config{
		Environment: transport.EnvironmentDevelopment,
		Endpoints:   transport.DefaultEndpoints(),
		Client: ClientSettings{
			HandshakeTimeout: 10 * time.Second,
			GreetingWait:     3 * time.Second,
		},
		Serve:      server.DefaultSettings(),
		OpenRouter: server.DefaultOpenRouterSettings(),
		Logging:    logging.DefaultSettings(),
	}
}

// DefaultConfigPath is ~/.resume-chat/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, "."+AppName, "config.yaml"), nil
}

// DefaultLogPath is where the chat screen logs when no log file is given.
func DefaultLogPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, "."+AppName, AppName+".log"), nil
}

// New returns a viper instance with every key defaulted and the environment
// bound. RESUME_CHAT_SERVE_HISTORY_LIMIT sets serve.history-limit, for
// example. OPENROUTER_API_KEY and PORT are honoured as well.
func New() *viper.Viper {
	d := Default()
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", d.Environment)
	v.SetDefault("endpoints.production", d.Endpoints.Production)
	v.SetDefault("endpoints.development", d.Endpoints.Development)
	v.SetDefault("endpoints.url", d.Endpoints.Override)
	v.SetDefault("client.handshake-timeout", d.Client.HandshakeTimeout)
	v.SetDefault("client.greeting-wait", d.Client.GreetingWait)

	// empty so that PORT can fill it in
	v.SetDefault("serve.addr", "")
	v.SetDefault("serve.mode", d.Serve.Mode)
	v.SetDefault("serve.responder", d.Serve.Responder)
	v.SetDefault("serve.greeting", d.Serve.Greeting)
	v.SetDefault("serve.history-limit", d.Serve.HistoryLimit)
	v.SetDefault("serve.write-timeout", d.Serve.WriteTimeout)
	v.SetDefault("port", 0)

	v.SetDefault("openrouter.api-key", d.OpenRouter.APIKey)
	v.SetDefault("openrouter.base-url", d.OpenRouter.BaseURL)
	v.SetDefault("openrouter.model", d.OpenRouter.Model)
	v.SetDefault("openrouter.max-tokens", d.OpenRouter.MaxTokens)
	v.SetDefault("openrouter.temperature", d.OpenRouter.Temperature)
	v.SetDefault("openrouter.timeout", d.OpenRouter.Timeout)
	v.SetDefault("openrouter.history-window", d.OpenRouter.HistoryWindow)
	v.SetDefault("openrouter.profile", d.OpenRouter.Profile)
	v.SetDefault("openrouter.persona", d.OpenRouter.Persona)

	v.SetDefault("log-level", d.Logging.Level)
	v.SetDefault("log-format", d.Logging.Format)
	v.SetDefault("log-file", d.Logging.File)
	v.SetDefault("with-caller", d.Logging.WithCaller)

	_ = v.BindEnv("openrouter.api-key", EnvPrefix+"_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("port", EnvPrefix+"_PORT", "PORT")
	return v
}

// BindFlags binds the flags of fs that carry configuration. A flag is bound
// to the key keys maps it to, or to the key of the same name when that key
// has a default. Other flags are left alone.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) error {
	known := map[string]bool{}
	for _, k := range v.AllKeys() {
		known[k] = true
	}

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		key, ok := keys[f.Name]
		if !ok {
			if !known[f.Name] {
				return
			}
			key = f.Name
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil {
			err = errors.Wrapf(bindErr, "bind flag %s", f.Name)
		}
	})
	return err
}

// ReadFile reads path into v. With an empty path the default location is
// tried and a missing file there is not an error.
func ReadFile(v *viper.Viper, path string) error {
	explicit := path != ""
	if !explicit {
		p, err := DefaultConfigPath()
		if err != nil {
			return nil
		}
		path = p
	}
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Logging = logging.Settings{
		Level:      v.GetString("log-level"),
		Format:     v.GetString("log-format"),
		File:       v.GetString("log-file"),
		WithCaller: v.GetBool("with-caller"),
	}

	if strings.TrimSpace(cfg.Serve.Addr) == "" {
		cfg.Serve.Addr = server.DefaultAddr
		if port := v.GetInt("port"); port > 0 {
			cfg.Serve.Addr = ":" + v.GetString("port")
		}
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))

	if err := cfg.Serve.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "serve")
	}
	if cfg.Client.HandshakeTimeout < 0 || cfg.Client.GreetingWait < 0 {
		return Config{}, errors.New("client timeouts must not be negative")
	}
	return cfg, nil
}

// Endpoint resolves the websocket URL the client should dial.
func (c Config) Endpoint() (string, error) {
	return transport.ResolveEndpoint(c.Environment, c.Endpoints)
}
