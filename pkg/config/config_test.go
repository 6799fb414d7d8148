package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/resume-chat/pkg/server"
	"github.com/go-go-golems/resume-chat/pkg/transport"
)

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("PORT", "")
}

func TestLoadDefaults(t *testing.T) {
	isolateHome(t)
	v := New()
	require.NoError(t, ReadFile(v, ""))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, transport.EnvironmentDevelopment, cfg.Environment)
	require.Equal(t, server.DefaultAddr, cfg.Serve.Addr)
	require.Equal(t, server.DefaultHistoryLimit, cfg.Serve.HistoryLimit)
	require.Equal(t, server.DefaultOpenRouterModel, cfg.OpenRouter.Model)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Empty(t, cfg.File)

	ep, err := cfg.Endpoint()
	require.NoError(t, err)
	require.Equal(t, transport.DefaultDevelopmentURL, ep)
}

func TestLoadFileThenEnvThenFlags(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
endpoints:
  production: wss://chat.example.com
serve:
  mode: stream
  history-limit: 8
client:
  greeting-wait: 1s
log-level: debug
`), 0o600))

	t.Setenv("RESUME_CHAT_SERVE_HISTORY_LIMIT", "4")
	t.Setenv("OPENROUTER_API_KEY", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("mode", "structured", "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--log-level", "warn"}))

	v := New()
	require.NoError(t, BindFlags(v, fs, map[string]string{"mode": "serve.mode"}))
	require.NoError(t, ReadFile(v, path))

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, path, cfg.File)
	require.Equal(t, "production", cfg.Environment)
	// an unchanged flag does not override the file
	require.Equal(t, server.ModeStream, cfg.Serve.Mode)
	require.Equal(t, 4, cfg.Serve.HistoryLimit)
	require.Equal(t, "from-env", cfg.OpenRouter.APIKey)
	require.Equal(t, time.Second, cfg.Client.GreetingWait)
	require.Equal(t, "warn", cfg.Logging.Level)

	ep, err := cfg.Endpoint()
	require.NoError(t, err)
	require.Equal(t, "wss://chat.example.com", ep)
}

func TestLoadPortFallback(t *testing.T) {
	isolateHome(t)
	t.Setenv("PORT", "9000")

	cfg, err := Load(New())
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Serve.Addr)

	t.Setenv("RESUME_CHAT_SERVE_ADDR", "127.0.0.1:7000")
	cfg, err = Load(New())
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", cfg.Serve.Addr)
}

func TestReadFileErrors(t *testing.T) {
	isolateHome(t)
	err := ReadFile(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("serve: [unterminated"), 0o600))
	require.Error(t, ReadFile(New(), bad))
}

func TestLoadDefaultFileFromHome(t *testing.T) {
	isolateHome(t)
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("serve:\n  responder: openrouter\n"), 0o600))

	v := New()
	require.NoError(t, ReadFile(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, path, cfg.File)
	require.Equal(t, server.ResponderOpenRouter, cfg.Serve.Responder)
}

func TestLoadRejectsInvalid(t *testing.T) {
	isolateHome(t)
	t.Setenv("RESUME_CHAT_SERVE_MODE", "smoke-signals")
	_, err := Load(New())
	require.Error(t, err)
}
