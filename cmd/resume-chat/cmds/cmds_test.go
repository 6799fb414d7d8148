package cmds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/server"
	"github.com/go-go-golems/resume-chat/pkg/transport"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("RESUME_CHAT_ENVIRONMENT", "")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand(NewApp())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func devServer(t *testing.T, s server.Settings) string {
	t.Helper()
	srv, err := server.New(s, server.EchoResponder{})
	require.NoError(t, err)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return "ws" + strings.TrimPrefix(hs.URL, "http")
}

func TestEndpointCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "endpoint")
	require.NoError(t, err)
	require.Equal(t, transport.DefaultDevelopmentURL+"\n", out)

	out, err = run(t, "", "endpoint", "--env", "production")
	require.NoError(t, err)
	require.Equal(t, transport.DefaultProductionURL+"\n", out)

	out, err = run(t, "", "endpoint", "--env", "production", "--url", "ws://127.0.0.1:9999")
	require.NoError(t, err)
	require.Equal(t, "ws://127.0.0.1:9999\n", out)

	_, err = run(t, "", "endpoint", "--url", "http://example.com")
	require.Error(t, err)
}

func TestEndpointFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("RESUME_CHAT_ENVIRONMENT", "production")

	out, err := run(t, "", "endpoint")
	require.NoError(t, err)
	require.Equal(t, transport.DefaultProductionURL+"\n", out)
}

func TestAskJSON(t *testing.T) {
	isolate(t)
	url := devServer(t, server.DefaultSettings())

	out, err := run(t, "", "ask", "--url", url, "--greeting-wait", "2s", "--output", "json", "what", "do", "you", "do?")
	require.NoError(t, err)

	var res askResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Complete)
	require.Equal(t, server.DefaultGreeting, res.Greeting)
	require.Len(t, res.Messages, 2)
	require.Equal(t, chat.RoleUser, res.Messages[0].Role)
	require.Equal(t, "what do you do?", res.Messages[0].Content)
	require.Equal(t, "You said: what do you do?", res.Messages[1].Content)
}

func TestAskYAMLStreaming(t *testing.T) {
	isolate(t)
	s := server.DefaultSettings()
	s.Mode = server.ModeStream
	url := devServer(t, s)

	out, err := run(t, "", "ask", "--url", url, "--greeting-wait", "2s", "--output", "yaml", "tell me more")
	require.NoError(t, err)

	var res askResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	require.True(t, res.Complete)
	require.Len(t, res.Messages, 2)
	require.Equal(t, "You said: tell me more", res.Messages[1].Content)
}

func TestAskTextFromStdin(t *testing.T) {
	isolate(t)
	url := devServer(t, server.DefaultSettings())

	out, err := run(t, "  hello from stdin\n", "ask", "--url", url, "--greeting-wait", "2s")
	require.NoError(t, err)
	require.Equal(t, "You said: hello from stdin\n", out)
}

func TestAskErrors(t *testing.T) {
	isolate(t)

	_, err := run(t, "", "ask", "--url", "ws://127.0.0.1:1", "--output", "xml", "hi")
	require.ErrorContains(t, err, "unknown output format")

	_, err = run(t, "   ", "ask", "--url", "ws://127.0.0.1:1")
	require.ErrorContains(t, err, "no question")

	_, err = run(t, "", "ask", "--url", "ws://127.0.0.1:1", "--handshake-timeout", "1s", "hi")
	require.ErrorContains(t, err, "connect to")
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "sk-very-secret")

	out, err := run(t, "", "config", "show")
	require.NoError(t, err)
	require.NotContains(t, out, "sk-very-secret")
	require.Contains(t, out, "********")
	require.Contains(t, out, "greeting-wait: 3s")

	out, err = run(t, "", "config", "show", "--concise")
	require.NoError(t, err)
	require.Contains(t, out, "serve.history-limit\n")
}

func TestConfigPath(t *testing.T) {
	isolate(t)
	out, err := run(t, "", "config", "path")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), ".resume-chat/config.yaml"))
}

func TestServeRejectsUnknownResponder(t *testing.T) {
	isolate(t)
	_, err := run(t, "", "serve", "--responder", "oracle")
	require.Error(t, err)

	_, err = run(t, "", "serve", "--responder", "openrouter")
	require.ErrorContains(t, err, "api key")
}
