package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/resume-chat/pkg/chat"
)

func TestEchoResponder(t *testing.T) {
	got, err := EchoResponder{}.Respond(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "You said: hi", got)

	got, err = EchoResponder{Prefix: "> "}.Respond(context.Background(), Request{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "> hi", got)
}

func TestEchoResponderStreamsWords(t *testing.T) {
	var chunks []string
	full, err := EchoResponder{}.RespondStream(context.Background(), Request{Message: "a b"}, func(d string) error {
		chunks = append(chunks, d)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"You ", "said: ", "a ", "b"}, chunks)
	require.Equal(t, full, strings.Join(chunks, ""))
}

func TestEchoResponderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := EchoResponder{}.Respond(ctx, Request{Message: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestHistoryTrimsOldest(t *testing.T) {
	h := newHistory(3)
	h.add(chat.RoleUser, "1")
	h.add(chat.RoleAssistant, "2")
	h.add(chat.RoleUser, "3")
	h.add(chat.RoleAssistant, "4")

	require.Equal(t, []Turn{
		{Role: chat.RoleAssistant, Content: "2"},
		{Role: chat.RoleUser, Content: "3"},
		{Role: chat.RoleAssistant, Content: "4"},
	}, h.snapshot())

	snap := h.snapshot()
	snap[0].Content = "changed"
	require.Equal(t, "2", h.snapshot()[0].Content)

	empty := newHistory(0)
	empty.add(chat.RoleUser, "x")
	require.Empty(t, empty.snapshot())
}
