package protocol_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/protocol"
)

func TestEncodeOutbound(t *testing.T) {
	b, err := protocol.EncodeOutbound(`say "hi"`)
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"say \"hi\""}`, string(b))
}

// Server frames must decode on the client side as the kind they were meant as.
func TestServerFramesDecode(t *testing.T) {
	b, err := protocol.EncodeChatResponse("Hello")
	require.NoError(t, err)
	f := chat.DecodeFrame(string(b))
	require.Equal(t, chat.FrameResponse, f.Kind)
	require.Equal(t, "Hello", f.Text)

	b, err = protocol.EncodeError("")
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"error"}`, string(b))
	f = chat.DecodeFrame(string(b))
	require.Equal(t, chat.FrameError, f.Kind)
	require.Equal(t, protocol.DefaultErrorMessage, f.Text)

	require.Equal(t, chat.FrameSentinel, chat.DecodeFrame(protocol.Sentinel).Kind)
}
