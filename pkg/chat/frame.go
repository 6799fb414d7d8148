package chat

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/resume-chat/pkg/protocol"
)

// FrameKind classifies an inbound payload.
type FrameKind int

const (
	// FrameFragment is plain text to be concatenated onto the reply.
	FrameFragment FrameKind = iota
	// FrameSentinel ends the reply.
	FrameSentinel
	// FrameResponse is a complete structured reply.
	FrameResponse
	// FrameError is a server reported error.
	FrameError
	// FrameUnknown is a JSON object with an unrecognised type. It is ignored.
	FrameUnknown
)

func (k FrameKind) String() string {
	switch k {
	case FrameFragment:
		return "fragment"
	case FrameSentinel:
		return "sentinel"
	case FrameResponse:
		return "chat_response"
	case FrameError:
		return "error"
	case FrameUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Frame is the decoded form of one inbound payload.
type Frame struct {
	Kind FrameKind
	// Text is the message to show. For fragments it is the raw payload.
	Text string
	// Type is the raw type discriminator of structured frames.
	Type string
}

// DecodeFrame classifies payload exactly once. The sentinel check runs on the
// raw payload before any parsing. Only JSON objects count as structured;
// every other payload, including bare JSON scalars, is a fragment.
func DecodeFrame(payload string) Frame {
	if strings.Contains(payload, protocol.Sentinel) {
		return Frame{Kind: FrameSentinel}
	}

	trimmed := strings.TrimSpace(payload)
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return Frame{Kind: FrameFragment, Text: payload}
	}

	var rec map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return Frame{Kind: FrameFragment, Text: payload}
	}

	typ := stringField(rec, "type")
	msg := stringField(rec, "message")
	switch typ {
	case protocol.TypeChatResponse:
		return Frame{Kind: FrameResponse, Text: msg, Type: typ}
	case protocol.TypeError:
		if msg == "" {
			msg = protocol.DefaultErrorMessage
		}
		return Frame{Kind: FrameError, Text: msg, Type: typ}
	default:
		return Frame{Kind: FrameUnknown, Type: typ}
	}
}

func stringField(rec map[string]json.RawMessage, key string) string {
	raw, ok := rec[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
