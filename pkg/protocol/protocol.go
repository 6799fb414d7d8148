// Package protocol holds the wire format shared by the chat client and the
// development server.
//
// Client to server frames are JSON text frames carrying a single message:
//
//	{"message": "<user text>"}
//
// Server to client frames are one of:
//   - any text containing the Sentinel, which ends the current reply;
//   - {"type": "chat_response", "message": "<text>"}, a complete reply;
//   - {"type": "error", "message": "<text>"}, where message is optional;
//   - any other text, an incremental fragment of the reply.
package protocol

import (
	"encoding/json"
)

// Sentinel marks the end of an assistant reply. It may appear anywhere in a
// frame.
const Sentinel = "[END]"

const (
	TypeChatResponse = "chat_response"
	TypeError        = "error"
)

// DefaultErrorMessage is shown for error frames that carry no message.
const DefaultErrorMessage = "An error occurred"

// Outbound is the client to server frame.
type Outbound struct {
	Message string `json:"message"`
}

// Inbound is the structured server to client frame.
type Inbound struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Role    string `json:"role,omitempty"`
}

func EncodeOutbound(text string) ([]byte, error) {
	return json.Marshal(Outbound{Message: text})
}

func EncodeChatResponse(text string) ([]byte, error) {
	return json.Marshal(Inbound{Type: TypeChatResponse, Message: text, Role: "assistant"})
}

func EncodeError(text string) ([]byte, error) {
	return json.Marshal(Inbound{Type: TypeError, Message: text})
}
