package server

import (
	"context"
	"strings"

	"github.com/go-go-golems/resume-chat/pkg/chat"
)

// Turn is one entry of a connection's history.
type Turn struct {
	Role    chat.Role
	Content string
}

// Request is what a responder answers: the new user message and the turns
// that preceded it on the same connection.
type Request struct {
	History []Turn
	Message string
}

type Responder interface {
	Respond(ctx context.Context, req Request) (string, error)
}

// StreamResponder can produce its reply incrementally. emit is called once
// per non-empty delta; the full reply is returned at the end.
type StreamResponder interface {
	Responder
	RespondStream(ctx context.Context, req Request, emit func(delta string) error) (string, error)
}

// EchoResponder answers without any backend, for local development.
type EchoResponder struct {
	Prefix string
}

var _ StreamResponder = EchoResponder{}

func (e EchoResponder) reply(req Request) string {
	prefix := e.Prefix
	if prefix == "" {
		prefix = "You said: "
	}
	return prefix + req.Message
}

func (e EchoResponder) Respond(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.reply(req), nil
}

// RespondStream emits the reply word by word, keeping the separating spaces.
func (e EchoResponder) RespondStream(ctx context.Context, req Request, emit func(string) error) (string, error) {
	full := e.reply(req)
	rest := full
	for rest != "" {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		i := strings.IndexByte(rest, ' ')
		var chunk string
		if i < 0 {
			chunk, rest = rest, ""
		} else {
			chunk, rest = rest[:i+1], rest[i+1:]
		}
		if err := emit(chunk); err != nil {
			return "", err
		}
	}
	return full, nil
}
