package server

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	// ModeStructured answers each message with one chat_response frame.
	ModeStructured = "structured"
	// ModeStream answers with raw text fragments.
	ModeStream = "stream"

	ResponderEcho       = "echo"
	ResponderOpenRouter = "openrouter"

	DefaultAddr         = ":8765"
	DefaultHistoryLimit = 20
	DefaultGreeting     = "Hello! Ask me anything about my experience, skills or recent projects. How can I help you today?"

	msgInvalidJSON   = "Invalid JSON format"
	msgEmptyMessage  = "Empty message received"
	msgProcessFailed = "An error occurred while processing your message"
)

// Settings configures the development chat server.
type Settings struct {
	Addr      string `mapstructure:"addr"`
	Mode      string `mapstructure:"mode"`
	Responder string `mapstructure:"responder"`
	// Greeting is sent to every new connection. Empty disables it.
	Greeting string `mapstructure:"greeting"`
	// HistoryLimit caps the per-connection history kept between messages.
	HistoryLimit int `mapstructure:"history-limit"`
	// WriteTimeout bounds a single frame write. Zero disables it.
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
}

func DefaultSettings() Settings {
	return Settings{
		Addr:         DefaultAddr,
		Mode:         ModeStructured,
		Responder:    ResponderEcho,
		Greeting:     DefaultGreeting,
		HistoryLimit: DefaultHistoryLimit,
		WriteTimeout: 10 * time.Second,
	}
}

func (s Settings) Validate() error {
	switch strings.ToLower(s.Mode) {
	case ModeStructured, ModeStream:
	default:
		return errors.Errorf("unknown reply mode %q (want %s or %s)", s.Mode, ModeStructured, ModeStream)
	}
	switch strings.ToLower(s.Responder) {
	case ResponderEcho, ResponderOpenRouter:
	default:
		return errors.Errorf("unknown responder %q (want %s or %s)", s.Responder, ResponderEcho, ResponderOpenRouter)
	}
	if s.HistoryLimit < 0 {
		return errors.Errorf("history limit must not be negative, got %d", s.HistoryLimit)
	}
	return nil
}
