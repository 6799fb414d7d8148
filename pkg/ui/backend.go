package ui

import (
	"github.com/go-go-golems/resume-chat/pkg/chat"
)

// Backend is the conversation the chat model drives. *chat.Reconciler
// implements it.
type Backend interface {
	Submit(text string) bool
	SetDraft(text string)
	Snapshot() chat.Snapshot
}

var _ Backend = (*chat.Reconciler)(nil)

// ChangeForwarder turns reconciler change callbacks into a signal the bubbletea
// program can wait on. Notifications coalesce: a burst of changes wakes the
// program once, and it then reads a fresh snapshot. Notify never blocks, so it
// is safe to call from the transport read loop.
type ChangeForwarder struct {
	ch chan struct{}
}

func NewChangeForwarder() *ChangeForwarder {
	return &ChangeForwarder{ch: make(chan struct{}, 1)}
}

func (f *ChangeForwarder) Notify(chat.Snapshot) {
	select {
	case f.ch <- struct{}{}:
	default:
	}
}

func (f *ChangeForwarder) C() <-chan struct{} {
	return f.ch
}
