package server

import "github.com/go-go-golems/resume-chat/pkg/chat"

// history holds the turns of one connection, trimmed to the newest limit
// entries. A limit of zero keeps nothing.
type history struct {
	limit int
	turns []Turn
}

func newHistory(limit int) *history {
	return &history{limit: limit}
}

func (h *history) add(role chat.Role, content string) {
	h.turns = append(h.turns, Turn{Role: role, Content: content})
	if over := len(h.turns) - h.limit; over > 0 {
		h.turns = append([]Turn(nil), h.turns[over:]...)
	}
}

func (h *history) snapshot() []Turn {
	return append([]Turn(nil), h.turns...)
}
