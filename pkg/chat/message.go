package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry. A user message and every assistant entry
// answering it share the same ID.
type Message struct {
	ID      string `json:"id" yaml:"id"`
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Transcript is an append-only, arrival-ordered list of messages. Entries are
// never removed or reordered; only the content of an existing entry may grow.
// It is not safe for concurrent use.
type Transcript struct {
	messages []Message
}

// Append adds m and returns its index.
func (t *Transcript) Append(m Message) int {
	t.messages = append(t.messages, m)
	return len(t.messages) - 1
}

// AppendContent grows the content of the entry at index i in place.
func (t *Transcript) AppendContent(i int, text string) {
	if i < 0 || i >= len(t.messages) {
		return
	}
	t.messages[i].Content += text
}

func (t *Transcript) Len() int {
	return len(t.messages)
}

func (t *Transcript) At(i int) (Message, bool) {
	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[i], true
}

func (t *Transcript) Last() (Message, bool) {
	return t.At(len(t.messages) - 1)
}

// Messages returns a copy of the entries.
func (t *Transcript) Messages() []Message {
	return append([]Message(nil), t.messages...)
}
