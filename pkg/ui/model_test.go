package ui

import (
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/resume-chat/pkg/chat"
	"github.com/go-go-golems/resume-chat/pkg/transport"
)

type fakeTransport struct {
	mu      sync.Mutex
	open    bool
	sent    []string
	handler transport.FrameHandler
}

type fakeListener struct {
	f *fakeTransport
}

func (l fakeListener) Detach() {
	l.f.mu.Lock()
	l.f.handler = nil
	l.f.mu.Unlock()
}

func (f *fakeTransport) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeTransport) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeTransport) Attach(h transport.FrameHandler) (transport.Listener, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
	return fakeListener{f: f}, nil
}

func (f *fakeTransport) deliver(payload string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(payload)
	}
}

func (f *fakeTransport) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type harness struct {
	ft      *fakeTransport
	rec     *chat.Reconciler
	fwd     *ChangeForwarder
	model   Model
	copied  []string
	copyErr error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{ft: &fakeTransport{open: true}, fwd: NewChangeForwarder()}
	h.rec = chat.NewReconciler(h.ft, chat.WithOnChange(h.fwd.Notify))
	m, err := NewModel(h.rec, h.fwd.C(), Options{
		Endpoint:      "ws://localhost:8765",
		MarkdownStyle: StyleNoTTY,
		Clipboard: func(s string) error {
			if h.copyErr != nil {
				return h.copyErr
			}
			h.copied = append(h.copied, s)
			return nil
		},
	})
	require.NoError(t, err)
	h.model = m
	h.update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) update(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) typeText(s string) {
	h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) pressEnter() tea.Cmd {
	return h.update(tea.KeyMsg{Type: tea.KeyEnter})
}

// drain applies a pending change signal the way the program would.
func (h *harness) drain() {
	select {
	case <-h.fwd.C():
		h.update(changedMsg{})
	default:
	}
}

func TestEnterSubmitsDraft(t *testing.T) {
	h := newHarness(t)
	h.typeText("What do you work on?")
	require.Equal(t, "What do you work on?", h.rec.Draft())

	h.pressEnter()
	require.Empty(t, h.model.Input())
	require.Equal(t, 1, h.ft.sentCount())

	snap := h.model.Snapshot()
	require.True(t, snap.IsLoading())
	require.Len(t, snap.Messages, 1)
	require.Equal(t, chat.RoleUser, snap.Messages[0].Role)
	require.Equal(t, "What do you work on?", snap.Messages[0].Content)
	require.Contains(t, h.model.View(), "Thinking")
}

func TestEnterWhileLoadingWarns(t *testing.T) {
	h := newHarness(t)
	h.typeText("first")
	h.pressEnter()

	h.typeText("second")
	cmd := h.pressEnter()
	require.NotNil(t, cmd)
	require.Equal(t, waitWarning, h.model.Warning())
	require.Equal(t, "second", h.model.Input())
	require.Equal(t, 1, h.ft.sentCount())
	require.Contains(t, h.model.View(), waitWarning)

	// a stale timer does not clear a newer warning
	h.update(clearWarningMsg{id: h.model.warningID - 1})
	require.Equal(t, waitWarning, h.model.Warning())
	h.update(clearWarningMsg{id: h.model.warningID})
	require.Empty(t, h.model.Warning())
}

func TestWhitespaceDraftIsNotSent(t *testing.T) {
	h := newHarness(t)
	h.typeText("   ")
	h.pressEnter()
	require.Zero(t, h.ft.sentCount())
	require.Empty(t, h.model.Snapshot().Messages)
}

func TestReplyFramesReachTheScreen(t *testing.T) {
	h := newHarness(t)
	h.typeText("hi")
	h.pressEnter()
	h.drain()

	h.ft.deliver("Hello ")
	h.ft.deliver("there")
	h.drain()
	snap := h.model.Snapshot()
	require.Len(t, snap.Messages, 2)
	require.Equal(t, "Hello there", snap.Messages[1].Content)
	require.True(t, snap.IsLoading())

	h.ft.deliver("[END]")
	h.drain()
	require.False(t, h.model.Snapshot().IsLoading())
	view := h.model.View()
	require.NotContains(t, view, "Thinking")
	require.Contains(t, view, "Hello there")

	h.typeText("next")
	h.pressEnter()
	require.Equal(t, 2, h.ft.sentCount())
	require.Empty(t, h.model.Warning())
}

func TestErrorFrameShownAsAnswer(t *testing.T) {
	h := newHarness(t)
	h.typeText("hi")
	h.pressEnter()
	h.ft.deliver(`{"type":"error","message":"Something broke"}`)
	h.ft.deliver("[END]")
	h.drain()

	msgs := h.model.Snapshot().Messages
	require.Len(t, msgs, 2)
	require.Equal(t, chat.RoleAssistant, msgs[1].Role)
	require.Contains(t, h.model.View(), "Something broke")
}

func TestCopyLastAnswer(t *testing.T) {
	h := newHarness(t)
	h.update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, "No answer to copy yet.", h.model.Status())
	require.Empty(t, h.copied)

	h.typeText("hi")
	h.pressEnter()
	h.ft.deliver(`{"type":"chat_response","message":"first"}`)
	h.ft.deliver(`{"type":"chat_response","message":"second"}`)
	h.ft.deliver("[END]")
	h.drain()

	h.update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Equal(t, []string{"second"}, h.copied)
	require.Contains(t, h.model.Status(), "Copied")

	h.copyErr = errors.New("no clipboard")
	h.update(tea.KeyMsg{Type: tea.KeyCtrlY})
	require.Contains(t, h.model.Status(), "no clipboard")
}

func TestDisconnectBlocksSubmit(t *testing.T) {
	h := newHarness(t)
	h.update(disconnectedMsg{})
	require.Contains(t, h.model.View(), "disconnected")

	h.ft.mu.Lock()
	h.ft.open = false
	h.ft.mu.Unlock()

	h.typeText("hello?")
	h.pressEnter()
	require.Equal(t, notConnectedWarning, h.model.Warning())
	require.Zero(t, h.ft.sentCount())
}

func TestGreetingIsShownFirst(t *testing.T) {
	ft := &fakeTransport{open: true}
	rec := chat.NewReconciler(ft)
	m, err := NewModel(rec, nil, Options{Greeting: "Hi, ask me anything.", MarkdownStyle: StyleNoTTY})
	require.NoError(t, err)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	view := next.(Model).View()
	require.Contains(t, view, "Hi, ask me anything.")
	require.NotContains(t, view, "No messages yet")
}

func TestQuitKeys(t *testing.T) {
	h := newHarness(t)
	cmd := h.update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	require.True(t, ok)
}

func TestChangeForwarderCoalesces(t *testing.T) {
	f := NewChangeForwarder()
	for i := 0; i < 5; i++ {
		f.Notify(chat.Snapshot{})
	}
	require.Len(t, f.C(), 1)
	<-f.C()
	require.Empty(t, f.C())
}

func TestMarkdownRenderer(t *testing.T) {
	md, err := NewMarkdownRenderer(StyleNoTTY, 40)
	require.NoError(t, err)

	out := md.Render("# Projects\n\n- **resume-chat**")
	require.Contains(t, out, "Projects")
	require.Contains(t, out, "resume-chat")
	require.False(t, strings.HasSuffix(out, "\n"))

	require.NoError(t, md.SetWidth(10))
	require.Equal(t, 20, md.width)

	_, err = NewMarkdownRenderer("no-such-style", 40)
	require.Error(t, err)
}
