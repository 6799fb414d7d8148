// Package ui is the terminal chat interface: a scrolling transcript, a
// multi-line input and a status line, driven by a Backend.
package ui

import (
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/resume-chat/pkg/chat"
)

const (
	waitWarning         = "Please wait for the model to finish its response!"
	notConnectedWarning = "Not connected to the chat server."

	defaultWarningTimeout = 3 * time.Second

	// header, activity line, input and help around the transcript
	chromeHeight = 1 + 1 + inputHeight + 1
	inputHeight  = 3
)

type Options struct {
	// Endpoint is shown in the header.
	Endpoint string
	// Greeting, when set, is shown as the first assistant entry.
	Greeting string
	// Disconnected is closed when the connection is lost.
	Disconnected <-chan struct{}
	// MarkdownStyle is one of the Style constants.
	MarkdownStyle string
	// Clipboard receives copied text. Defaults to the system clipboard.
	Clipboard func(string) error
	// WarningTimeout is how long transient warnings stay visible.
	WarningTimeout time.Duration
}

type changedMsg struct{}

type disconnectedMsg struct{}

type clearWarningMsg struct {
	id int
}

type keyMap struct {
	Submit   key.Binding
	Newline  key.Binding
	Copy     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Newline:  key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"), key.WithHelp("alt+enter", "newline")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "copy answer")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Newline, k.Copy, k.PageUp, k.PageDown, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Model is the bubbletea model of the chat screen. The transcript shown is
// always a snapshot read from the backend; the model never edits it.
type Model struct {
	backend Backend
	changes <-chan struct{}
	opts    Options
	keys    keyMap

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	md       *MarkdownRenderer

	snap      chat.Snapshot
	connected bool
	warning   string
	warningID int
	status    string
	width     int
	height    int
	ready     bool
}

// NewModel builds the chat screen. changes should receive a value after every
// backend change; see ChangeForwarder.
func NewModel(b Backend, changes <-chan struct{}, opts Options) (Model, error) {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.WarningTimeout <= 0 {
		opts.WarningTimeout = defaultWarningTimeout
	}
	md, err := NewMarkdownRenderer(opts.MarkdownStyle, 76)
	if err != nil {
		return Model{}, err
	}

	keys := defaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Ask about experience, skills or recent projects..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetHeight(inputHeight)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	m := Model{
		backend:   b,
		changes:   changes,
		opts:      opts,
		keys:      keys,
		viewport:  viewport.New(80, 10),
		input:     ta,
		spinner:   sp,
		help:      help.New(),
		md:        md,
		snap:      b.Snapshot(),
		connected: true,
	}
	m.input.SetValue(m.snap.Draft)
	m.refresh()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForChange(m.changes),
		waitForDisconnect(m.opts.Disconnected),
	)
}

// waitForChange delivers one changedMsg per wake up of ch.
func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func waitForDisconnect(done <-chan struct{}) tea.Cmd {
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return disconnectedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m.submit()
		case key.Matches(msg, m.keys.Copy):
			return m.copyLastAnswer(), nil
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.backend.SetDraft(m.input.Value())
		return m, cmd

	case changedMsg:
		m.snap = m.backend.Snapshot()
		m.refresh()
		return m, waitForChange(m.changes)

	case disconnectedMsg:
		m.connected = false
		m.status = "Connection closed. Restart to reconnect."
		return m, nil

	case clearWarningMsg:
		if msg.id == m.warningID {
			m.warning = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	// the local snapshot may lag behind the backend
	if m.backend.Snapshot().IsLoading() {
		return m.warn(waitWarning)
	}
	if !m.connected {
		return m.warn(notConnectedWarning)
	}
	text := m.input.Value()
	if strings.TrimSpace(text) == "" {
		return m, nil
	}

	m.backend.SetDraft(text)
	if !m.backend.Submit("") {
		if m.backend.Snapshot().IsLoading() {
			return m.warn(waitWarning)
		}
		return m.warn(notConnectedWarning)
	}
	m.input.Reset()
	m.status = ""
	m.snap = m.backend.Snapshot()
	m.refresh()
	return m, nil
}

func (m Model) warn(text string) (Model, tea.Cmd) {
	m.warningID++
	m.warning = text
	id := m.warningID
	return m, tea.Tick(m.opts.WarningTimeout, func(time.Time) tea.Msg {
		return clearWarningMsg{id: id}
	})
}

func (m Model) copyLastAnswer() Model {
	snap := m.backend.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		msg := snap.Messages[i]
		if msg.Role != chat.RoleAssistant || msg.Content == "" {
			continue
		}
		if err := m.opts.Clipboard(msg.Content); err != nil {
			m.status = "Copy failed: " + err.Error()
		} else {
			m.status = "Copied the last answer to the clipboard."
		}
		return m
	}
	m.status = "No answer to copy yet."
	return m
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.ready = true

	m.viewport.Width = width
	m.viewport.Height = max(height-chromeHeight, 1)
	m.input.SetWidth(width)
	m.help.Width = width
	if err := m.md.SetWidth(width - 4); err != nil {
		m.status = err.Error()
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	var parts []string
	if g := strings.TrimSpace(m.opts.Greeting); g != "" {
		parts = append(parts, assistantRoleStyle.Render("Assistant")+"\n"+m.md.Render(g))
	}
	for _, msg := range m.snap.Messages {
		switch msg.Role {
		case chat.RoleUser:
			text := userTextStyle.Width(max(m.viewport.Width, 20)).Render(msg.Content)
			parts = append(parts, userRoleStyle.Render("You")+"\n"+text)
		default:
			parts = append(parts, assistantRoleStyle.Render("Assistant")+"\n"+m.md.Render(msg.Content))
		}
	}
	if len(parts) == 0 {
		return dimStyle.Render("No messages yet. Type a question and press enter.")
	}
	return strings.Join(parts, "\n\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Starting..."
	}

	state := connectedStyle.Render("connected")
	if !m.connected {
		state = disconnectedStyle.Render("disconnected")
	}
	header := statusBarStyle.Width(m.width).Render(
		titleStyle.Render("resume-chat") + dimStyle.Render(m.opts.Endpoint) + " " + state,
	)

	var activity string
	switch {
	case m.warning != "":
		activity = warningStyle.Render(m.warning)
	case m.snap.IsLoading():
		activity = m.spinner.View() + dimStyle.Render(" Thinking...")
	case m.status != "":
		activity = dimStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.viewport.View(),
		activity,
		m.input.View(),
		helpStyle.Render(m.help.View(m.keys)),
	)
}

// Snapshot is the transcript state currently on screen.
func (m Model) Snapshot() chat.Snapshot {
	return m.snap
}

// Warning is the transient warning currently shown, if any.
func (m Model) Warning() string {
	return m.warning
}

func (m Model) Status() string {
	return m.status
}

func (m Model) Input() string {
	return m.input.Value()
}
