package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/pkg/errors"
)

// Markdown styles accepted by NewMarkdownRenderer. StyleAuto picks dark or
// light from the terminal background.
const (
	StyleAuto  = "auto"
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty"
)

// streamed replies pass through many intermediate contents
const maxCachedRenders = 256

// MarkdownRenderer renders assistant replies for the terminal and remembers
// the output for content it has seen at the current width.
type MarkdownRenderer struct {
	style    string
	width    int
	renderer *glamour.TermRenderer
	cache    map[string]string
}

func NewMarkdownRenderer(style string, width int) (*MarkdownRenderer, error) {
	if style == "" {
		style = StyleAuto
	}
	m := &MarkdownRenderer{style: style, cache: map[string]string{}}
	if err := m.SetWidth(width); err != nil {
		return nil, err
	}
	return m, nil
}

// SetWidth rebuilds the renderer for a new wrap width. Widths below 20 are
// raised to 20.
func (m *MarkdownRenderer) SetWidth(width int) error {
	if width < 20 {
		width = 20
	}
	if m.renderer != nil && width == m.width {
		return nil
	}

	styleOpt := glamour.WithStandardStyle(m.style)
	if m.style == StyleAuto {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return errors.Wrapf(err, "create markdown renderer with style %q", m.style)
	}
	m.renderer = r
	m.width = width
	m.cache = map[string]string{}
	return nil
}

// Render returns text rendered as markdown, or text itself when rendering
// fails.
func (m *MarkdownRenderer) Render(text string) string {
	if out, ok := m.cache[text]; ok {
		return out
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	out = strings.Trim(out, "\n")
	if len(m.cache) >= maxCachedRenders {
		m.cache = map[string]string{}
	}
	m.cache[text] = out
	return out
}
