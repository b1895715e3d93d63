// Package status renders the one-line footer of the chat screen.
package status

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/styles"
)

// State is the phase of the current question.
type State string

const (
	StateReady    State = "ready"
	StateThinking State = "thinking"
	StateError    State = "error"
)

// Bar shows index size and the outcome of the last question on the left,
// key hints on the right. It is passive: the app calls its event methods.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap
	width  int

	state State
	err   string
	help  bool

	chunks int
	model  string

	sources int
	took    time.Duration
}

// NewBar returns a ready bar. Nil arguments take the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, width: 80, state: StateReady}
}

// SetIndex records the index size and embedding model from the stats call.
func (b *Bar) SetIndex(chunks int, model string) {
	b.chunks = chunks
	b.model = model
}

// Thinking marks a question as in flight.
func (b *Bar) Thinking() {
	b.state = StateThinking
	b.err = ""
}

// Answered marks the question done with the number of sources shown.
func (b *Bar) Answered(sources int, took time.Duration) {
	b.state = StateReady
	b.sources = sources
	b.took = took
}

// Fail shows err until the next question or Reset.
func (b *Bar) Fail(err error) {
	b.state = StateError
	b.err = "unknown error"
	if err != nil {
		b.err = err.Error()
	}
	b.sources = 0
	b.took = 0
}

// ToggleHelp switches between short and full key hints and reports the new mode.
func (b *Bar) ToggleHelp() bool {
	b.help = !b.help
	return b.help
}

// Reset forgets the last question. The index figures are kept.
func (b *Bar) Reset() {
	b.state = StateReady
	b.err = ""
	b.sources = 0
	b.took = 0
}

func (b *Bar) State() State      { return b.state }
func (b *Bar) HelpVisible() bool { return b.help }
func (b *Bar) Chunks() int       { return b.chunks }
func (b *Bar) Sources() int      { return b.sources }
func (b *Bar) Width() int        { return b.width }
func (b *Bar) SetWidth(w int)    { b.width = w }

// View renders the bar at its width.
func (b *Bar) View() string {
	left, right := b.summary(), b.hints()
	gap := max(b.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (b *Bar) summary() string {
	switch b.state {
	case StateThinking:
		return b.styles.Muted.Render("Thinking...")
	case StateError:
		return b.styles.Error.Render("Error: " + b.err)
	}

	parts := []string{fmt.Sprintf("%d chunks indexed", b.chunks)}
	if b.model != "" {
		parts[0] += " (" + b.model + ")"
	}
	if b.sources > 0 {
		parts = append(parts, fmt.Sprintf("%d sources in %s", b.sources, b.took.Round(100*time.Millisecond)))
	}
	return b.styles.Muted.Render(strings.Join(parts, " | "))
}

func (b *Bar) hints() string {
	bindings := b.keymap.ShortHelp()
	if b.help {
		bindings = nil
		for _, group := range b.keymap.FullHelp() {
			bindings = append(bindings, group...)
		}
	}

	hints := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		hints = append(hints, describe(kb))
	}
	return b.styles.Muted.Render(strings.Join(hints, "  "))
}

func describe(kb key.Binding) string {
	h := kb.Help()
	return h.Key + " " + h.Desc
}
