package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbrag/internal/core/domain"
)

// chromeHeight is the number of rows used by the input box and status bar.
const chromeHeight = 5

// Turn is one question and its outcome in the transcript.
type Turn struct {
	Question string
	Response *domain.QueryResponse
	Hits     []domain.SearchHit
	Err      error
	Pending  bool
}

// App is the chat TUI following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles   *styles.Styles
	keymap   *keymap.KeyMap
	input    *input.QuestionInput
	status   *status.Bar
	viewport viewport.Model
	spinner  spinner.Model

	// k is the number of chunks retrieved per question.
	k int

	transcript []Turn
	thinking   bool
	asked      time.Time

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has received its first size.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Spinner

	return &App{
		ports:    ports,
		ctx:      context.Background(),
		styles:   s,
		keymap:   km,
		input:    input.NewQuestionInput(s),
		status:   status.NewBar(s, km),
		viewport: viewport.New(80, 20),
		spinner:  sp,
		k:        domain.DefaultQueryK,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// WithK sets how many chunks are retrieved per question. Values <= 0 keep the default.
func (a *App) WithK(k int) *App {
	if k > 0 {
		a.k = k
	}
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("kbrag - Ask your documents"),
		a.input.Init(),
		a.loadStats(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case spinner.TickMsg:
		if !a.thinking {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.QuestionAsked:
		return a, a.ask(msg.Question)

	case messages.AnswerReceived:
		a.receive(msg)
		return a, nil

	case messages.StatsLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			a.status.Fail(msg.Err)
			return a, nil
		}
		if msg.Stats != nil {
			a.status.SetIndex(msg.Stats.Chunks, msg.Stats.EmbeddingModel)
		}
		return a, nil

	case messages.ErrorOccurred:
		a.err = msg.Err
		a.status.Fail(msg.Err)
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, a.keymap.Quit):
		return a, tea.Quit

	case keymap.Matches(k, a.keymap.Help):
		a.status.ToggleHelp()
		return a, nil

	case keymap.Matches(k, a.keymap.Clear):
		a.transcript = nil
		a.status.Reset()
		a.refresh()
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollUp):
		a.viewport.SetYOffset(a.viewport.YOffset - a.viewport.Height/2)
		return a, nil

	case keymap.Matches(k, a.keymap.ScrollDown):
		a.viewport.SetYOffset(a.viewport.YOffset + a.viewport.Height/2)
		return a, nil

	case keymap.Matches(k, a.keymap.Send):
		question := a.input.Question()
		if question == "" || a.thinking {
			return a, nil
		}
		a.input.Reset()
		a.transcript = append(a.transcript, Turn{Question: question, Pending: true})
		a.thinking = true
		a.err = nil
		a.asked = time.Now()
		a.status.Thinking()
		a.refresh()
		return a, tea.Batch(a.spinner.Tick, a.ask(question))
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// ask answers a question with the LLM when one is configured and falls back
// to plain retrieval otherwise.
func (a *App) ask(question string) tea.Cmd {
	ctx := a.ctx
	query := a.ports.Query
	k := a.k
	return func() tea.Msg {
		if !query.HasLLM() {
			hits, err := query.Search(ctx, question, k)
			return messages.AnswerReceived{Question: question, Hits: hits, Err: err}
		}
		resp, err := query.Query(ctx, domain.QueryRequest{Question: question, K: k})
		return messages.AnswerReceived{Question: question, Response: resp, Err: err}
	}
}

func (a *App) loadStats() tea.Cmd {
	ctx := a.ctx
	query := a.ports.Query
	return func() tea.Msg {
		stats, err := query.Stats(ctx)
		return messages.StatsLoaded{Stats: stats, Err: err}
	}
}

// receive settles the newest pending turn for the question.
func (a *App) receive(msg messages.AnswerReceived) {
	a.thinking = false
	for i := len(a.transcript) - 1; i >= 0; i-- {
		t := &a.transcript[i]
		if !t.Pending || t.Question != msg.Question {
			continue
		}
		t.Pending = false
		t.Response = msg.Response
		t.Hits = msg.Hits
		t.Err = msg.Err
		break
	}

	switch {
	case msg.Err != nil:
		a.err = msg.Err
		a.status.Fail(msg.Err)
	case msg.Response != nil:
		a.status.Answered(len(msg.Response.Sources), time.Since(a.asked))
	default:
		a.status.Answered(len(msg.Hits), time.Since(a.asked))
	}
	a.refresh()
}

func (a *App) refresh() {
	a.viewport.SetContent(a.renderTranscript())
	a.viewport.GotoBottom()
}

func (a *App) renderTranscript() string {
	if len(a.transcript) == 0 {
		return a.styles.Muted.Render("Ask a question about the indexed documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(a.width-4, 20))
	var b strings.Builder
	for i, t := range a.transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(a.styles.Question.Render("> " + t.Question))
		b.WriteString("\n")

		switch {
		case t.Pending:
			b.WriteString(a.styles.Muted.Render("  " + a.spinner.View() + " thinking"))
			b.WriteString("\n")
		case t.Err != nil:
			b.WriteString(a.styles.Error.Render("  " + t.Err.Error()))
			b.WriteString("\n")
		case t.Response != nil:
			b.WriteString(a.styles.Answer.Render(wrap.Render(t.Response.Answer)))
			b.WriteString("\n")
			for _, src := range t.Response.Sources {
				b.WriteString(a.renderSource(src.ID, src.Score))
			}
		default:
			if len(t.Hits) == 0 {
				b.WriteString(a.styles.Answer.Render(domain.NoResultsAnswer))
				b.WriteString("\n")
			}
			for _, hit := range t.Hits {
				src := domain.NewSource(hit)
				b.WriteString(a.renderSource(src.ID, src.Score))
				b.WriteString(a.styles.Muted.Render(wrap.Render("    " + src.Content)))
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func (a *App) renderSource(id string, score float64) string {
	return a.styles.SourceID.Render(id) + " " +
		a.styles.Score.Render(fmt.Sprintf("(%.4f)", score)) + "\n"
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}
	if a.thinking {
		a.viewport.SetContent(a.renderTranscript())
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.viewport.View(),
		a.input.View(),
		a.status.View(),
	)
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	a.viewport.Width = width
	a.viewport.Height = max(height-chromeHeight, 1)
	a.input.SetWidth(width)
	a.status.SetWidth(width)
	a.refresh()
}

// Transcript returns the conversation so far.
func (a *App) Transcript() []Turn {
	return a.transcript
}

// Thinking reports whether a question is awaiting its answer.
func (a *App) Thinking() bool {
	return a.thinking
}

// Status returns the status bar state.
func (a *App) Status() status.State {
	return a.status.State()
}

// HelpVisible reports whether the full key hints are shown.
func (a *App) HelpVisible() bool {
	return a.status.HelpVisible()
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been sized.
func (a *App) Ready() bool {
	return a.ready
}
