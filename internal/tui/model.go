// Package tui is the interactive question-answering interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pdfqa/internal/domain"
)

// AnswerPort is the TUI-facing subset of the service.
type AnswerPort interface {
	Answer(ctx context.Context, query, collection string, strategy domain.Strategy, model string, emit func(delta string)) error
	Models() []string
}

type deltaMsg string

type doneMsg struct{ err error }

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service    AnswerPort
	collection string
	strategies []domain.Strategy
	strategy   int
	models     []string
	model      int
	input      textinput.Model
	viewport   viewport.Model
	answer     string
	status     string
	streaming  bool
	deltas     chan tea.Msg
	cancel     context.CancelFunc
	ready      bool
}

// New creates a new TUI model over an ingested collection, starting on the
// given search strategy and generator model. An unknown or empty model name
// selects the first available generator.
func New(service AnswerPort, collection string, strategy domain.Strategy, model string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the document and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	strategies := []domain.Strategy{domain.StrategyHybrid, domain.StrategyKeyword, domain.StrategySemantic}
	start := 0
	for i, s := range strategies {
		if s == strategy {
			start = i
		}
	}
	models := service.Models()
	modelIdx := 0
	for i, m := range models {
		if m == model {
			modelIdx = i
		}
	}
	return Model{
		service:    service,
		collection: collection,
		strategies: strategies,
		strategy:   start,
		models:     models,
		model:      modelIdx,
		input:      ti,
		viewport:   vp,
		status:     "Ready. Tab cycles strategy, shift+tab cycles model.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and stream events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around answer and query boxes
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + mode line, status, query box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-ah)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil
	case deltaMsg:
		m.answer += string(msg)
		m.viewport.SetContent(m.renderAnswer())
		m.viewport.GotoBottom()
		return m, waitForStream(m.deltas)
	case doneMsg:
		m.streaming = false
		m.cancel = nil
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = "Done. Ask another question."
		}
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.streaming {
				return m.startQuery(q)
			}
			return m, nil
		case "esc":
			if m.streaming && m.cancel != nil {
				m.cancel()
				m.status = "Cancelled."
				return m, nil
			}
		case "tab":
			if !m.streaming {
				m.strategy = (m.strategy + 1) % len(m.strategies)
				return m, nil
			}
		case "shift+tab":
			if !m.streaming && len(m.models) > 0 {
				m.model = (m.model + 1) % len(m.models)
				return m, nil
			}
		case "up":
			m.viewport.LineUp(1)
			return m, nil
		case "down":
			m.viewport.LineDown(1)
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startQuery launches the answer stream in the background and begins
// pumping its messages into the update loop.
func (m Model) startQuery(query string) (Model, tea.Cmd) {
	ch := make(chan tea.Msg, 64)
	ctx, cancel := context.WithCancel(context.Background())
	m.deltas = ch
	m.cancel = cancel
	m.streaming = true
	m.answer = ""
	m.status = fmt.Sprintf("Answering %q...", query)
	m.viewport.SetContent(m.renderAnswer())

	strategy := m.strategies[m.strategy]
	model := ""
	if len(m.models) > 0 {
		model = m.models[m.model]
	}
	go func() {
		err := m.service.Answer(ctx, query, m.collection, strategy, model, func(delta string) {
			ch <- deltaMsg(delta)
		})
		ch <- doneMsg{err: err}
		close(ch)
	}()
	return m, waitForStream(ch)
}

func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

// View renders the TUI layout and the streamed answer.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("PDF Q&A: " + m.collection)
	model := "none"
	if len(m.models) > 0 {
		model = m.models[m.model]
	}
	mode := modeStyle.Render(fmt.Sprintf("strategy: %s   model: %s", m.strategies[m.strategy], model))
	answerBox := answerBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + mode + "\n" + answerBox + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer == "" {
		if m.streaming {
			return "Thinking..."
		}
		return "No answer yet."
	}
	return m.answer
}

var (
	answerBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	modeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
