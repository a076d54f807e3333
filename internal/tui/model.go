package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rag/internal/service"
)

// ChatPort is the TUI-facing subset of the pipeline.
type ChatPort interface {
	Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Exchange, error)
}

const sessionID = "tui"

// Model is the Bubble Tea model for the chat application.
type Model struct {
	pipeline   ChatPort
	input      textinput.Model
	viewport   viewport.Model
	transcript []entry
	summary    string
	status     string
	ready      bool
}

type entry struct {
	question string
	answer   string
	sources  []string
}

// New creates a new chat model. The summary line describes the ingested
// corpus and stays visible above the transcript.
func New(pipeline ChatPort, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{pipeline: pipeline, input: ti, viewport: vp, summary: summary, status: "Corpus loaded. Ask away."}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, input box, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m = m.ask(q)
				m.input.SetValue("")
				m.viewport.SetContent(m.renderTranscript())
				m.viewport.GotoBottom()
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

func (m Model) ask(question string) Model {
	exchange, err := m.pipeline.Ask(context.Background(), question, service.AskOptions{SessionID: sessionID})
	if err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	e := entry{question: question, answer: exchange.Answer}
	for _, s := range exchange.Sources {
		title := s.Segment.Metadata["title"]
		if title == "" {
			title = s.Segment.DocumentID
		}
		e.sources = append(e.sources, fmt.Sprintf("%s (score %.3f)", title, s.Score))
	}
	m.transcript = append(m.transcript, e)
	m.status = fmt.Sprintf("Answered with %d sources", len(e.sources))
	return m
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("RAG Chat")
	summary := summaryStyle.Render(m.summary)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(questionStyle.Render("You: "+e.question) + "\n")
		b.WriteString(e.answer)
		if len(e.sources) > 0 {
			b.WriteString("\n" + sourceStyle.Render("Sources: "+strings.Join(e.sources, "; ")))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
