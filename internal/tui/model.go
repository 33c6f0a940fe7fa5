package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"lecturetutor/internal/domain"
	"lecturetutor/internal/pipeline"
)

// NoMemoryMessage is shown when a question arrives before any lecture is loaded.
const NoMemoryMessage = "No lecture memory found. Please process a lecture."

// LecturePort is the TUI-facing subset of the lecture service.
type LecturePort interface {
	Ask(ctx context.Context, question string) domain.Answer
	Process(ctx context.Context, from pipeline.Stage, progress pipeline.ProgressFunc) error
	Reload(ctx context.Context) error
	Ready() bool
	Chunks() int
	Summary() string
}

type answerMsg struct {
	question string
	answer   domain.Answer
}

type progressMsg struct {
	stage       pipeline.Stage
	done, total int
}

type processDoneMsg struct{ err error }

type reloadedMsg struct {
	err     error
	ready   bool
	chunks  int
	summary string
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	ctx      context.Context
	service  LecturePort
	from     pipeline.Stage
	input    textinput.Model
	viewport viewport.Model
	messages []domain.Message
	summary  string
	status   string
	memory   bool
	busy     bool
	ready    bool
	events   <-chan tea.Msg
	// autoFrom starts a processing run once the initial load finishes.
	autoFrom pipeline.Stage
}

// New creates a chat model. ctrl+p reprocesses starting at from.
func New(ctx context.Context, service LecturePort, from pipeline.Stage) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about the lecture and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if from == "" {
		from = pipeline.StageTranscribe
	}
	return Model{
		ctx:      ctx,
		service:  service,
		from:     from,
		input:    ti,
		viewport: vp,
		status:   "Loading lecture memory...",
		busy:     true,
	}
}

// ProcessOnStart makes the model run the pipeline from stage right after the
// initial load, as if ctrl+p had been pressed.
func (m Model) ProcessOnStart(stage pipeline.Stage) Model {
	m.autoFrom = stage
	return m
}

// Init starts the cursor blink and the initial load of lecture memory.
func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.reloadCmd()) }

// Update handles key, window and async result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		m.status = "Ready."
		m.messages = append(m.messages, domain.Message{Role: domain.RoleAssistant, Content: msg.answer.Short, Context: msg.answer.Full})
		m.refresh()
		return m, nil

	case progressMsg:
		if msg.done < msg.total {
			m.status = fmt.Sprintf("Processing %d/%d: %s...", msg.done+1, msg.total, msg.stage)
		} else {
			m.status = "Processing complete."
		}
		return m, waitForEvent(m.events)

	case processDoneMsg:
		m.events = nil
		if msg.err != nil {
			m.busy = false
			m.status = "Processing failed."
			m.system(msg.err.Error())
			return m, nil
		}
		m.status = "Reloading lecture memory..."
		return m, m.reloadCmd()

	case reloadedMsg:
		m.busy = false
		if msg.err != nil {
			m.memory = false
			m.status = "Lecture memory unavailable."
			m.system(msg.err.Error())
			return m.processPending()
		}
		m.memory = msg.ready
		m.summary = msg.summary
		if msg.ready {
			m.status = fmt.Sprintf("Lecture loaded (%d chunks). Ask away.", msg.chunks)
		} else {
			m.status = "No lecture yet. Press ctrl+p to process the audio."
		}
		m.refresh()
		return m.processPending()

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyCtrlP:
			if m.busy {
				return m, nil
			}
			return m.startProcess()
		case tea.KeyEnter:
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.messages = append(m.messages, domain.Message{Role: domain.RoleUser, Content: q})
			if !m.memory {
				m.system(NoMemoryMessage)
				return m, nil
			}
			m.busy = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.askCmd(q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("Lecture Tutor")
	summary := summaryStyle.Width(m.viewport.Width).Render(m.summaryLine())
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status + "  (enter: ask, ctrl+p: process lecture, esc: quit)")
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) summaryLine() string {
	if m.summary == "" {
		return "No summary available."
	}
	return m.summary
}

func (m *Model) system(text string) {
	m.messages = append(m.messages, domain.Message{Role: domain.RoleSystem, Content: text})
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderMessages(m.messages, m.viewport.Width))
	m.viewport.GotoBottom()
}

// processPending starts the run requested by ProcessOnStart, if any.
func (m Model) processPending() (tea.Model, tea.Cmd) {
	if m.autoFrom == "" {
		return m, nil
	}
	from := m.autoFrom
	m.autoFrom = ""
	return m.startProcessFrom(from)
}

func (m Model) startProcess() (tea.Model, tea.Cmd) {
	return m.startProcessFrom(m.from)
}

func (m Model) startProcessFrom(from pipeline.Stage) (tea.Model, tea.Cmd) {
	events := make(chan tea.Msg, len(pipeline.Stages)+2)
	m.events = events
	m.busy = true
	m.status = "Processing lecture..."
	ctx, svc := m.ctx, m.service
	go func() {
		defer close(events)
		err := svc.Process(ctx, from, func(st pipeline.Stage, done, total int) {
			events <- progressMsg{stage: st, done: done, total: total}
		})
		events <- processDoneMsg{err: err}
	}()
	return m, waitForEvent(events)
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) askCmd(q string) tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		return answerMsg{question: q, answer: svc.Ask(ctx, q)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	ctx, svc := m.ctx, m.service
	return func() tea.Msg {
		if err := svc.Reload(ctx); err != nil {
			return reloadedMsg{err: err}
		}
		return reloadedMsg{ready: svc.Ready(), chunks: svc.Chunks(), summary: svc.Summary()}
	}
}
