// Package tui is the interactive watch surface: one URL input, one job at a
// time, the finished card drawn in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sells-group/preview-cli/internal/card"
	"github.com/sells-group/preview-cli/internal/orchestrator"
	"github.com/sells-group/preview-cli/internal/render"
)

const updateBuffer = 64

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// updateMsg carries one surface update into the bubbletea loop.
type updateMsg struct {
	update orchestrator.Update
}

// Model is the bubbletea model for the watch command.
type Model struct {
	ctx     context.Context
	surface *orchestrator.Surface
	updates chan orchestrator.Update

	input   textinput.Model
	spinner spinner.Model

	gen     uint64
	running bool
	url     string
	jobID   string
	phase   orchestrator.Phase
	polls   int
	card    *card.Card
	err     error
	stale   int

	windowWidth int
}

// NewModel builds a watch model whose jobs run on orch.
func NewModel(ctx context.Context, orch *orchestrator.Orchestrator) Model {
	updates := make(chan orchestrator.Update, updateBuffer)

	ti := textinput.New()
	ti.Placeholder = "https://example.com"
	ti.CharLimit = 2048
	ti.Width = 60
	ti.Prompt = "URL › "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	return Model{
		ctx:         ctx,
		surface:     orchestrator.NewSurface(orch, forward(ctx, updates)),
		updates:     updates,
		input:       ti,
		spinner:     sp,
		windowWidth: 80,
	}
}

// forward hands updates to the UI without blocking the surface lock.
// Progress updates are dropped when the buffer is full; terminal ones are
// handed off to a goroutine so they always arrive.
func forward(ctx context.Context, ch chan<- orchestrator.Update) func(orchestrator.Update) {
	return func(u orchestrator.Update) {
		select {
		case ch <- u:
		default:
			if u.Phase.Terminal() {
				go func() {
					select {
					case ch <- u:
					case <-ctx.Done():
					}
				}()
			}
		}
	}
}

func waitForUpdate(ch <-chan orchestrator.Update) tea.Cmd {
	return func() tea.Msg {
		return updateMsg{update: <-ch}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.updates))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.surface.Cancel()
			return m, tea.Quit
		case "esc":
			if m.running {
				m.surface.Cancel()
				m.gen = m.surface.Current().Generation
				m.running = false
				m.phase = orchestrator.PhaseCancelled
			}
			return m, nil
		case "enter":
			url := strings.TrimSpace(m.input.Value())
			if url == "" {
				return m, nil
			}
			m.gen = m.surface.Start(m.ctx, url)
			m.url = url
			m.jobID = ""
			m.phase = ""
			m.polls = 0
			m.card = nil
			m.err = nil
			m.running = true
			return m, m.spinner.Tick
		}

	case updateMsg:
		m = m.apply(msg.update)
		return m, waitForUpdate(m.updates)

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply folds an update into the model. Updates from an older generation
// can still be queued after a supersede; they are counted and ignored.
func (m Model) apply(u orchestrator.Update) Model {
	if u.Generation != m.gen {
		m.stale++
		return m
	}
	if u.JobID != "" {
		m.jobID = u.JobID
	}
	m.phase = u.Phase
	m.polls = u.Polls
	if u.Err != nil {
		m.err = u.Err
	}
	if u.Phase.Terminal() {
		m.running = false
	}
	if u.Phase == orchestrator.PhaseFinished {
		c := card.Render(u.Result)
		m.card = &c
		m.err = nil
	}
	return m
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("preview-cli watch"))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if line := m.statusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	if m.card != nil {
		b.WriteString("\n")
		b.WriteString(render.Terminal(*m.card, min(m.windowWidth, 100)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("enter submit · esc cancel · ctrl+c quit"))
	return b.String()
}

func (m Model) statusLine() string {
	if m.url == "" {
		return ""
	}
	job := m.jobID
	if job == "" {
		job = "pending"
	}
	switch {
	case m.running:
		return fmt.Sprintf("%s %s %s · job %s · %d polls", m.spinner.View(), phaseLabel(m.phase), m.url, job, m.polls)
	case m.phase == orchestrator.PhaseFinished:
		return okStyle.Render(fmt.Sprintf("✓ %s · job %s · %d polls", m.url, job, m.polls))
	default:
		return mutedStyle.Render(fmt.Sprintf("%s %s · job %s", phaseLabel(m.phase), m.url, job))
	}
}

func phaseLabel(p orchestrator.Phase) string {
	switch p {
	case "":
		return "submitting"
	case orchestrator.PhaseSubmitted, orchestrator.PhasePolled:
		return "waiting"
	case orchestrator.PhasePollError:
		return "retrying"
	default:
		return string(p)
	}
}
