// Package tui is a terminal client for a quiz session.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/domain"
)

// Controller is the part of the quiz service the terminal client drives.
type Controller interface {
	Start(ctx context.Context, sessionID string) (app.Presentation, error)
	Select(ctx context.Context, sessionID string, tag domain.OptionTag) error
	Confirm(ctx context.Context, sessionID string) (domain.AnswerOutcome, error)
	Skip(ctx context.Context, sessionID string) (app.Presentation, error)
}

// Model renders one quiz session using Bubble Tea.
type Model struct {
	ctx        context.Context
	controller Controller
	sessionID  string
	playerName string
	events     <-chan app.Event

	question  *app.Presentation
	selected  domain.OptionTag
	ratio     float64
	last      *domain.AnswerOutcome
	finishing bool
	result    *domain.Result
	err       error

	bar     progress.Model
	noColor bool
}

// Options configures the terminal client.
type Options struct {
	NoColor bool
}

// NewModel constructs a model for a session whose events arrive on events.
func NewModel(ctx context.Context, controller Controller, sessionID, playerName string, events <-chan app.Event, opts Options) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	if opts.NoColor {
		bar = progress.New(progress.WithSolidFill("7"), progress.WithoutPercentage())
	}
	bar.Width = 40
	return Model{
		ctx:        ctx,
		controller: controller,
		sessionID:  sessionID,
		playerName: playerName,
		events:     events,
		bar:        bar,
		noColor:    opts.NoColor,
	}
}

// Init waits for the first session event.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

// Update consumes key presses and session events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(typed.Width-4, 60), 10)
		return m, nil
	case EventMsg:
		m = applyEvent(m, typed.Event)
		return m, waitForEvent(m.events)
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "1", "2", "3", "4":
		if m.question == nil || m.finishing || m.result != nil {
			return m, nil
		}
		i := int(key[0] - '1')
		if i >= len(m.question.Options) {
			return m, nil
		}
		tag := m.question.Options[i].Tag
		m.err = m.controller.Select(m.ctx, m.sessionID, tag)
		if m.err == nil {
			m.selected = tag
		}
	case "enter":
		if m.question == nil || m.selected == "" {
			return m, nil
		}
		_, m.err = m.controller.Confirm(m.ctx, m.sessionID)
	case "s":
		if m.question == nil || m.finishing {
			return m, nil
		}
		_, m.err = m.controller.Skip(m.ctx, m.sessionID)
	case "r":
		if m.result == nil {
			return m, nil
		}
		_, m.err = m.controller.Start(m.ctx, m.sessionID)
	}
	if errors.Is(m.err, domain.ErrNotInProgress) {
		// a timeout can race a key press; the next event catches the view up
		m.err = nil
	}
	return m, nil
}

// View renders the current screen.
func (m Model) View() string {
	switch {
	case m.result != nil:
		return lipgloss.JoinVertical(lipgloss.Left, renderResult(*m.result, m.noColor), renderFooter(m))
	case m.finishing:
		return lipgloss.JoinVertical(lipgloss.Left,
			stylize("Calculating your score...", m.noColor, lipgloss.Color("33")),
			m.bar.ViewAs(m.ratio),
		)
	case m.question != nil:
		return lipgloss.JoinVertical(lipgloss.Left,
			renderHeader(*m.question, m.playerName, m.noColor),
			renderPrompt(*m.question),
			renderOptions(*m.question, m.selected, m.noColor),
			m.bar.ViewAs(m.ratio),
			renderLastAnswer(m.last, m.noColor),
			renderFooter(m),
		)
	}
	return "Loading questions..."
}

// EventMsg wraps a session event for Bubble Tea.
type EventMsg struct {
	Event app.Event
}

// waitForEvent blocks until a session event is available.
func waitForEvent(events <-chan app.Event) tea.Cmd {
	return func() tea.Msg {
		if events == nil {
			return nil
		}
		event, ok := <-events
		if !ok {
			return tea.Quit()
		}
		return EventMsg{Event: event}
	}
}

func applyEvent(m Model, ev app.Event) Model {
	switch ev.Kind {
	case app.EventQuestion:
		m.question = ev.Question
		m.selected = ""
		m.ratio = ev.Ratio
		m.finishing = false
		m.result = nil
	case app.EventCountdown:
		m.ratio = ev.Ratio
	case app.EventAnswered:
		m.last = ev.Answer
	case app.EventFinishing:
		m.finishing = true
		m.ratio = ev.Ratio
	case app.EventResult:
		m.finishing = false
		m.result = ev.Result
		m.last = nil
	}
	return m
}
