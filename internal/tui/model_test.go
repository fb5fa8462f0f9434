package tui

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/clock"
	"knowledge-quiz-service/internal/domain"
	"knowledge-quiz-service/internal/infra/memory"
)

func TestModelSelectAndConfirm(t *testing.T) {
	m, events, service, id := newTestModel(t)
	m = feed(m, events)

	if m.question == nil {
		t.Fatalf("expected question after start")
	}
	if !strings.Contains(m.View(), m.question.Prompt) {
		t.Fatalf("expected prompt in view:\n%s", m.View())
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	if m.selected != m.question.Options[0].Tag {
		t.Fatalf("expected first option selected, got %q", m.selected)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.err != nil {
		t.Fatalf("confirm: %v", m.err)
	}
	m = feed(m, events)

	snap, err := service.Snapshot(context.Background(), id)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Index != 1 || m.question.Index != 1 {
		t.Fatalf("expected second question, snapshot %d view %d", snap.Index, m.question.Index)
	}
	if m.last == nil {
		t.Fatalf("expected last answer recorded")
	}
}

func TestModelIgnoresOutOfRangeOption(t *testing.T) {
	m, events, _, _ := newTestModel(t)
	m = feed(m, events)

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'4'}})
	if m.selected != "" || m.err != nil {
		t.Fatalf("expected no selection for a two-option question, got %q %v", m.selected, m.err)
	}
	m = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.err != nil {
		t.Fatalf("confirm without selection must be a no-op, got %v", m.err)
	}
}

func TestModelQuit(t *testing.T) {
	m, _, _, _ := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}

func TestResultView(t *testing.T) {
	m := NewModel(context.Background(), nil, "s1", "Alice", nil, Options{NoColor: true})
	m = applyEvent(m, app.Event{Kind: app.EventResult, Result: &domain.Result{
		PlayerName: "Alice",
		Score:      812,
		Badge:      domain.Badge{Key: "diamond", Title: "Diamond"},
		Stats:      domain.NewStats(),
		ShareText:  "I scored 812 points!",
	}})

	view := m.View()
	for _, want := range []string{"Alice", "812", "Diamond", "I scored 812 points!", "play again"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in result view:\n%s", want, view)
		}
	}
}

func TestFinishingView(t *testing.T) {
	m := NewModel(context.Background(), nil, "s1", "Alice", nil, Options{NoColor: true})
	m = applyEvent(m, app.Event{Kind: app.EventFinishing, Ratio: 0.5})
	if !strings.Contains(m.View(), "Calculating") {
		t.Fatalf("expected finishing view, got:\n%s", m.View())
	}
}

func newTestModel(t *testing.T) (Model, <-chan app.Event, *app.QuizService, string) {
	t.Helper()
	ctx := context.Background()
	pool := make([]domain.Question, 0, 6)
	for i := 0; i < 6; i++ {
		pool = append(pool, domain.Question{
			ID:         fmt.Sprintf("q%d", i),
			Type:       domain.TypeTrueFalse,
			Answer:     domain.TagF,
			Prompt:     fmt.Sprintf("Statement %d is true?", i),
			Options:    []domain.Option{{Tag: domain.TagF, Text: "True"}, {Tag: domain.TagG, Text: "False"}},
			Area:       domain.AreaCivs,
			Difficulty: domain.DifficultyMedium,
		})
	}
	service := app.NewQuizService(
		memory.NewSessionStore(),
		memory.NewPoolRepository(memory.NewStaticPoolLoader(pool), time.Minute),
		app.WithClock(clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))),
		app.WithRand(rand.New(rand.NewSource(3))),
	)
	session := service.Open(ctx, "Alice")
	events, cancel, err := service.Subscribe(ctx, session.ID())
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(cancel)
	if _, err := service.Start(ctx, session.ID()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return NewModel(ctx, service, session.ID(), "Alice", events, Options{NoColor: true}), events, service, session.ID()
}

// feed applies every buffered event to m.
func feed(m Model, events <-chan app.Event) Model {
	for {
		select {
		case ev := <-events:
			m = applyEvent(m, ev)
		default:
			return m
		}
	}
}

func press(m Model, key tea.KeyMsg) Model {
	next, _ := m.Update(key)
	return next.(Model)
}
