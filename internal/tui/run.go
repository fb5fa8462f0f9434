package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"knowledge-quiz-service/internal/app"
)

// Run plays one interactive session in the terminal until the player quits.
func Run(ctx context.Context, service *app.QuizService, playerName string, opts Options) error {
	session := service.Open(ctx, playerName)
	defer service.Leave(context.Background(), session.ID())

	events, cancel, err := service.Subscribe(ctx, session.ID())
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := service.Start(ctx, session.ID()); err != nil {
		return err
	}

	model := NewModel(ctx, service, session.ID(), session.PlayerName(), events, opts)
	_, err = tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
