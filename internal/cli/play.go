package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/config"
	"knowledge-quiz-service/internal/infra/memory"
	"knowledge-quiz-service/internal/tui"
)

// NewPlayCmd runs a quiz in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		name    string
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play the quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, name, noColor)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "player name")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colors")
	return cmd
}

func runPlay(ctx context.Context, configPath, name string, noColor bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	deps, err := newServiceDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	service := app.NewQuizService(memory.NewSessionStore(), deps.pool,
		app.WithShareURL(cfg.Server.PageURL),
		app.WithTickInterval(250*time.Millisecond),
	)
	return tui.Run(ctx, service, name, tui.Options{NoColor: noColor})
}
