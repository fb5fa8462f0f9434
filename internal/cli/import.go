package cli

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"knowledge-quiz-service/internal/config"
	"knowledge-quiz-service/internal/infra/csvsource"
	"knowledge-quiz-service/internal/infra/memory"
	pgimport "knowledge-quiz-service/internal/infra/postgres"
)

// NewImportCmd copies the published CSV (or a local file) into the Postgres question bank.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import questions from CSV into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "local CSV file (defaults to source.csvURL)")
	return cmd
}

func runImport(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if file == "" {
		file = cfg.Source.File
	}

	var loader memory.PoolLoader
	if file != "" {
		loader = csvsource.NewFileLoader(file)
	} else {
		if cfg.Source.CSVURL == "" {
			return fmt.Errorf("no csv source configured")
		}
		loader = csvsource.NewHTTPLoader(cfg.Source.CSVURL, config.TTLDuration(cfg.Source.Timeout, csvsource.DefaultTimeout))
	}

	pool, err := loader.LoadPool(ctx)
	if err != nil {
		return err
	}

	db, err := openBunDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := migrateDB(ctx, db); err != nil {
		return err
	}

	start := time.Now()
	n, err := pgimport.NewImporter(db).Import(ctx, pool)
	if err != nil {
		return err
	}
	log.Printf("imported %d questions in %s", n, time.Since(start).Round(time.Millisecond))
	return nil
}
