package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"knowledge-quiz-service/internal/app"
	"knowledge-quiz-service/internal/config"
	"knowledge-quiz-service/internal/infra/csvsource"
	"knowledge-quiz-service/internal/infra/memory"
	pgloader "knowledge-quiz-service/internal/infra/postgres"
	redisinfra "knowledge-quiz-service/internal/infra/redis"
	transport "knowledge-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := newServiceDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	var store app.SessionRepository
	if deps.redis != nil {
		store = redisinfra.NewSessionStore(deps.redis, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewQuizService(store, deps.pool, app.WithShareURL(cfg.Server.PageURL))
	// a failed warm-up is reported once; sessions retry through the pool cache
	_, _ = service.Warm(ctx)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// serviceDeps holds the pool repository and the connections behind it.
type serviceDeps struct {
	pool  app.PoolRepository
	redis *redis.Client
	pg    *pgxpool.Pool
}

func (d *serviceDeps) Close() {
	if d.redis != nil {
		_ = d.redis.Close()
	}
	if d.pg != nil {
		d.pg.Close()
	}
}

// newServiceDeps picks the question source (Postgres bank, local file, then the
// published CSV) and puts a Redis or in-memory cache in front of it.
func newServiceDeps(ctx context.Context, cfg config.Config) (*serviceDeps, error) {
	deps := &serviceDeps{}

	if cfg.Redis.Addr != "" {
		deps.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var loader memory.PoolLoader
	switch {
	case cfg.Postgres.URL != "":
		pg, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			deps.Close()
			return nil, err
		}
		deps.pg = pg
		loader = pgloader.NewPoolLoader(pg)
		log.Printf("question source: postgres")
	case cfg.Source.File != "":
		loader = csvsource.NewFileLoader(cfg.Source.File)
		log.Printf("question source: %s", cfg.Source.File)
	default:
		loader = csvsource.NewHTTPLoader(cfg.Source.CSVURL, config.TTLDuration(cfg.Source.Timeout, csvsource.DefaultTimeout))
		log.Printf("question source: published csv")
	}

	poolTTL := config.TTLDuration(cfg.Pool.TTL, 10*time.Minute)
	if deps.redis != nil {
		deps.pool = redisinfra.NewPoolRepository(deps.redis, loader, poolTTL)
	} else {
		deps.pool = memory.NewPoolRepository(loader, poolTTL)
	}
	return deps, nil
}
