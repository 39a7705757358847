package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/db/migrate"
	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
	"github.com/gokatarajesh/trivia-api/internal/events"
	"github.com/gokatarajesh/trivia-api/internal/logging"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	"github.com/gokatarajesh/trivia-api/internal/question"
	"github.com/gokatarajesh/trivia-api/internal/quiz"
	"github.com/gokatarajesh/trivia-api/internal/server"
	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server
	relay *events.Relay
}

// New bootstraps logger, Postgres, Redis and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if cfg.Postgres.AutoMigrate {
		// the *sql.DB borrows pool connections; closing the pool releases them
		if err := migrate.Up(ctx, stdlib.OpenDBFromPool(pool)); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	queries := sqlcgen.New(pool)
	questionRepo := repository.NewQuestionRepository(queries)
	categoryRepo := repository.NewCategoryRepository(queries)

	hub := ws.NewHub(logger.With().Str("component", "ws_hub").Logger())
	publisher := events.NewPublisher(redisClient, cfg.Redis.EventsChannel, hub, logger)
	relay := events.NewRelay(redisClient, hub, cfg.Redis.EventsChannel, logger)
	categoryCache := question.NewCache(redisClient, cfg.Redis.CategoryTTL)

	questionSvc := question.NewService(
		questionRepo,
		categoryRepo,
		categoryCache,
		publisher,
		question.ServiceOptions{
			QueryTimeout: cfg.Runtime.QueryTimeout,
			Metrics:      appMetrics,
		},
		logger,
	)

	selector := quiz.NewSelector(
		questionRepo,
		quiz.WithQueryTimeout(cfg.Runtime.QueryTimeout),
		quiz.WithMetrics(appMetrics),
	)

	apiServer := server.NewHTTPServer(cfg, logger, server.Dependencies{
		Questions: question.NewHTTPHandlers(questionSvc),
		Quiz:      quiz.NewHTTPHandler(selector),
		Feed:      server.QuestionFeedHandler(hub, server.NewUpgrader(cfg.CORS), logger),
		Metrics:   appMetrics,
		Gatherer:  registry,
		Ready:     server.PingDependencies(pool, redisClient),
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
		relay:  relay,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	go func() {
		if err := a.relay.Run(relayCtx); err != nil && err != context.Canceled {
			a.logger.Error().Err(err).Msg("event relay stopped")
		}
	}()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}
	stopRelay()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
