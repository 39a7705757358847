package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	"github.com/gokatarajesh/trivia-api/internal/question"
	"github.com/gokatarajesh/trivia-api/internal/quiz"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
)

// Dependencies are the handlers and probes the router mounts.
type Dependencies struct {
	Questions *question.HTTPHandlers
	Quiz      *quiz.HTTPHandler
	Feed      http.HandlerFunc
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Ready     func(ctx context.Context) error
}

// NewHTTPServer wraps the router in an http.Server bound to cfg.HTTPAddr.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, deps Dependencies) *http.Server {
	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: NewRouter(cfg, logger, deps),
	}
}

// NewRouter registers the API routes and wraps them in the middleware chain.
func NewRouter(cfg *config.App, logger zerolog.Logger, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if deps.Ready != nil {
			if err := deps.Ready(r.Context()); err != nil {
				logger.Error().Err(err).Msg("dependency ping failed")
				http.Error(w, "upstream error", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ready":true}`))
	})

	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.Questions != nil {
		mux.HandleFunc("/questions", deps.Questions.Questions)
		mux.HandleFunc("/questions/search", deps.Questions.Search)
		mux.HandleFunc("/questions/{id}", deps.Questions.Question)
		mux.HandleFunc("/categories", deps.Questions.Categories)
		mux.HandleFunc("/categories/{id}/questions", deps.Questions.CategoryQuestions)
	}

	if deps.Quiz != nil {
		mux.HandleFunc("/quizzes", deps.Quiz.Quizzes)
	}

	if deps.Feed != nil {
		mux.HandleFunc("/ws/questions", deps.Feed)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondNotFound(w)
	})

	var handler http.Handler = mux
	handler = corsMiddleware(cfg.CORS)(handler)
	handler = accessLogMiddleware(logger, deps.Metrics)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(logger)(handler)
	return handler
}

// PingDependencies builds a readiness probe over Postgres and Redis.
func PingDependencies(pool *pgxpool.Pool, redis *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		if err := redis.Ping(ctx).Err(); err != nil {
			return err
		}
		return nil
	}
}
