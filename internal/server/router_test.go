package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/trivia-api/internal/config"
	"github.com/gokatarajesh/trivia-api/internal/db/memdb"
	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	"github.com/gokatarajesh/trivia-api/internal/question"
	"github.com/gokatarajesh/trivia-api/internal/quiz"
	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

func testConfig() *config.App {
	return &config.App{
		Name: "trivia-api",
		Env:  "test",
		CORS: config.CORS{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization", "true"},
			MaxAge:         3600,
		},
	}
}

type testEnv struct {
	cfg     *config.App
	db      *memdb.DB
	hub     *ws.Hub
	reg     *prometheus.Registry
	handler http.Handler
}

func newTestEnv(t *testing.T, mutate func(*Dependencies)) *testEnv {
	t.Helper()
	env := &testEnv{
		cfg: testConfig(),
		db:  memdb.Seeded(),
		hub: ws.NewHub(zerolog.Nop()),
		reg: prometheus.NewRegistry(),
	}
	m := metrics.New(env.reg)
	questions := repository.NewQuestionRepository(env.db)
	categories := repository.NewCategoryRepository(env.db)

	svc := question.NewService(questions, categories, nil, env.hub, question.ServiceOptions{Metrics: m}, zerolog.Nop())
	deps := Dependencies{
		Questions: question.NewHTTPHandlers(svc),
		Quiz:      quiz.NewHTTPHandler(quiz.NewSelector(questions, quiz.WithMetrics(m))),
		Feed:      QuestionFeedHandler(env.hub, NewUpgrader(env.cfg.CORS), zerolog.Nop()),
		Metrics:   m,
		Gatherer:  env.reg,
	}
	if mutate != nil {
		mutate(&deps)
	}
	env.handler = NewRouter(env.cfg, zerolog.Nop(), deps)
	return env
}

func (e *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func wireError(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouterErrorShapes(t *testing.T) {
	env := newTestEnv(t, nil)

	cases := []struct {
		name    string
		method  string
		target  string
		body    string
		status  int
		message string
	}{
		{"unknown path", http.MethodGet, "/nope", "", http.StatusNotFound, "resource not found"},
		{"page past the end", http.MethodGet, "/questions?page=50", "", http.StatusNotFound, "resource not found"},
		{"unknown category", http.MethodGet, "/categories/1000/questions", "", http.StatusNotFound, "resource not found"},
		{"post to question id", http.MethodPost, "/questions/100", `{}`, http.StatusMethodNotAllowed, "method not allowed"},
		{"put questions", http.MethodPut, "/questions", `{}`, http.StatusMethodNotAllowed, "method not allowed"},
		{"delete unknown id", http.MethodDelete, "/questions/800", "", http.StatusUnprocessableEntity, "unprocessable"},
		{"create missing fields", http.MethodPost, "/questions", `{"question":"q"}`, http.StatusUnprocessableEntity, "unprocessable"},
		{"bad json", http.MethodPost, "/questions", `{`, http.StatusBadRequest, "bad request"},
		{"quiz without body", http.MethodPost, "/quizzes", "", http.StatusUnprocessableEntity, "unprocessable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(tc.method, tc.target, tc.body)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			out := wireError(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, float64(tc.status), out["error"])
			assert.Equal(t, tc.message, out["message"])
		})
	}
}

func TestRouterServesAPI(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/questions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_questions":19`)

	rec = env.do(http.MethodGet, "/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_categories":6`)

	rec = env.do(http.MethodPost, "/quizzes", `{"previous_questions":[],"quiz_category":{"type":"click","id":0}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestRouterCORS(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/questions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type,Authorization,true", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "GET,PUT,POST,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = env.do(http.MethodGet, "/categories", "")
	assert.Equal(t, "GET,PUT,POST,DELETE,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRouterCORSRestrictedOrigins(t *testing.T) {
	env := newTestEnv(t, nil)
	env.cfg.CORS.AllowedOrigins = []string{"http://trivia.local"}
	env.handler = corsMiddleware(env.cfg.CORS)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("Origin", "http://trivia.local")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "http://trivia.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouterRequestID(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRouterRecoversPanics(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Feed = func(http.ResponseWriter, *http.Request) { panic("boom") }
	})

	rec := env.do(http.MethodGet, "/ws/questions", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	out := wireError(t, rec)
	assert.Equal(t, "internal server error", out["message"])
}

func TestRouterReadiness(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) {
		d.Ready = func(context.Context) error { return errors.New("postgres down") }
	})
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/readyz", "").Code)

	env = newTestEnv(t, func(d *Dependencies) {
		d.Ready = func(context.Context) error { return nil }
	})
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/readyz", "").Code)
}

func TestRouterExportsMetrics(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(http.MethodGet, "/categories", "")
	env.do(http.MethodDelete, "/questions/2", "")

	rec := env.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `trivia_http_requests_total{code="200",method="GET",route="/categories"} 1`)
	assert.Contains(t, body, `trivia_question_mutations_total{op="deleted"} 1`)
}
