// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Quiz selection outcomes.
const (
	QuizServed    = "served"
	QuizExhausted = "exhausted"
	QuizFailed    = "failed"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	quizSelections *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	categoryCache  *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trivia",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		quizSelections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "quiz_selections_total",
			Help:      "Quiz question selections by outcome.",
		}, []string{"outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "question_mutations_total",
			Help:      "Successful question creates and deletes.",
		}, []string{"op"}),
		categoryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "category_cache_lookups_total",
			Help:      "Category cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.quizSelections, m.mutations, m.categoryCache)
	return m
}

func (m *Metrics) ObserveRequest(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Metrics) QuizSelection(outcome string) {
	if m == nil {
		return
	}
	m.quizSelections.WithLabelValues(outcome).Inc()
}

func (m *Metrics) QuestionMutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) CategoryCacheLookup(result string) {
	if m == nil {
		return
	}
	m.categoryCache.WithLabelValues(result).Inc()
}
