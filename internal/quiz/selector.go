package quiz

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	"github.com/gokatarajesh/trivia-api/internal/question"
)

const defaultQueryTimeout = 5 * time.Second

type candidateStore interface {
	QuizCandidates(ctx context.Context, filter repository.CandidateFilter) ([]sqlcgen.Question, error)
}

// Selector picks the next quiz question from the questions not yet served.
type Selector struct {
	store   candidateStore
	metrics *metrics.Metrics
	timeout time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customises a Selector.
type Option func(*Selector)

// WithRand replaces the random source, e.g. with a seeded one in tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Selector) { s.rng = rng }
}

func WithQueryTimeout(d time.Duration) Option {
	return func(s *Selector) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Selector) { s.metrics = m }
}

func NewSelector(store candidateStore, opts ...Option) *Selector {
	s := &Selector{
		store:   store,
		timeout: defaultQueryTimeout,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Next returns a uniformly random question from the candidate pool: questions
// in category (or any category) whose id is not in previous. A nil question
// with a nil error means the pool is exhausted.
func (s *Selector) Next(ctx context.Context, category Category, previous []int32) (*question.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := repository.CandidateFilter{Exclude: previous}
	if !category.All() {
		id := int32(category.ID)
		filter.CategoryID = &id
	}

	pool, err := s.store.QuizCandidates(ctx, filter)
	if err != nil {
		s.metrics.QuizSelection(metrics.QuizFailed)
		return nil, err
	}
	if len(pool) == 0 {
		s.metrics.QuizSelection(metrics.QuizExhausted)
		return nil, nil
	}

	picked := question.FromRow(pool[s.intn(len(pool))])
	s.metrics.QuizSelection(metrics.QuizServed)
	return &picked, nil
}

// rand.Rand is not safe for concurrent use.
func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
