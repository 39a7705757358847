package question

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/db/repository"
	"github.com/gokatarajesh/trivia-api/internal/metrics"
	ws "github.com/gokatarajesh/trivia-api/pkg/http/ws"
)

// Errors returned by Service; handlers map them onto HTTP responses.
var (
	ErrNotFound      = errors.New("resource not found")
	ErrUnprocessable = errors.New("unprocessable")
)

const defaultQueryTimeout = 5 * time.Second

// CategoryCache defines cache behavior (implemented by Redis-backed Cache).
type CategoryCache interface {
	Get(ctx context.Context) (CategoryMap, error)
	Set(ctx context.Context, m CategoryMap) error
}

// Broadcaster fans question events out to feed subscribers (implemented by ws.Hub).
type Broadcaster interface {
	BroadcastAll(msg ws.Message) error
}

// Service composes the question and category stores with pagination,
// caching and change notifications.
type Service struct {
	questions  *repository.QuestionRepository
	categories *repository.CategoryRepository
	cache      CategoryCache
	events     Broadcaster
	metrics    *metrics.Metrics
	timeout    time.Duration
	logger     zerolog.Logger
}

type ServiceOptions struct {
	QueryTimeout time.Duration
	Metrics      *metrics.Metrics
}

// NewService wires the question service. cache and events may be nil.
func NewService(questions *repository.QuestionRepository, categories *repository.CategoryRepository, cache CategoryCache, events Broadcaster, opts ServiceOptions, logger zerolog.Logger) *Service {
	timeout := opts.QueryTimeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Service{
		questions:  questions,
		categories: categories,
		cache:      cache,
		events:     events,
		metrics:    opts.Metrics,
		timeout:    timeout,
		logger:     logger.With().Str("component", "question_service").Logger(),
	}
}

// ListQuestions returns the requested page of all questions plus the category
// map. An empty page is ErrNotFound unless it is page one of an empty table.
func (s *Service) ListQuestions(ctx context.Context, page int) (QuestionPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	all, err := s.questionPage(ctx, page)
	if err != nil {
		return QuestionPage{}, err
	}
	if len(all.Questions) == 0 && page != 1 {
		return QuestionPage{}, ErrNotFound
	}

	categories, err := s.categoryMap(ctx)
	if err != nil {
		return QuestionPage{}, err
	}
	all.Categories = categories
	return all, nil
}

// Categories returns every category keyed by id.
func (s *Service) Categories(ctx context.Context) (CategoryMap, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.categoryMap(ctx)
}

// QuestionsByCategory pages through one category. Unknown categories are
// ErrNotFound; a known category without questions is an empty page.
func (s *Service) QuestionsByCategory(ctx context.Context, categoryID int32, page int) (CategoryPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	category, err := s.categories.Get(ctx, categoryID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CategoryPage{}, ErrNotFound
		}
		return CategoryPage{}, err
	}

	rows, err := s.questions.ListByCategory(ctx, categoryID)
	if err != nil {
		return CategoryPage{}, err
	}
	formatted := FromRows(rows)
	return CategoryPage{
		QuestionPage: QuestionPage{
			Questions: Paginate(formatted, page),
			Total:     len(formatted),
		},
		Category: category.Type,
	}, nil
}

// Search pages through questions whose text contains term, ignoring case.
// An empty term matches everything; no matches is ErrNotFound.
func (s *Service) Search(ctx context.Context, term string, page int) (QuestionPage, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.questions.Search(ctx, term)
	if err != nil {
		return QuestionPage{}, err
	}
	if len(rows) == 0 {
		return QuestionPage{}, ErrNotFound
	}
	formatted := FromRows(rows)
	return QuestionPage{
		Questions: Paginate(formatted, page),
		Total:     len(formatted),
	}, nil
}

// CreateResult carries the new id and a refreshed listing.
type CreateResult struct {
	Created int32
	QuestionPage
}

// Create stores a new question. Any store failure, including constraint
// violations from missing fields, is ErrUnprocessable.
func (s *Service) Create(ctx context.Context, req CreateRequest, page int) (CreateResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row, err := s.questions.Create(ctx, repository.NewQuestion{
		Question:   req.Question,
		Answer:     req.Answer,
		Category:   req.Category.Int32Ptr(),
		Difficulty: req.Difficulty.Int32Ptr(),
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	listing, err := s.questionPage(ctx, page)
	if err != nil {
		return CreateResult{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	s.metrics.QuestionMutation("created")
	created := FromRow(row)
	s.publish(ws.TypeQuestionCreated, ws.QuestionCreatedPayload{
		ID:             created.ID,
		Question:       created.Question,
		Answer:         created.Answer,
		Category:       created.Category,
		Difficulty:     created.Difficulty,
		TotalQuestions: listing.Total,
	})

	return CreateResult{Created: created.ID, QuestionPage: listing}, nil
}

// DeleteResult carries the deleted id and a refreshed listing.
type DeleteResult struct {
	Deleted int32
	QuestionPage
}

// Delete removes a question. Unknown ids, including ones lost to a
// concurrent delete, are reported as ErrUnprocessable like any other failure.
func (s *Service) Delete(ctx context.Context, id int32, page int) (DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.questions.Delete(ctx, id); err != nil {
		return DeleteResult{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	listing, err := s.questionPage(ctx, page)
	if err != nil {
		return DeleteResult{}, fmt.Errorf("%w: %v", ErrUnprocessable, err)
	}

	s.metrics.QuestionMutation("deleted")
	s.publish(ws.TypeQuestionDeleted, ws.QuestionDeletedPayload{ID: id, TotalQuestions: listing.Total})

	return DeleteResult{Deleted: id, QuestionPage: listing}, nil
}

func (s *Service) questionPage(ctx context.Context, page int) (QuestionPage, error) {
	rows, err := s.questions.List(ctx)
	if err != nil {
		return QuestionPage{}, err
	}
	formatted := FromRows(rows)
	return QuestionPage{
		Questions: Paginate(formatted, page),
		Total:     len(formatted),
	}, nil
}

func (s *Service) categoryMap(ctx context.Context) (CategoryMap, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx)
		switch {
		case err != nil:
			s.metrics.CategoryCacheLookup("error")
			s.logger.Warn().Err(err).Msg("category cache read failed")
		case cached != nil:
			s.metrics.CategoryCacheLookup("hit")
			return cached, nil
		default:
			s.metrics.CategoryCacheLookup("miss")
		}
	}

	rows, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	m := categoryMap(rows)

	if s.cache != nil {
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.Warn().Err(err).Msg("category cache write failed")
		}
	}
	return m, nil
}

func (s *Service) publish(msgType string, payload interface{}) {
	if s.events == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("encode event failed")
		return
	}
	if err := s.events.BroadcastAll(msg); err != nil {
		s.logger.Debug().Err(err).Str("type", msgType).Msg("event not delivered to every subscriber")
	}
}
