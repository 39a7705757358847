package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
)

type questionStore interface {
	ListQuestions(ctx context.Context) ([]sqlcgen.Question, error)
	ListQuestionsByCategory(ctx context.Context, category int32) ([]sqlcgen.Question, error)
	SearchQuestions(ctx context.Context, term string) ([]sqlcgen.Question, error)
	InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error)
	DeleteQuestion(ctx context.Context, id int32) (int64, error)
	ListQuizCandidates(ctx context.Context, arg sqlcgen.ListQuizCandidatesParams) ([]sqlcgen.Question, error)
}

// QuestionRepository wraps sqlc queries for question access.
type QuestionRepository struct {
	store questionStore
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// List returns every question ordered by id.
func (r *QuestionRepository) List(ctx context.Context) ([]sqlcgen.Question, error) {
	rows, err := r.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return rows, nil
}

// ListByCategory returns the questions whose category column equals categoryID.
func (r *QuestionRepository) ListByCategory(ctx context.Context, categoryID int32) ([]sqlcgen.Question, error) {
	rows, err := r.store.ListQuestionsByCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list questions by category %d: %w", categoryID, err)
	}
	return rows, nil
}

// Search performs a case-insensitive substring match on the question text.
// LIKE metacharacters in term match literally.
func (r *QuestionRepository) Search(ctx context.Context, term string) ([]sqlcgen.Question, error) {
	rows, err := r.store.SearchQuestions(ctx, escapeLike(term))
	if err != nil {
		return nil, fmt.Errorf("search questions: %w", err)
	}
	return rows, nil
}

// NewQuestion carries creation input. Nil fields are sent as NULL so the
// table constraints decide whether the row is acceptable.
type NewQuestion struct {
	Question   *string
	Answer     *string
	Category   *int32
	Difficulty *int32
}

// Create inserts a question and returns the stored row.
func (r *QuestionRepository) Create(ctx context.Context, in NewQuestion) (sqlcgen.Question, error) {
	params := sqlcgen.InsertQuestionParams{
		Question:   textParam(in.Question),
		Answer:     textParam(in.Answer),
		Category:   int4Param(in.Category),
		Difficulty: int4Param(in.Difficulty),
	}
	row, err := r.store.InsertQuestion(ctx, params)
	if err != nil {
		return sqlcgen.Question{}, fmt.Errorf("insert question: %w", err)
	}
	return row, nil
}

// Delete removes a question by id. A missing row yields ErrNotFound.
func (r *QuestionRepository) Delete(ctx context.Context, id int32) error {
	affected, err := r.store.DeleteQuestion(ctx, id)
	if err != nil {
		return fmt.Errorf("delete question %d: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CandidateFilter narrows the quiz pool. A nil CategoryID means every category.
type CandidateFilter struct {
	CategoryID *int32
	Exclude    []int32
}

// QuizCandidates returns questions not in the exclusion set.
func (r *QuestionRepository) QuizCandidates(ctx context.Context, filter CandidateFilter) ([]sqlcgen.Question, error) {
	excluded := filter.Exclude
	if excluded == nil {
		// a NULL array would make "NOT (id = ANY(...))" NULL for every row
		excluded = []int32{}
	}
	rows, err := r.store.ListQuizCandidates(ctx, sqlcgen.ListQuizCandidatesParams{
		CategoryID: int4Param(filter.CategoryID),
		Excluded:   excluded,
	})
	if err != nil {
		return nil, fmt.Errorf("list quiz candidates: %w", err)
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func textParam(v *string) pgtype.Text {
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func int4Param(v *int32) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: *v, Valid: true}
}
