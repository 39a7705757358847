// Package memdb is an in-memory stand-in for the sqlc query layer, used by
// tests that exercise repositories, services and handlers without Postgres.
package memdb

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
)

// ErrNotNull mimics a NOT NULL constraint violation.
var ErrNotNull = errors.New("null value violates not-null constraint")

// DB holds categories and questions behind a mutex. Fail, when set, is
// returned by every query.
type DB struct {
	mu         sync.Mutex
	categories []sqlcgen.Category
	questions  []sqlcgen.Question
	nextID     int32

	Fail error
}

// New returns an empty database.
func New() *DB {
	return &DB{nextID: 1}
}

// Seeded returns a database holding the standard trivia categories and questions.
func Seeded() *DB {
	db := New()
	db.categories = slices.Clone(SeedCategories)
	db.questions = slices.Clone(SeedQuestions)
	for _, q := range db.questions {
		db.nextID = max(db.nextID, q.ID+1)
	}
	return db
}

// AddCategory inserts a category row.
func (d *DB) AddCategory(c sqlcgen.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categories = append(d.categories, c)
}

func (d *DB) ListCategories(ctx context.Context) ([]sqlcgen.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return nil, d.Fail
	}
	out := slices.Clone(d.categories)
	slices.SortFunc(out, func(a, b sqlcgen.Category) int { return int(a.ID - b.ID) })
	return out, nil
}

func (d *DB) GetCategory(ctx context.Context, id int32) (sqlcgen.Category, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return sqlcgen.Category{}, d.Fail
	}
	for _, c := range d.categories {
		if c.ID == id {
			return c, nil
		}
	}
	return sqlcgen.Category{}, pgx.ErrNoRows
}

func (d *DB) ListQuestions(ctx context.Context) ([]sqlcgen.Question, error) {
	return d.selectQuestions(func(sqlcgen.Question) bool { return true })
}

func (d *DB) ListQuestionsByCategory(ctx context.Context, category int32) ([]sqlcgen.Question, error) {
	return d.selectQuestions(func(q sqlcgen.Question) bool { return q.Category == category })
}

var likeUnescaper = strings.NewReplacer(`\\`, `\`, `\%`, `%`, `\_`, `_`)

// SearchQuestions expects a LIKE-escaped term, as the repository sends it.
func (d *DB) SearchQuestions(ctx context.Context, term string) ([]sqlcgen.Question, error) {
	needle := strings.ToLower(likeUnescaper.Replace(term))
	return d.selectQuestions(func(q sqlcgen.Question) bool {
		return strings.Contains(strings.ToLower(q.Question), needle)
	})
}

func (d *DB) InsertQuestion(ctx context.Context, arg sqlcgen.InsertQuestionParams) (sqlcgen.Question, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return sqlcgen.Question{}, d.Fail
	}
	if !arg.Question.Valid || !arg.Answer.Valid || !arg.Category.Valid || !arg.Difficulty.Valid {
		return sqlcgen.Question{}, ErrNotNull
	}
	row := sqlcgen.Question{
		ID:         d.nextID,
		Question:   arg.Question.String,
		Answer:     arg.Answer.String,
		Category:   arg.Category.Int32,
		Difficulty: arg.Difficulty.Int32,
	}
	d.nextID++
	d.questions = append(d.questions, row)
	return row, nil
}

func (d *DB) DeleteQuestion(ctx context.Context, id int32) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return 0, d.Fail
	}
	before := len(d.questions)
	d.questions = slices.DeleteFunc(d.questions, func(q sqlcgen.Question) bool { return q.ID == id })
	return int64(before - len(d.questions)), nil
}

func (d *DB) ListQuizCandidates(ctx context.Context, arg sqlcgen.ListQuizCandidatesParams) ([]sqlcgen.Question, error) {
	if arg.Excluded == nil {
		// NOT (id = ANY(NULL)) is NULL in Postgres, so nothing qualifies.
		return []sqlcgen.Question{}, nil
	}
	return d.selectQuestions(func(q sqlcgen.Question) bool {
		if arg.CategoryID.Valid && q.Category != arg.CategoryID.Int32 {
			return false
		}
		return !slices.Contains(arg.Excluded, q.ID)
	})
}

func (d *DB) selectQuestions(keep func(sqlcgen.Question) bool) ([]sqlcgen.Question, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Fail != nil {
		return nil, d.Fail
	}
	var out []sqlcgen.Question
	for _, q := range d.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	slices.SortFunc(out, func(a, b sqlcgen.Question) int { return int(a.ID - b.ID) })
	return out, nil
}
