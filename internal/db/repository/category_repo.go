package repository

import (
	"context"
	"fmt"

	sqlcgen "github.com/gokatarajesh/trivia-api/internal/db/sqlc"
)

type categoryStore interface {
	ListCategories(ctx context.Context) ([]sqlcgen.Category, error)
	GetCategory(ctx context.Context, id int32) (sqlcgen.Category, error)
}

// CategoryRepository provides read-only access to categories.
type CategoryRepository struct {
	store categoryStore
}

func NewCategoryRepository(store categoryStore) *CategoryRepository {
	return &CategoryRepository{store: store}
}

func (r *CategoryRepository) List(ctx context.Context) ([]sqlcgen.Category, error) {
	rows, err := r.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return rows, nil
}

// Get returns ErrNotFound for an unknown id.
func (r *CategoryRepository) Get(ctx context.Context, id int32) (sqlcgen.Category, error) {
	row, err := r.store.GetCategory(ctx, id)
	if err != nil {
		return sqlcgen.Category{}, notFoundOr(err, "get category %d", id)
	}
	return row, nil
}
