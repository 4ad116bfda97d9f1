package postgres

import (
	"context"
	"fmt"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

type CategoryRepository struct {
	pool Pool
}

func NewCategoryRepository(pool Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// EnsureDefault creates the default category on first use and returns it.
func (r *CategoryRepository) EnsureDefault(ctx context.Context) (*domain.Category, error) {
	return upsertCategory(ctx, r.pool, "")
}

func (r *CategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}
