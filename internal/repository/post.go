package repository

import (
	"context"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

// CreatePostInput is fully normalised by the use case: the slug base is
// already derived, the cover already resolved and the tags trimmed and
// de-duplicated. An empty CategoryName selects the default category.
type CreatePostInput struct {
	SlugBase     string
	Title        string
	Content      string
	Cover        *string
	CategoryName string
	TagNames     []string
	Status       domain.PostStatus
}

// UpdatePostInput holds the fields to change; nil means "leave as is".
// A non-nil empty CategoryName moves the post to the default category.
type UpdatePostInput struct {
	Title        *string
	Content      *string
	Cover        *string
	Status       *domain.PostStatus
	CategoryName *string
}

type PostRepository interface {
	// Create runs slug probing, category/tag upserts and the insert in a
	// single transaction.
	Create(ctx context.Context, input CreatePostInput) (*domain.Post, error)
	Update(ctx context.Context, id int64, input UpdatePostInput) (*domain.Post, error)
	GetByID(ctx context.Context, id int64) (*domain.Post, error)
	GetPublishedBySlug(ctx context.Context, slug string) (*domain.Post, error)
	ListAll(ctx context.Context) ([]*domain.Post, error)

	// ListPublished filters by category slug or name; an unknown category
	// yields an empty list. Posts come back with category and tags attached.
	ListPublished(ctx context.Context, category string) ([]*domain.Post, error)
}

type CategoryRepository interface {
	EnsureDefault(ctx context.Context) (*domain.Category, error)
	List(ctx context.Context) ([]*domain.Category, error)
}
