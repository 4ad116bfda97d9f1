package domain

import (
	"errors"
	"time"
)

var (
	ErrPostNotFound         = errors.New("post not found")
	ErrSlugTaken            = errors.New("slug already taken")
	ErrInvalidStatus        = errors.New("invalid post status")
	ErrInvalidTitle         = errors.New("post title must not be blank")
	ErrStorageNotConfigured = errors.New("object storage is not configured")
)

type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

func (s PostStatus) Valid() bool {
	return s == PostStatusDraft || s == PostStatusPublished
}

// Every post without an explicit category lands here. The row is created
// lazily and only once.
const (
	DefaultCategoryName = "Uncategorized"
	DefaultCategorySlug = "uncategorized"
)

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Post struct {
	ID         int64      `json:"id"`
	Slug       string     `json:"slug"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Cover      *string    `json:"cover"` // nil means no cover
	Status     PostStatus `json:"status"`
	CategoryID *int64     `json:"category_id"`
	CreatedAt  time.Time  `json:"created_at"`

	// Populated by queries that join relations; nil/empty otherwise.
	Category *Category `json:"category,omitempty"`
	Tags     []Tag     `json:"tags,omitempty"`
}
