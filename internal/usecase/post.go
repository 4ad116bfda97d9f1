package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/blog-cms/internal/cache"
	"github.com/ErlanBelekov/blog-cms/internal/content"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/metrics"
	"github.com/ErlanBelekov/blog-cms/internal/repository"
)

const publishedListKeyPrefix = "posts_home_"

type CreatePostInput struct {
	Title    string
	Content  string
	Cover    *string
	Category string
	Tags     []string
	Status   domain.PostStatus
}

// UpdatePostInput holds the fields to change; nil leaves a field untouched.
type UpdatePostInput struct {
	Title    *string
	Content  *string
	Cover    *string
	Status   *domain.PostStatus
	Category *string
}

type PostUsecase struct {
	posts      repository.PostRepository
	categories repository.CategoryRepository
	cache      cache.Store
	listTTL    time.Duration
	logger     *slog.Logger
}

// NewPostUsecase wires the public listing through store with the given TTL.
func NewPostUsecase(
	posts repository.PostRepository,
	categories repository.CategoryRepository,
	store cache.Store,
	listTTL time.Duration,
	logger *slog.Logger,
) *PostUsecase {
	return &PostUsecase{
		posts:      posts,
		categories: categories,
		cache:      store,
		listTTL:    listTTL,
		logger:     logger.With("component", "post_usecase"),
	}
}

func (u *PostUsecase) Create(ctx context.Context, in CreatePostInput) (*domain.Post, error) {
	status := in.Status
	if status == "" {
		status = domain.PostStatusDraft
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}

	cover := nonEmpty(in.Cover)
	if cover == nil {
		cover = derivedCover(in.Content)
	}

	post, err := u.posts.Create(ctx, repository.CreatePostInput{
		SlugBase:     content.SlugBase(in.Title),
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		Cover:        cover,
		CategoryName: strings.TrimSpace(in.Category),
		TagNames:     content.NormalizeTags(in.Tags),
		Status:       status,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	metrics.PostsCreatedTotal.Inc()
	return post, nil
}

// Update applies a partial change. When the content changes, no cover is
// supplied and the post has none yet, the cover is re-derived from the new
// content.
func (u *PostUsecase) Update(ctx context.Context, id int64, in UpdatePostInput) (*domain.Post, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, domain.ErrInvalidTitle
	}

	patch := repository.UpdatePostInput{
		Title:        trimmed(in.Title),
		Content:      in.Content,
		Cover:        nonEmpty(in.Cover),
		Status:       in.Status,
		CategoryName: trimmed(in.Category),
	}

	if patch.Cover == nil && in.Content != nil {
		existing, err := u.posts.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load post: %w", err)
		}
		if nonEmpty(existing.Cover) == nil {
			patch.Cover = derivedCover(*in.Content)
		}
	}

	post, err := u.posts.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

func (u *PostUsecase) UpdateStatus(ctx context.Context, id int64, status domain.PostStatus) (*domain.Post, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	post, err := u.posts.Update(ctx, id, repository.UpdatePostInput{Status: &status})
	if err != nil {
		return nil, fmt.Errorf("update post status: %w", err)
	}
	return post, nil
}

func (u *PostUsecase) ListAdmin(ctx context.Context) ([]*domain.Post, error) {
	posts, err := u.posts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

func (u *PostUsecase) GetBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	post, err := u.posts.GetPublishedBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListCategories returns every category, creating the default one first so
// that the list is never empty.
func (u *PostUsecase) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	if _, err := u.categories.EnsureDefault(ctx); err != nil {
		return nil, fmt.Errorf("ensure default category: %w", err)
	}
	categories, err := u.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// ListPublished returns the JSON-encoded public listing for category ("" or
// "all" for every category). Results are served from the cache until the
// list TTL elapses. Cache failures fall through to the database.
func (u *PostUsecase) ListPublished(ctx context.Context, category string) ([]byte, error) {
	category = strings.TrimSpace(category)
	key := publishedListKeyPrefix + category
	if category == "" {
		key = publishedListKeyPrefix + "all"
	}

	cached, ok, err := u.cache.Get(ctx, key)
	switch {
	case err != nil:
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		u.logger.WarnContext(ctx, "cache get failed", "key", key, "error", err)
	case ok:
		metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	default:
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
	}

	posts, err := u.posts.ListPublished(ctx, category)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	body, err := json.Marshal(posts)
	if err != nil {
		return nil, fmt.Errorf("encode posts: %w", err)
	}

	if err := u.cache.Set(ctx, key, body, u.listTTL); err != nil {
		u.logger.WarnContext(ctx, "cache set failed", "key", key, "error", err)
	}
	return body, nil
}

func derivedCover(html string) *string {
	if url := content.FirstImageURL(html); url != "" {
		return &url
	}
	return nil
}

// nonEmpty treats an empty or blank string the same as an absent one.
func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
