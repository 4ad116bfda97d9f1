package usecase_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/email"
	"github.com/ErlanBelekov/blog-cms/internal/repository"
)

type fakeUserRepo struct {
	create      func(ctx context.Context, email, passwordHash string) (*domain.User, error)
	findByID    func(ctx context.Context, id int64) (*domain.User, error)
	findByEmail func(ctx context.Context, email string) (*domain.User, error)
}

func (r *fakeUserRepo) Create(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	return r.create(ctx, email, passwordHash)
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findByID(ctx, id)
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findByEmail(ctx, email)
}

type fakeEmailSender struct {
	send func(ctx context.Context, msg email.Message) error
}

func (s *fakeEmailSender) Send(ctx context.Context, msg email.Message) error {
	return s.send(ctx, msg)
}

type fakePostRepo struct {
	create             func(ctx context.Context, in repository.CreatePostInput) (*domain.Post, error)
	update             func(ctx context.Context, id int64, in repository.UpdatePostInput) (*domain.Post, error)
	getByID            func(ctx context.Context, id int64) (*domain.Post, error)
	getPublishedBySlug func(ctx context.Context, slug string) (*domain.Post, error)
	listAll            func(ctx context.Context) ([]*domain.Post, error)
	listPublished      func(ctx context.Context, category string) ([]*domain.Post, error)
}

func (r *fakePostRepo) Create(ctx context.Context, in repository.CreatePostInput) (*domain.Post, error) {
	return r.create(ctx, in)
}

func (r *fakePostRepo) Update(ctx context.Context, id int64, in repository.UpdatePostInput) (*domain.Post, error) {
	return r.update(ctx, id, in)
}

func (r *fakePostRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	return r.getByID(ctx, id)
}

func (r *fakePostRepo) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	return r.getPublishedBySlug(ctx, slug)
}

func (r *fakePostRepo) ListAll(ctx context.Context) ([]*domain.Post, error) {
	return r.listAll(ctx)
}

func (r *fakePostRepo) ListPublished(ctx context.Context, category string) ([]*domain.Post, error) {
	return r.listPublished(ctx, category)
}

type fakeCategoryRepo struct {
	ensureDefault func(ctx context.Context) (*domain.Category, error)
	list          func(ctx context.Context) ([]*domain.Category, error)
}

func (r *fakeCategoryRepo) EnsureDefault(ctx context.Context) (*domain.Category, error) {
	return r.ensureDefault(ctx)
}

func (r *fakeCategoryRepo) List(ctx context.Context) ([]*domain.Category, error) {
	return r.list(ctx)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }
