// seed creates an admin account and a handful of sample posts in the local
// dev database. Re-running it leaves existing data alone.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/cache"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/blog-cms/internal/usecase"
)

const (
	defaultEmail    = "admin@blog.local"
	defaultPassword = "change-me-please"
)

var posts = []usecase.CreatePostInput{
	{
		Title:    "Hello, World!",
		Content:  `<p>The first post.</p><img src="https://picsum.photos/seed/hello/1200/630" alt="">`,
		Category: "Announcements",
		Tags:     []string{"meta", "intro"},
		Status:   domain.PostStatusPublished,
	},
	{
		Title:    "Writing Go the boring way",
		Content:  `<p>Small packages, explicit errors, few surprises.</p>`,
		Category: "Engineering",
		Tags:     []string{"go", "style"},
		Status:   domain.PostStatusPublished,
	},
	{
		Title:   "Caching the home page",
		Content: `<p>One minute of staleness buys a lot of database headroom.</p>`,
		Tags:    []string{"go", "performance"},
		Status:  domain.PostStatusPublished,
	},
	{
		Title:    "Unfinished thoughts",
		Content:  `<p>Not ready yet.</p>`,
		Category: "Engineering",
		Status:   domain.PostStatusDraft,
	},
}

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	email := envOr("SEED_EMAIL", defaultEmail)
	password := envOr("SEED_PASSWORD", defaultPassword)

	if err := postgres.Migrate(ctx, dbURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := postgres.NewUserRepository(pool)

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}
	user, err := users.Create(ctx, email, hash)
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		user, err = users.FindByEmail(ctx, email)
		if err != nil {
			log.Fatalf("find user: %v", err)
		}
		fmt.Printf("  User %s already exists, password unchanged\n", email)
	case err != nil:
		log.Fatalf("create user: %v", err)
	}

	postRepo := postgres.NewPostRepository(pool, logger)
	uc := usecase.NewPostUsecase(postRepo, postgres.NewCategoryRepository(pool),
		cache.NewMemoryStore(cache.Options{}), 0, logger)

	existing, err := uc.ListAdmin(ctx)
	if err != nil {
		log.Fatalf("list posts: %v", err)
	}

	var created int
	if len(existing) == 0 {
		for _, in := range posts {
			p, err := uc.Create(ctx, in)
			if err != nil {
				log.Fatalf("create post %q: %v", in.Title, err)
			}
			fmt.Printf("  %-10s %s\n", p.Status, p.Slug)
			created++
		}
	}

	fmt.Println()
	fmt.Println("Seed complete")
	fmt.Printf("  Admin:         %s (id %d)\n", user.Email, user.ID)
	fmt.Printf("  Posts created: %d  (%d already present)\n", created, len(existing))
	fmt.Println()
	fmt.Println("Try:")
	fmt.Printf("  blogctl login -e %s -p <password>\n", user.Email)
	fmt.Println("  blogctl posts")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
