package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ErlanBelekov/blog-cms/internal/content"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/repository"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, slug, title, content, cover, status, category_id, created_at`

type PostRepository struct {
	pool   Pool
	logger *slog.Logger
}

func NewPostRepository(pool Pool, logger *slog.Logger) *PostRepository {
	return &PostRepository{pool: pool, logger: logger.With("component", "post_repo")}
}

// Create inserts the post together with its category and tags. Either all
// rows are committed or none are.
func (r *PostRepository) Create(ctx context.Context, in repository.CreatePostInput) (*domain.Post, error) {
	var created *domain.Post

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		slug, err := content.UniqueSlug(ctx, in.SlugBase, func(ctx context.Context, s string) (bool, error) {
			return slugExists(ctx, tx, s)
		})
		if err != nil {
			return err
		}

		cat, err := upsertCategory(ctx, tx, in.CategoryName)
		if err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO posts (slug, title, content, cover, status, category_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+postColumns,
			slug, in.Title, in.Content, in.Cover, string(in.Status), cat.ID,
		)
		p, err := scanPost(row)
		if err != nil {
			if isUniqueViolation(err, "posts_slug_unique") {
				return domain.ErrSlugTaken
			}
			return fmt.Errorf("insert post: %w", err)
		}
		p.Category = cat

		p.Tags = make([]domain.Tag, 0, len(in.TagNames))
		for _, name := range in.TagNames {
			tag, err := upsertTag(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO posts_to_tags (post_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
				p.ID, tag.ID,
			); err != nil {
				return fmt.Errorf("link tag %q: %w", name, err)
			}
			p.Tags = append(p.Tags, *tag)
		}

		created = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "post created", "post_id", created.ID, "slug", created.Slug)
	return created, nil
}

// Update applies the non-nil fields of in. Changing the category upserts it
// in the same transaction as the row update.
func (r *PostRepository) Update(ctx context.Context, id int64, in repository.UpdatePostInput) (*domain.Post, error) {
	var updated *domain.Post

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		args := []any{id}
		var sets []string
		set := func(col string, v any) {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}

		if in.Title != nil {
			set("title", *in.Title)
		}
		if in.Content != nil {
			set("content", *in.Content)
		}
		if in.Cover != nil {
			set("cover", *in.Cover)
		}
		if in.Status != nil {
			set("status", string(*in.Status))
		}
		if in.CategoryName != nil {
			cat, err := upsertCategory(ctx, tx, *in.CategoryName)
			if err != nil {
				return err
			}
			set("category_id", cat.ID)
		}

		var row pgx.Row
		if len(sets) == 0 {
			row = tx.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
		} else {
			row = tx.QueryRow(ctx,
				fmt.Sprintf(`UPDATE posts SET %s WHERE id = $1 RETURNING %s`, strings.Join(sets, ", "), postColumns),
				args...)
		}
		p, err := scanPost(row)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	return scanPost(row)
}

func (r *PostRepository) GetPublishedBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM posts WHERE slug = $1 AND status = 'published'`, slug)
	p, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	if err := attachRelations(ctx, r.pool, []*domain.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostRepository) ListAll(ctx context.Context) ([]*domain.Post, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return collectPosts(rows)
}

func (r *PostRepository) ListPublished(ctx context.Context, category string) ([]*domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE status = 'published'`
	var args []any

	if filter := strings.TrimSpace(category); filter != "" && filter != "all" {
		var categoryID int64
		err := r.pool.QueryRow(ctx,
			`SELECT id FROM categories WHERE slug = $1 OR name = $1 ORDER BY id LIMIT 1`, filter,
		).Scan(&categoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return []*domain.Post{}, nil
			}
			return nil, fmt.Errorf("resolve category filter: %w", err)
		}
		query += ` AND category_id = $1`
		args = append(args, categoryID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	posts, err := collectPosts(rows)
	if err != nil {
		return nil, err
	}
	if err := attachRelations(ctx, r.pool, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func slugExists(ctx context.Context, q querier, slug string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// upsertCategory resolves a category by exact name, creating it when absent.
// A blank name resolves to the default category.
func upsertCategory(ctx context.Context, q querier, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	slug := content.Slugify(name)
	if name == "" {
		name, slug = domain.DefaultCategoryName, domain.DefaultCategorySlug
	}
	if slug == "" {
		slug = name
	}

	var c domain.Category
	err := q.QueryRow(ctx, `
		INSERT INTO categories (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, slug`,
		name, slug,
	).Scan(&c.ID, &c.Name, &c.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert category %q: %w", name, err)
	}
	return &c, nil
}

func upsertTag(ctx context.Context, q querier, name string) (*domain.Tag, error) {
	slug := content.Slugify(name)
	if slug == "" {
		slug = name
	}

	var t domain.Tag
	err := q.QueryRow(ctx, `
		INSERT INTO tags (name, slug) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, slug`,
		name, slug,
	).Scan(&t.ID, &t.Name, &t.Slug)
	if err != nil {
		return nil, fmt.Errorf("upsert tag %q: %w", name, err)
	}
	return &t, nil
}

// attachRelations loads categories and tags for posts with two queries,
// independent of the number of posts.
func attachRelations(ctx context.Context, q querier, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Post, len(posts))
	postIDs := make([]int64, 0, len(posts))
	var categoryIDs []int64
	seenCategory := make(map[int64]struct{})
	for _, p := range posts {
		byID[p.ID] = p
		postIDs = append(postIDs, p.ID)
		p.Tags = []domain.Tag{}
		if p.CategoryID != nil {
			if _, ok := seenCategory[*p.CategoryID]; !ok {
				seenCategory[*p.CategoryID] = struct{}{}
				categoryIDs = append(categoryIDs, *p.CategoryID)
			}
		}
	}

	if len(categoryIDs) > 0 {
		rows, err := q.Query(ctx, `SELECT id, name, slug FROM categories WHERE id = ANY($1)`, categoryIDs)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		categories := make(map[int64]*domain.Category)
		for rows.Next() {
			var c domain.Category
			if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
				rows.Close()
				return fmt.Errorf("scan category: %w", err)
			}
			categories[c.ID] = &c
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate categories: %w", err)
		}
		for _, p := range posts {
			if p.CategoryID != nil {
				p.Category = categories[*p.CategoryID]
			}
		}
	}

	rows, err := q.Query(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug
		FROM posts_to_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY pt.post_id, t.id`, postIDs)
	if err != nil {
		return fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var postID int64
		var t domain.Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug); err != nil {
			return fmt.Errorf("scan tag: %w", err)
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate tags: %w", err)
	}
	return nil
}

func collectPosts(rows pgx.Rows) ([]*domain.Post, error) {
	defer rows.Close()

	posts := []*domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	err := row.Scan(&p.ID, &p.Slug, &p.Title, &p.Content, &p.Cover, &p.Status, &p.CategoryID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPostNotFound
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	return &p, nil
}
