package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/usecase"
)

type postUsecaser interface {
	Create(ctx context.Context, in usecase.CreatePostInput) (*domain.Post, error)
	Update(ctx context.Context, id int64, in usecase.UpdatePostInput) (*domain.Post, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PostStatus) (*domain.Post, error)
	ListAdmin(ctx context.Context) ([]*domain.Post, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Post, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	ListPublished(ctx context.Context, category string) ([]byte, error)
}

type PostHandler struct {
	postUsecase postUsecaser
	logger      *slog.Logger
}

func NewPostHandler(postUsecase postUsecaser, logger *slog.Logger) *PostHandler {
	return &PostHandler{postUsecase: postUsecase, logger: logger.With("component", "post_handler")}
}

type createPostRequest struct {
	Title    string            `json:"title"    binding:"required"`
	Content  string            `json:"content"`
	Cover    *string           `json:"cover"`
	Category string            `json:"category"`
	Tags     []string          `json:"tags"`
	Status   domain.PostStatus `json:"status"   binding:"omitempty,oneof=draft published"`
}

type updatePostRequest struct {
	ID       int64              `json:"id"       binding:"required,gt=0"`
	Title    *string            `json:"title"    binding:"omitempty,min=1"`
	Content  *string            `json:"content"`
	Cover    *string            `json:"cover"`
	Status   *domain.PostStatus `json:"status"   binding:"omitempty,oneof=draft published"`
	Category *string            `json:"category"`
}

type updatePostStatusRequest struct {
	ID     int64             `json:"id"     binding:"required,gt=0"`
	Status domain.PostStatus `json:"status" binding:"required,oneof=draft published"`
}

type postStatusResponse struct {
	ID     int64             `json:"id"`
	Status domain.PostStatus `json:"status"`
}

// GET /api/rpc/posts?category=
// The body comes pre-encoded from the listing cache.
func (h *PostHandler) ListPublished(c *gin.Context) {
	body, err := h.postUsecase.ListPublished(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list published posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GET /api/rpc/postBySlug?slug=
func (h *PostHandler) GetBySlug(c *gin.Context) {
	slug := c.Query("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMissingSlug})
		return
	}

	post, err := h.postUsecase.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		h.respondError(c, "get post by slug", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// GET /api/rpc/listCategories
func (h *PostHandler) ListCategories(c *gin.Context) {
	categories, err := h.postUsecase.ListCategories(c.Request.Context())
	if err != nil {
		h.respondError(c, "list categories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// GET /api/rpc/listAdminPosts
func (h *PostHandler) ListAdmin(c *gin.Context) {
	posts, err := h.postUsecase.ListAdmin(c.Request.Context())
	if err != nil {
		h.respondError(c, "list admin posts", err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// POST /api/rpc/createPost
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postUsecase.Create(c.Request.Context(), usecase.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Cover:    req.Cover,
		Category: req.Category,
		Tags:     req.Tags,
		Status:   req.Status,
	})
	if err != nil {
		h.respondError(c, "create post", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

// POST /api/rpc/updatePost
func (h *PostHandler) Update(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postUsecase.Update(c.Request.Context(), req.ID, usecase.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Cover:    req.Cover,
		Status:   req.Status,
		Category: req.Category,
	})
	if err != nil {
		h.respondError(c, "update post", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post})
}

// POST /api/rpc/updatePostStatus
func (h *PostHandler) UpdateStatus(c *gin.Context) {
	var req updatePostStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.postUsecase.UpdateStatus(c.Request.Context(), req.ID, req.Status)
	if err != nil {
		h.respondError(c, "update post status", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": postStatusResponse{ID: post.ID, Status: post.Status}})
}

func (h *PostHandler) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": errPostNotFound})
	case errors.Is(err, domain.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": errSlugTaken})
	case errors.Is(err, domain.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidStatus})
	case errors.Is(err, domain.ErrInvalidTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": errBlankTitle})
	default:
		h.logger.ErrorContext(c.Request.Context(), op, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
	}
}
