package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/metrics"
	"github.com/ErlanBelekov/blog-cms/internal/storage"
)

type uploader interface {
	PresignPut(ctx context.Context, filename, contentType string) (*storage.Upload, error)
}

type UploadHandler struct {
	uploader uploader
	logger   *slog.Logger
}

func NewUploadHandler(u uploader, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{uploader: u, logger: logger.With("component", "upload_handler")}
}

type uploadURLRequest struct {
	Filename    string `json:"filename"    binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// POST /api/rpc/uploadUrl
func (h *UploadHandler) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	up, err := h.uploader.PresignPut(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, domain.ErrStorageNotConfigured) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errStorageNotConfigured})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "presign upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	metrics.UploadURLsIssuedTotal.Inc()
	c.JSON(http.StatusOK, up)
}
