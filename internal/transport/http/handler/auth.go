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

// authUsecaser is the subset of AuthUsecase the handler needs.
type authUsecaser interface {
	Login(ctx context.Context, email, password string) (*usecase.LoginResult, error)
	Register(ctx context.Context, email, password, secret string) (*domain.AuthUser, error)
	VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error)
}

type AuthHandler struct {
	authUsecase authUsecaser
	logger      *slog.Logger
}

func NewAuthHandler(authUsecase authUsecaser, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authUsecase: authUsecase,
		logger:      logger.With("component", "auth_handler"),
	}
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	User  domain.AuthUser `json:"user"`
	Token string          `json:"token"`
}

type registerRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Secret   string `json:"secret"   binding:"required"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type verifyTokenResponse struct {
	Valid bool             `json:"valid"`
	User  *domain.AuthUser `json:"user"`
}

// POST /api/rpc/authLogin
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.authUsecase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "login", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusOK, loginResponse{User: res.User, Token: res.Token})
}

// POST /api/rpc/authRegister
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.authUsecase.Register(c.Request.Context(), req.Email, req.Password, req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRegistrationDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": errRegistrationDisabled})
		case errors.Is(err, domain.ErrInvalidRegistrationSecret):
			c.JSON(http.StatusForbidden, gin.H{"error": errInvalidRegistrationSecret})
		case errors.Is(err, domain.ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": errEmailTaken})
		default:
			h.logger.ErrorContext(c.Request.Context(), "register", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// POST /api/rpc/verifyToken
// Always 200; the body says whether the token is valid, never why not.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req verifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		c.JSON(http.StatusOK, verifyTokenResponse{Valid: false})
		return
	}

	user, err := h.authUsecase.VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusOK, verifyTokenResponse{Valid: false})
		return
	}

	c.JSON(http.StatusOK, verifyTokenResponse{Valid: true, User: user})
}
