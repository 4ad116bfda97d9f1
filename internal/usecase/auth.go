package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/email"
	"github.com/ErlanBelekov/blog-cms/internal/metrics"
	"github.com/ErlanBelekov/blog-cms/internal/repository"
)

// RegistrationPolicy controls who may create an account. Registration
// requires the shared secret whenever it is enabled.
type RegistrationPolicy struct {
	Enabled bool
	Secret  string
}

type AuthUsecase struct {
	users        repository.UserRepository
	tokens       *auth.TokenService
	email        email.Sender
	registration RegistrationPolicy
	logger       *slog.Logger
}

func NewAuthUsecase(
	users repository.UserRepository,
	tokens *auth.TokenService,
	sender email.Sender,
	registration RegistrationPolicy,
	logger *slog.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		users:        users,
		tokens:       tokens,
		email:        sender,
		registration: registration,
		logger:       logger.With("component", "auth_usecase"),
	}
}

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	User      domain.AuthUser
	Token     string
	ExpiresAt time.Time
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (u *AuthUsecase) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	user, err := u.users.FindByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginsTotal.WithLabelValues("failure").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	identity := user.Identity()
	token, expiresAt, err := u.tokens.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	u.logger.InfoContext(ctx, "user logged in", "user_id", identity.ID)
	return &LoginResult{User: identity, Token: token, ExpiresAt: expiresAt}, nil
}

// Register creates an account. The notice email is best effort: a delivery
// failure is logged and does not undo the registration.
func (u *AuthUsecase) Register(ctx context.Context, emailAddr, password, secret string) (*domain.AuthUser, error) {
	if !u.registration.Enabled {
		return nil, domain.ErrRegistrationDisabled
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(u.registration.Secret)) != 1 {
		return nil, domain.ErrInvalidRegistrationSecret
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	addr := normalizeEmail(emailAddr)
	user, err := u.users.Create(ctx, addr, hash)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := u.email.Send(ctx, email.RegistrationNotice(addr)); err != nil {
		u.logger.WarnContext(ctx, "registration notice not sent", "user_id", user.ID, "error", err)
	}

	identity := user.Identity()
	u.logger.InfoContext(ctx, "user registered", "user_id", identity.ID)
	return &identity, nil
}

// VerifyToken checks signature and expiry, then re-resolves the user. Every
// failure collapses into domain.ErrTokenInvalid.
func (u *AuthUsecase) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	claims, err := u.tokens.Parse(token)
	if err != nil {
		return nil, u.rejectToken(ctx, "parse", err)
	}

	user, err := u.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, u.rejectToken(ctx, "lookup", err)
	}

	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	identity := user.Identity()
	return &identity, nil
}

func (u *AuthUsecase) rejectToken(ctx context.Context, stage string, cause error) error {
	metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
	u.logger.DebugContext(ctx, "token rejected", "stage", stage, "error", cause)
	return domain.ErrTokenInvalid
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
