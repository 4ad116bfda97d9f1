package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

const (
	errUnauthorized = "Unauthorized"

	// UserKey is the gin context key holding the authenticated domain.AuthUser.
	UserKey = "user"
)

// TokenVerifier resolves a bearer token to a user. Any error means the
// token is not acceptable.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error)
}

// Auth requires a valid Bearer token: signature, expiry and an existing user.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		rawToken := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if rawToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		user, err := verifier.VerifyToken(c.Request.Context(), rawToken)
		if err != nil || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}

		c.Set(UserKey, *user)
		c.Next()
	}
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c *gin.Context) (domain.AuthUser, bool) {
	v, ok := c.Get(UserKey)
	if !ok {
		return domain.AuthUser{}, false
	}
	user, ok := v.(domain.AuthUser)
	return user, ok
}
