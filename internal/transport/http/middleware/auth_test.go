package middleware_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/transport/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verify func(ctx context.Context, token string) (*domain.AuthUser, error)
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error) {
	return f.verify(ctx, token)
}

// newEngine protects GET /protected with Auth; the handler echoes the user.
func newEngine(v middleware.TokenVerifier) *gin.Engine {
	r := gin.New()
	r.GET("/protected", middleware.Auth(v), func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, "%d:%s", user.ID, user.Email)
	})
	return r
}

var acceptGood = &fakeVerifier{
	verify: func(_ context.Context, token string) (*domain.AuthUser, error) {
		if token != "good" {
			return nil, domain.ErrTokenInvalid
		}
		return &domain.AuthUser{ID: 7, Email: "admin@example.com"}, nil
	},
}

func TestAuth_MissingHeader_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	newEngine(acceptGood).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w.Body.String() != `{"error":"Unauthorized"}` {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestAuth_NonBearerScheme_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	newEngine(acceptGood).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_EmptyBearer_Returns401WithoutVerifying(t *testing.T) {
	v := &fakeVerifier{
		verify: func(context.Context, string) (*domain.AuthUser, error) {
			t.Fatal("verifier must not be called")
			return nil, nil
		},
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer ")
	newEngine(v).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_InvalidToken_Returns401(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad")
	newEngine(acceptGood).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuth_ValidToken_SetsUser(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	newEngine(acceptGood).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if want := fmt.Sprintf("%d:%s", 7, "admin@example.com"); w.Body.String() != want {
		t.Errorf("body = %q, want %q", w.Body.String(), want)
	}
}
