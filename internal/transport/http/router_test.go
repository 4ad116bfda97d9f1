package httptransport_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
	"github.com/ErlanBelekov/blog-cms/internal/storage"
	httptransport "github.com/ErlanBelekov/blog-cms/internal/transport/http"
	"github.com/ErlanBelekov/blog-cms/internal/transport/http/handler"
	"github.com/ErlanBelekov/blog-cms/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuth struct{}

func (stubAuth) Login(context.Context, string, string) (*usecase.LoginResult, error) {
	return nil, domain.ErrInvalidCredentials
}
func (stubAuth) Register(context.Context, string, string, string) (*domain.AuthUser, error) {
	return nil, domain.ErrRegistrationDisabled
}
func (stubAuth) VerifyToken(_ context.Context, token string) (*domain.AuthUser, error) {
	if token == "good" {
		return &domain.AuthUser{ID: 1, Email: "admin@example.com"}, nil
	}
	return nil, domain.ErrTokenInvalid
}

type stubPosts struct{}

func (stubPosts) Create(context.Context, usecase.CreatePostInput) (*domain.Post, error) {
	return &domain.Post{ID: 1}, nil
}
func (stubPosts) Update(context.Context, int64, usecase.UpdatePostInput) (*domain.Post, error) {
	return &domain.Post{ID: 1}, nil
}
func (stubPosts) UpdateStatus(_ context.Context, id int64, s domain.PostStatus) (*domain.Post, error) {
	return &domain.Post{ID: id, Status: s}, nil
}
func (stubPosts) ListAdmin(context.Context) ([]*domain.Post, error) { return []*domain.Post{}, nil }
func (stubPosts) GetBySlug(context.Context, string) (*domain.Post, error) {
	return nil, domain.ErrPostNotFound
}
func (stubPosts) ListCategories(context.Context) ([]*domain.Category, error) {
	return []*domain.Category{}, nil
}
func (stubPosts) ListPublished(context.Context, string) ([]byte, error) { return []byte(`[]`), nil }

func newTestRouter() *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var up *storage.Uploader // unconfigured
	return httptransport.NewRouter(
		logger,
		handler.NewAuthHandler(stubAuth{}, logger),
		handler.NewPostHandler(stubPosts{}, logger),
		handler.NewUploadHandler(up, logger),
		stubAuth{},
	)
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicProcedures(t *testing.T) {
	r := newTestRouter()

	if w := do(r, http.MethodGet, "/api/rpc/posts", "", ""); w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Errorf("posts: %d %s", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodGet, "/api/rpc/listCategories", "", ""); w.Code != http.StatusOK {
		t.Errorf("listCategories: %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/rpc/verifyToken", "", `{"token":"good"}`); !strings.Contains(w.Body.String(), `"valid":true`) {
		t.Errorf("verifyToken: %s", w.Body.String())
	}
	if w := do(r, http.MethodGet, "/api/rpc/posts", "", ""); w.Header().Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}
}

func TestRouter_AdminProceduresRequireToken(t *testing.T) {
	r := newTestRouter()

	cases := []struct{ method, path, body string }{
		{http.MethodGet, "/api/rpc/listAdminPosts", ""},
		{http.MethodPost, "/api/rpc/createPost", `{"title":"x"}`},
		{http.MethodPost, "/api/rpc/updatePost", `{"id":1,"title":"x"}`},
		{http.MethodPost, "/api/rpc/updatePostStatus", `{"id":1,"status":"draft"}`},
		{http.MethodPost, "/api/rpc/uploadUrl", `{"filename":"a.png","contentType":"image/png"}`},
	}
	for _, tc := range cases {
		if w := do(r, tc.method, tc.path, "", tc.body); w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: %d", tc.path, w.Code)
		}
		if w := do(r, tc.method, tc.path, "bad", tc.body); w.Code != http.StatusUnauthorized {
			t.Errorf("%s with bad token: %d", tc.path, w.Code)
		}
	}

	if w := do(r, http.MethodGet, "/api/rpc/listAdminPosts", "good", ""); w.Code != http.StatusOK {
		t.Errorf("listAdminPosts with token: %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/rpc/uploadUrl", "good", `{"filename":"a.png","contentType":"image/png"}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("uploadUrl unconfigured: %d", w.Code)
	}
}
