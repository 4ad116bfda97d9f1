package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/client"
	"github.com/ErlanBelekov/blog-cms/internal/client/guard"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

type fakeAPI struct {
	verifyCalls atomic.Int32
	adminCalls  atomic.Int32
	token       string
	revoked     bool // admin procedures answer 401
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/api/rpc/posts":
		_ = json.NewEncoder(w).Encode([]domain.Post{{ID: 1, Slug: "hello", Title: "Hello", Status: domain.PostStatusPublished}})
	case "/api/rpc/authLogin":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"user":  domain.AuthUser{ID: 1, Email: "admin@example.com"},
			"token": f.token,
		})
	case "/api/rpc/verifyToken":
		f.verifyCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"valid": true,
			"user":  domain.AuthUser{ID: 1, Email: "admin@example.com"},
		})
	case "/api/rpc/listAdminPosts", "/api/rpc/updatePostStatus":
		f.adminCalls.Add(1)
		if f.revoked {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"Unauthorized"}`)
			return
		}
		if r.URL.Path == "/api/rpc/updatePostStatus" {
			_, _ = io.WriteString(w, `{"post":{"id":7,"status":"published"}}`)
			return
		}
		_ = json.NewEncoder(w).Encode([]domain.Post{{ID: 7, Slug: "draft", Status: domain.PostStatusDraft}})
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"Not found"}`)
	}
}

func run(t *testing.T, srvURL, tokenFile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", srvURL, "--token-file", tokenFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func issueToken(t *testing.T) string {
	t.Helper()
	svc, err := auth.NewTokenService([]byte("blogctl-test-secret-0123456789abcdef"), time.Hour)
	require.NoError(t, err)
	tok, _, err := svc.Issue(domain.AuthUser{ID: 1, Email: "admin@example.com"})
	require.NoError(t, err)
	return tok
}

func TestPosts_PrintsJSON(t *testing.T) {
	srv := httptest.NewServer(&fakeAPI{})
	defer srv.Close()

	out, err := run(t, srv.URL, filepath.Join(t.TempDir(), "token.json"), "posts")
	require.NoError(t, err)
	require.Contains(t, out, `"slug": "hello"`)
}

func TestAdminCommand_WithoutLogin(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	_, err := run(t, srv.URL, filepath.Join(t.TempDir(), "token.json"), "admin-posts")
	require.ErrorIs(t, err, guard.ErrNotAuthenticated)
	require.Zero(t, api.verifyCalls.Load())
}

func TestLoginThenStatus(t *testing.T) {
	api := &fakeAPI{token: issueToken(t)}
	srv := httptest.NewServer(api)
	defer srv.Close()
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	out, err := run(t, srv.URL, tokenFile, "login", "-e", "admin@example.com", "-p", "secret123")
	require.NoError(t, err)
	require.Contains(t, out, "logged in as admin@example.com")

	out, err = run(t, srv.URL, tokenFile, "status")
	require.NoError(t, err)
	require.Equal(t, "valid as admin@example.com\n", out)
	require.Equal(t, int32(1), api.verifyCalls.Load())

	_, err = run(t, srv.URL, tokenFile, "logout")
	require.NoError(t, err)

	out, err = run(t, srv.URL, tokenFile, "status")
	require.NoError(t, err)
	require.Equal(t, "invalid\n", out)
}

func TestAdminCommands_ReuseVerificationWindow(t *testing.T) {
	api := &fakeAPI{token: issueToken(t)}
	srv := httptest.NewServer(api)
	defer srv.Close()
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	_, err := run(t, srv.URL, tokenFile, "login", "-e", "admin@example.com", "-p", "secret123")
	require.NoError(t, err)

	out, err := run(t, srv.URL, tokenFile, "admin-posts")
	require.NoError(t, err)
	require.Contains(t, out, `"slug": "draft"`)

	out, err = run(t, srv.URL, tokenFile, "publish", "7")
	require.NoError(t, err)
	require.Equal(t, "post 7 is now published\n", out)

	require.Equal(t, int32(1), api.verifyCalls.Load())
	require.Equal(t, int32(2), api.adminCalls.Load())
}

func TestAdminCommands_ServerRejectionClearsToken(t *testing.T) {
	for _, args := range [][]string{{"admin-posts"}, {"publish", "7"}} {
		t.Run(args[0], func(t *testing.T) {
			api := &fakeAPI{token: issueToken(t), revoked: true}
			srv := httptest.NewServer(api)
			defer srv.Close()
			tokenFile := filepath.Join(t.TempDir(), "token.json")

			_, err := run(t, srv.URL, tokenFile, "login", "-e", "admin@example.com", "-p", "secret123")
			require.NoError(t, err)

			_, err = run(t, srv.URL, tokenFile, args...)
			require.Error(t, err)
			require.True(t, client.IsUnauthorized(err))

			tok, err := client.NewFileTokenStore(tokenFile).Load()
			require.NoError(t, err)
			require.Empty(t, tok)

			_, err = run(t, srv.URL, tokenFile, args...)
			require.ErrorIs(t, err, guard.ErrNotAuthenticated)
			require.Equal(t, int32(1), api.adminCalls.Load())
		})
	}
}

func TestStatusChange_RejectsBadID(t *testing.T) {
	_, err := run(t, "http://127.0.0.1:1", filepath.Join(t.TempDir(), "token.json"), "publish", "abc")
	require.ErrorContains(t, err, "invalid post id")
}
