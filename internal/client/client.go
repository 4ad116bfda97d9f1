// Package client is a typed Go client for the blog RPC endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

const rpcPrefix = "/api/rpc/"

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type LoginResponse struct {
	User  domain.AuthUser `json:"user"`
	Token string          `json:"token"`
}

type VerifyResult struct {
	Valid bool             `json:"valid"`
	User  *domain.AuthUser `json:"user"`
}

type CreatePostRequest struct {
	Title    string            `json:"title"`
	Content  string            `json:"content,omitempty"`
	Cover    *string           `json:"cover,omitempty"`
	Category string            `json:"category,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Status   domain.PostStatus `json:"status,omitempty"`
}

type UpdatePostRequest struct {
	ID       int64              `json:"id"`
	Title    *string            `json:"title,omitempty"`
	Content  *string            `json:"content,omitempty"`
	Cover    *string            `json:"cover,omitempty"`
	Status   *domain.PostStatus `json:"status,omitempty"`
	Category *string            `json:"category,omitempty"`
}

type UploadURL struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Key       string `json:"key"`
}

type postEnvelope struct {
	Post *domain.Post `json:"post"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	in := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, http.MethodPost, "authLogin", "", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, email, password, secret string) (*domain.AuthUser, error) {
	var out struct {
		User domain.AuthUser `json:"user"`
	}
	in := map[string]string{"email": email, "password": password, "secret": secret}
	if err := c.call(ctx, http.MethodPost, "authRegister", "", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) VerifyToken(ctx context.Context, token string) (*VerifyResult, error) {
	var out VerifyResult
	if err := c.call(ctx, http.MethodPost, "verifyToken", "", nil, map[string]string{"token": token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Posts(ctx context.Context, category string) ([]domain.Post, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	var out []domain.Post
	if err := c.call(ctx, http.MethodGet, "posts", "", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) PostBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var out domain.Post
	if err := c.call(ctx, http.MethodGet, "postBySlug", "", url.Values{"slug": {slug}}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.call(ctx, http.MethodGet, "listCategories", "", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListAdminPosts(ctx context.Context, token string) ([]domain.Post, error) {
	var out []domain.Post
	if err := c.call(ctx, http.MethodGet, "listAdminPosts", token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePost(ctx context.Context, token string, in CreatePostRequest) (*domain.Post, error) {
	var out postEnvelope
	if err := c.call(ctx, http.MethodPost, "createPost", token, nil, in, &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

func (c *Client) UpdatePost(ctx context.Context, token string, in UpdatePostRequest) (*domain.Post, error) {
	var out postEnvelope
	if err := c.call(ctx, http.MethodPost, "updatePost", token, nil, in, &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

// UpdatePostStatus returns a post carrying only ID and Status.
func (c *Client) UpdatePostStatus(ctx context.Context, token string, id int64, status domain.PostStatus) (*domain.Post, error) {
	var out postEnvelope
	in := map[string]any{"id": id, "status": status}
	if err := c.call(ctx, http.MethodPost, "updatePostStatus", token, nil, in, &out); err != nil {
		return nil, err
	}
	return out.Post, nil
}

func (c *Client) UploadURL(ctx context.Context, token, filename, contentType string) (*UploadURL, error) {
	var out UploadURL
	in := map[string]string{"filename": filename, "contentType": contentType}
	if err := c.call(ctx, http.MethodPost, "uploadUrl", token, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// call performs one RPC. GET procedures take query parameters, POST
// procedures a JSON body.
func (c *Client) call(ctx context.Context, method, procedure, token string, query url.Values, in, out any) error {
	endpoint := c.baseURL + rpcPrefix + procedure
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", procedure, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", procedure, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", procedure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", procedure, err)
	}
	return nil
}
