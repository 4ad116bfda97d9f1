// Package guard gates admin operations of the client behind a verified
// session. A Guard moves through Unchecked, Checking, Valid and Invalid; the
// local expiry check only saves a round trip and never grants access.
package guard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/cache"
	"github.com/ErlanBelekov/blog-cms/internal/client"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

// VerificationTTL bounds how long a successful remote verification is reused.
const VerificationTTL = 5 * time.Minute

var (
	ErrClosed           = errors.New("guard closed")
	ErrNotAuthenticated = errors.New("not authenticated: login required")
)

type State int

const (
	Unchecked State = iota
	Checking
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Unchecked:
		return "unchecked"
	case Checking:
		return "checking"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Verifier is the remote token check; *client.Client satisfies it.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*client.VerifyResult, error)
}

// TokenStore is where the session token lives; client.TokenStore satisfies it.
type TokenStore interface {
	Load() (string, error)
	Clear() error
}

type Guard struct {
	verifier  Verifier
	store     TokenStore
	cache     cache.Store
	now       func() time.Time
	onInvalid func()
	logger    *slog.Logger

	closeCtx context.Context
	close    context.CancelFunc

	mu     sync.Mutex
	state  State
	token  string
	user   *domain.AuthUser
	closed bool
}

type Option func(*Guard)

// WithCache shares verification results between guards. Without it each
// guard gets a private store.
func WithCache(store cache.Store) Option {
	return func(g *Guard) { g.cache = store }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithRedirect registers the callback fired after the guard commits a
// transition into Invalid.
func WithRedirect(fn func()) Option {
	return func(g *Guard) { g.onInvalid = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

func New(verifier Verifier, store TokenStore, opts ...Option) *Guard {
	g := &Guard{
		verifier:  verifier,
		store:     store,
		now:       time.Now,
		onInvalid: func() {},
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cache == nil {
		g.cache = cache.NewMemoryStore(cache.Options{DefaultTTL: VerificationTTL, Clock: g.now})
	}
	g.logger = g.logger.With("component", "guard")
	g.closeCtx, g.close = context.WithCancel(context.Background())
	return g
}

func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// User returns the verified identity while the guard is Valid.
func (g *Guard) User() (domain.AuthUser, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != Valid || g.user == nil {
		return domain.AuthUser{}, false
	}
	return *g.user, true
}

// Check runs the guard from the stored token to a terminal state.
func (g *Guard) Check(ctx context.Context) (State, error) {
	if g.isClosed() {
		return Invalid, ErrClosed
	}

	token, err := g.store.Load()
	if err != nil {
		g.logger.WarnContext(ctx, "load token", "error", err)
		return g.invalidate(ctx, "", false), nil
	}
	if token == "" {
		return g.invalidate(ctx, "", false), nil
	}

	if claims, err := auth.DecodeUnverified(token); err != nil || claims.ExpiredAt(g.now()) {
		return g.invalidate(ctx, token, true), nil
	}

	if user, ok := g.cached(ctx, token); ok {
		return g.validate(token, user), nil
	}

	if !g.transition(Checking) {
		return Invalid, ErrClosed
	}

	vctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(g.closeCtx, cancel)
	defer stop()

	res, err := g.verifier.VerifyToken(vctx, token)
	if g.isClosed() {
		return Invalid, ErrClosed
	}
	if err != nil {
		g.logger.DebugContext(ctx, "remote verification failed", "error", err)
		return g.invalidate(ctx, token, true), nil
	}
	if !res.Valid || res.User == nil {
		return g.invalidate(ctx, token, true), nil
	}

	if b, err := json.Marshal(res.User); err == nil {
		if err := g.cache.Set(ctx, token, b, VerificationTTL); err != nil {
			g.logger.WarnContext(ctx, "cache verification", "error", err)
		}
	}
	return g.validate(token, *res.User), nil
}

// Require returns the token for a dependent admin call. It always runs
// Check, so a Valid guard is only trusted while the token is unexpired and
// its verification is still cached.
func (g *Guard) Require(ctx context.Context) (string, error) {
	state, err := g.Check(ctx)
	if err != nil {
		return "", err
	}
	if state != Valid {
		return "", ErrNotAuthenticated
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.token, nil
}

// Close cancels an in-flight verification. Its result is dropped and no
// callback fires afterwards. Close is idempotent.
func (g *Guard) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.close()
}

func (g *Guard) cached(ctx context.Context, token string) (domain.AuthUser, bool) {
	b, ok, err := g.cache.Get(ctx, token)
	if err != nil || !ok {
		return domain.AuthUser{}, false
	}
	var user domain.AuthUser
	if err := json.Unmarshal(b, &user); err != nil {
		return domain.AuthUser{}, false
	}
	return user, true
}

func (g *Guard) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

func (g *Guard) transition(to State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.state = to
	return true
}

func (g *Guard) validate(token string, user domain.AuthUser) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return Invalid
	}
	g.state = Valid
	g.token = token
	g.user = &user
	return Valid
}

// invalidate commits the Invalid state, discards the token when asked to
// and only then fires the redirect callback.
func (g *Guard) invalidate(ctx context.Context, token string, discard bool) State {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return Invalid
	}
	entering := g.state != Invalid
	g.state = Invalid
	g.token = ""
	g.user = nil
	g.mu.Unlock()

	if discard {
		if err := g.cache.Delete(ctx, token); err != nil {
			g.logger.WarnContext(ctx, "evict verification", "error", err)
		}
		if err := g.store.Clear(); err != nil {
			g.logger.WarnContext(ctx, "clear token", "error", err)
		}
	}
	if entering {
		g.onInvalid()
	}
	return Invalid
}
