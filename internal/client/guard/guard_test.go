package guard_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/blog-cms/internal/auth"
	"github.com/ErlanBelekov/blog-cms/internal/cache"
	"github.com/ErlanBelekov/blog-cms/internal/client"
	"github.com/ErlanBelekov/blog-cms/internal/client/guard"
	"github.com/ErlanBelekov/blog-cms/internal/domain"
)

const testSecret = "guard-test-secret-at-least-32-chars!"

var admin = domain.AuthUser{ID: 1, Email: "admin@example.com"}

type fakeVerifier struct {
	calls  atomic.Int32
	verify func(ctx context.Context, token string) (*client.VerifyResult, error)
}

func (f *fakeVerifier) VerifyToken(ctx context.Context, token string) (*client.VerifyResult, error) {
	f.calls.Add(1)
	return f.verify(ctx, token)
}

func validVerifier() *fakeVerifier {
	return &fakeVerifier{verify: func(context.Context, string) (*client.VerifyResult, error) {
		u := admin
		return &client.VerifyResult{Valid: true, User: &u}, nil
	}}
}

type memTokenStore struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (s *memTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cleared++
	return nil
}

func issue(t *testing.T, now time.Time) string {
	t.Helper()
	svc, err := auth.NewTokenService([]byte(testSecret), auth.DefaultTokenTTL, auth.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	tok, _, err := svc.Issue(admin)
	require.NoError(t, err)
	return tok
}

type redirects struct{ n atomic.Int32 }

func (r *redirects) fn() { r.n.Add(1) }

func TestCheck_NoToken_InvalidWithoutNetwork(t *testing.T) {
	v := validVerifier()
	var r redirects
	g := guard.New(v, &memTokenStore{}, guard.WithRedirect(r.fn))

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Zero(t, v.calls.Load())
	require.Equal(t, int32(1), r.n.Load())
}

func TestCheck_LocallyExpired_InvalidWithoutNetwork(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &memTokenStore{token: issue(t, issued)}
	v := validVerifier()
	g := guard.New(v, store, guard.WithClock(func() time.Time { return issued.Add(8 * 24 * time.Hour) }))

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Zero(t, v.calls.Load())
	require.Empty(t, store.token)
}

func TestCheck_Garbage_InvalidWithoutNetwork(t *testing.T) {
	store := &memTokenStore{token: "not.a.jwt"}
	v := validVerifier()

	state, err := guard.New(v, store).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Zero(t, v.calls.Load())
}

func TestCheck_RemoteValid(t *testing.T) {
	tok := issue(t, time.Now())
	v := validVerifier()
	var r redirects
	g := guard.New(v, &memTokenStore{token: tok}, guard.WithRedirect(r.fn))
	require.Equal(t, guard.Unchecked, g.State())

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Valid, state)
	require.Equal(t, int32(1), v.calls.Load())
	require.Zero(t, r.n.Load())

	user, ok := g.User()
	require.True(t, ok)
	require.Equal(t, admin, user)

	got, err := g.Require(context.Background())
	require.NoError(t, err)
	require.Equal(t, tok, got)
	require.Equal(t, int32(1), v.calls.Load())
}

func TestRequire_ReverifiesOnceWindowPasses(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	tok := issue(t, now)
	v := validVerifier()
	g := guard.New(v, &memTokenStore{token: tok}, guard.WithClock(clock))

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Valid, state)

	now = now.Add(guard.VerificationTTL - time.Second)
	_, err = g.Require(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(1), v.calls.Load())

	now = now.Add(2 * time.Second)
	got, err := g.Require(context.Background())
	require.NoError(t, err)
	require.Equal(t, tok, got)
	require.Equal(t, int32(2), v.calls.Load())
}

func TestRequire_ExpiredAfterValid(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := &memTokenStore{token: issue(t, now)}
	v := validVerifier()
	var r redirects
	g := guard.New(v, store, guard.WithClock(clock), guard.WithRedirect(r.fn))

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Valid, state)

	now = now.Add(8 * 24 * time.Hour)
	got, err := g.Require(context.Background())
	require.ErrorIs(t, err, guard.ErrNotAuthenticated)
	require.Empty(t, got)
	require.Equal(t, guard.Invalid, g.State())
	require.Equal(t, int32(1), v.calls.Load())
	require.Empty(t, store.token)
	require.Equal(t, int32(1), r.n.Load())
}

func TestRequire_TokenClearedElsewhere(t *testing.T) {
	store := &memTokenStore{token: issue(t, time.Now())}
	g := guard.New(validVerifier(), store)

	_, err := g.Require(context.Background())
	require.NoError(t, err)

	require.NoError(t, store.Clear())
	_, err = g.Require(context.Background())
	require.ErrorIs(t, err, guard.ErrNotAuthenticated)
}

func TestCheck_RemoteInvalid_ClearsTokenAndRedirectsOnce(t *testing.T) {
	store := &memTokenStore{token: issue(t, time.Now())}
	v := &fakeVerifier{verify: func(context.Context, string) (*client.VerifyResult, error) {
		return &client.VerifyResult{Valid: false}, nil
	}}
	var r redirects
	g := guard.New(v, store, guard.WithRedirect(r.fn))

	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Empty(t, store.token)
	require.Equal(t, 1, store.cleared)

	// Already invalid: checking again must not redirect again.
	state, err = g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Equal(t, int32(1), r.n.Load())

	_, err = g.Require(context.Background())
	require.ErrorIs(t, err, guard.ErrNotAuthenticated)
}

func TestCheck_TransportErrorCountsAsInvalid(t *testing.T) {
	store := &memTokenStore{token: issue(t, time.Now())}
	v := &fakeVerifier{verify: func(context.Context, string) (*client.VerifyResult, error) {
		return nil, errors.New("connection refused")
	}}
	var r redirects

	state, err := guard.New(v, store, guard.WithRedirect(r.fn)).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Invalid, state)
	require.Empty(t, store.token)
	require.Equal(t, int32(1), r.n.Load())
}

func TestCheck_CachedVerificationSharedAcrossGuards(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	shared := cache.NewMemoryStore(cache.Options{DefaultTTL: guard.VerificationTTL, Clock: clock})
	tok := issue(t, now)
	v := validVerifier()

	for i := 0; i < 3; i++ {
		g := guard.New(v, &memTokenStore{token: tok}, guard.WithCache(shared), guard.WithClock(clock))
		state, err := g.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, guard.Valid, state)
		g.Close()
	}
	require.Equal(t, int32(1), v.calls.Load())

	now = now.Add(guard.VerificationTTL + time.Second)
	g := guard.New(v, &memTokenStore{token: tok}, guard.WithCache(shared), guard.WithClock(clock))
	state, err := g.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, guard.Valid, state)
	require.Equal(t, int32(2), v.calls.Load())
}

func TestCheck_FileStoreCarriesWindowAcrossGuards(t *testing.T) {
	var _ cache.Store = (*client.FileTokenStore)(nil)

	now := time.Now()
	clock := func() time.Time { return now }
	path := filepath.Join(t.TempDir(), "token.json")
	tok := issue(t, now)
	require.NoError(t, client.NewFileTokenStore(path).Save(tok))
	v := validVerifier()

	check := func() guard.State {
		store := client.NewFileTokenStore(path).WithClock(clock)
		g := guard.New(v, store, guard.WithCache(store), guard.WithClock(clock))
		defer g.Close()
		state, err := g.Check(context.Background())
		require.NoError(t, err)
		return state
	}

	require.Equal(t, guard.Valid, check())
	require.Equal(t, guard.Valid, check())
	require.Equal(t, int32(1), v.calls.Load())

	now = now.Add(guard.VerificationTTL)
	require.Equal(t, guard.Valid, check())
	require.Equal(t, int32(2), v.calls.Load())
}

func TestClose_DiscardsInFlightResult(t *testing.T) {
	store := &memTokenStore{token: issue(t, time.Now())}
	started := make(chan struct{})
	v := &fakeVerifier{verify: func(ctx context.Context, _ string) (*client.VerifyResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	var r redirects
	g := guard.New(v, store, guard.WithRedirect(r.fn))

	type result struct {
		state guard.State
		err   error
	}
	done := make(chan result, 1)
	go func() {
		s, err := g.Check(context.Background())
		done <- result{s, err}
	}()

	<-started
	require.Equal(t, guard.Checking, g.State())
	g.Close()

	select {
	case res := <-done:
		require.ErrorIs(t, res.err, guard.ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Check did not return after Close")
	}
	require.Zero(t, r.n.Load())
	require.NotEmpty(t, store.token)

	_, err := g.Check(context.Background())
	require.ErrorIs(t, err, guard.ErrClosed)
	g.Close()
}

func TestState_String(t *testing.T) {
	require.Equal(t, "unchecked", guard.Unchecked.String())
	require.Equal(t, "checking", guard.Checking.String())
	require.Equal(t, "valid", guard.Valid.String())
	require.Equal(t, "invalid", guard.Invalid.String())
}
