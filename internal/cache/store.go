// Package cache provides the TTL key/value stores used to memoize read-heavy
// queries. Stores are plain objects handed to their consumers; there is no
// process-wide cache.
package cache

import (
	"context"
	"time"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = time.Minute

// Store is a key/value cache with per-entry absolute expiry.
type Store interface {
	// Get returns the value and true while the entry is live. An expired
	// entry is evicted and reported as a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Options configures a store. Namespace is prepended to every key.
type Options struct {
	Namespace  string
	DefaultTTL time.Duration
	Clock      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.DefaultTTL <= 0 {
		o.DefaultTTL = DefaultTTL
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}
