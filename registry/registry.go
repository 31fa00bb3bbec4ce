// Package registry implements the refresh-token registry: a store mapping
// opaque refresh-token strings to their owner and expiry. The registry is an
// explicitly constructed, injected component rather than a package singleton,
// so tests can instantiate independent instances per case.
//
// Two implementations are provided: Memory, a sharded in-process map, and
// Redis, backed by a redis client for multi-process deployments. Operations
// on the same token are linearizable in both; no ordering is guaranteed
// between operations on different tokens.
package registry

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Lookup when no entry matches the token.
var ErrNotFound = errors.New("refresh token not found")

// Entry is a registered refresh token. Expiry is lazy: an entry may linger
// past ExpiresAt until the next operation touches it, and callers must treat
// ExpiresAt as authoritative.
type Entry struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// IsExpired reports whether the entry is past its expiry at the given time.
func (e *Entry) IsExpired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is the refresh-token registry contract.
//
// Issue generates a fresh opaque token, records it for the user, and returns
// it. Revoke is idempotent. RevokeAll removes every entry owned by the user;
// it is O(n) in registry size for the memory store, acceptable because bulk
// revocation is rare.
type Store interface {
	Issue(ctx context.Context, userID string) (string, error)
	Lookup(ctx context.Context, token string) (*Entry, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID string) error
}
