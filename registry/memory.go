package registry

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/avelov/authcore/internal"
)

const shardCount = 16

type shard struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// Memory is the in-process registry: token-sharded maps with per-shard
// locking. Safe for concurrent use; operations on the same token serialize
// on its shard, so a revoke and a lookup of one token never interleave.
type Memory struct {
	shards [shardCount]*shard
	ttl    time.Duration
	now    func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty registry whose entries expire ttl after issue.
func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{ttl: ttl, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{entries: make(map[string]Entry)}
	}
	return m
}

func (m *Memory) shardFor(token string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return m.shards[h.Sum32()%shardCount]
}

// Issue generates a fresh token and records it for the user.
func (m *Memory) Issue(_ context.Context, userID string) (string, error) {
	tok, err := internal.NewRefreshToken()
	if err != nil {
		return "", err
	}

	s := m.shardFor(tok)
	s.mu.Lock()
	s.entries[tok] = Entry{
		Token:     tok,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	s.mu.Unlock()

	return tok, nil
}

// Lookup returns the entry for the token, or ErrNotFound. An expired entry
// is pruned on the way out but still returned once, so the caller can
// distinguish "expired" from "never existed".
func (m *Memory) Lookup(_ context.Context, token string) (*Entry, error) {
	s := m.shardFor(token)
	s.mu.Lock()
	entry, ok := s.entries[token]
	if ok && entry.IsExpired(m.now()) {
		delete(s.entries, token)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	out := entry
	return &out, nil
}

// Revoke removes the token. Revoking an absent token is a no-op.
func (m *Memory) Revoke(_ context.Context, token string) error {
	s := m.shardFor(token)
	s.mu.Lock()
	delete(s.entries, token)
	s.mu.Unlock()
	return nil
}

// RevokeAll removes every entry owned by the user, scanning all shards.
func (m *Memory) RevokeAll(_ context.Context, userID string) error {
	for _, s := range m.shards {
		s.mu.Lock()
		for tok, entry := range s.entries {
			if entry.UserID == userID {
				delete(s.entries, tok)
			}
		}
		s.mu.Unlock()
	}
	return nil
}

// Len reports the number of stored entries, counting expired ones not yet
// lazily pruned. Intended for tests and diagnostics.
func (m *Memory) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}
