package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avelov/authcore/internal"
)

// Redis is the registry backing for multi-process deployments. Layout:
//
//	<prefix>:rt:<token>  → userID, with the refresh TTL
//	<prefix>:rtu:<user>  → set of outstanding tokens, for RevokeAll
//
// Expiry is delegated to Redis TTLs, so an expired token is indistinguishable
// from one that never existed; Lookup reports both as ErrNotFound. The
// per-user set may reference already-expired tokens; RevokeAll deleting an
// expired key is harmless.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*Redis)(nil)

// NewRedis returns a registry on the given client. prefix namespaces all
// keys; entries expire ttl after issue.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) tokenKey(token string) string {
	return r.prefix + ":rt:" + token
}

func (r *Redis) userKey(userID string) string {
	return r.prefix + ":rtu:" + userID
}

// Issue generates a fresh token, stores it with the configured TTL, and
// indexes it under the owner's set.
func (r *Redis) Issue(ctx context.Context, userID string) (string, error) {
	tok, err := internal.NewRefreshToken()
	if err != nil {
		return "", err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.tokenKey(tok), userID, r.ttl)
	pipe.SAdd(ctx, r.userKey(userID), tok)
	pipe.Expire(ctx, r.userKey(userID), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("refresh token issue: %w", err)
	}

	return tok, nil
}

// Lookup returns the entry for the token, reconstructing ExpiresAt from the
// key's remaining TTL.
func (r *Redis) Lookup(ctx context.Context, token string) (*Entry, error) {
	pipe := r.client.TxPipeline()
	getCmd := pipe.Get(ctx, r.tokenKey(token))
	ttlCmd := pipe.PTTL(ctx, r.tokenKey(token))
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("refresh token lookup: %w", err)
	}

	userID := getCmd.Val()
	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}
	return &Entry{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Revoke removes the token and its index entry. Revoking an absent token is
// a no-op.
func (r *Redis) Revoke(ctx context.Context, token string) error {
	userID, err := r.client.Get(ctx, r.tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("refresh token revoke: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.tokenKey(token))
	pipe.SRem(ctx, r.userKey(userID), token)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh token revoke: %w", err)
	}
	return nil
}

// RevokeAll removes every outstanding token owned by the user.
func (r *Redis) RevokeAll(ctx context.Context, userID string) error {
	tokens, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("refresh token revoke all: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, tok := range tokens {
		pipe.Del(ctx, r.tokenKey(tok))
	}
	pipe.Del(ctx, r.userKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("refresh token revoke all: %w", err)
	}
	return nil
}
