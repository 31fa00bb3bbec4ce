package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/avelov/authcore/registry"
)

// Refresh exchanges an expired access token plus its live refresh token for
// a fresh pair. The access token's signature and algorithm are verified but
// its expiry is deliberately not (see token.Manager.ParseExpired); the
// refresh token must be present and unexpired in the registry and owned by
// the token's subject.
//
// Rotation is revoke-then-issue: the old refresh token stops resolving
// before the new one exists, so there is a narrow window with neither
// present. The two registry calls are independent; callers that lose that
// race should retry rather than treat it as a hard failure.
func (e *Engine) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthenticationResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.ParseExpired(accessToken)
	if err != nil {
		return failedResult(FailureInvalidToken), nil
	}

	entry, err := e.store.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return failedResult(FailureInvalidToken), nil
		}
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	if entry.UserID != claims.Subject {
		return failedResult(FailureInvalidToken), nil
	}
	if entry.IsExpired(e.clock()) {
		// Lazy expiry: drop the stale entry now that it has been seen.
		_ = e.store.Revoke(ctx, refreshToken)
		return failedResult(FailureExpiredRefreshToken), nil
	}

	rec, err := e.directory.FindByID(ctx, entry.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			_ = e.store.Revoke(ctx, refreshToken)
			return failedResult(FailureInvalidToken), nil
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	if e.config.Token.ValidateSecurityStamp && rec.SecurityStamp != claims.Stamp {
		_ = e.store.Revoke(ctx, refreshToken)
		return failedResult(FailureInvalidToken), nil
	}

	if err := e.store.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("registry revoke: %w", err)
	}
	newRefresh, err := e.store.Issue(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("registry issue: %w", err)
	}

	access, err := e.tokens.Create(e.identity(rec))
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}

	return successResult(access, newRefresh), nil
}

// Logout revokes a single refresh token. Revoking an unknown token is a
// no-op: the caller's session is gone either way.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.store.Revoke(ctx, refreshToken)
}

// LogoutEverywhere revokes every outstanding refresh token for the user,
// the "log out all devices" and forced-credential-invalidation path.
func (e *Engine) LogoutEverywhere(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.store.RevokeAll(ctx, userID)
}
