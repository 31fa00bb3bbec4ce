package authcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avelov/authcore/password"
	"github.com/avelov/authcore/registry"
	"github.com/avelov/authcore/token"
)

// Engine sequences the credential hasher, lockout policy, TOTP validator,
// token issuer, and refresh-token registry into the login, refresh, and
// two-factor use cases. Construct it through [Builder.Build]; after that it
// is immutable and safe for concurrent use.
type Engine struct {
	config    Config
	directory UserDirectory
	store     registry.Store
	hasher    *password.Hasher
	totp      *totpManager
	tokens    *token.Manager
	logger    *slog.Logger
	now       func() time.Time

	// decoyKey/decoyDigest burn a verification cycle for unknown emails so a
	// missing user costs the same as a wrong password.
	decoyKey    []byte
	decoyDigest string
}

func (e *Engine) ready() bool {
	return e != nil && e.directory != nil && e.store != nil &&
		e.hasher != nil && e.totp != nil && e.tokens != nil
}

func (e *Engine) clock() time.Time {
	return e.now()
}

func (e *Engine) lockout() lockoutPolicy {
	return lockoutPolicy{
		maxAttempts: e.config.Lockout.MaxFailedAttempts,
		duration:    e.config.Lockout.Duration,
	}
}

func (e *Engine) warn(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) identity(rec *CredentialRecord) token.Identity {
	return token.Identity{
		UserID: rec.ID,
		Name:   rec.Name,
		Email:  rec.Email,
		Roles:  rec.Roles,
		Stamp:  rec.SecurityStamp,
	}
}

// Validate checks an access token on the normal path: signature, algorithm,
// issuer/audience when configured, and expiry. With
// [TokenConfig.ValidateSecurityStamp] set it additionally rejects tokens
// whose stamp no longer matches the directory record, at the cost of one
// directory lookup. Returns [ErrTokenInvalid] for any token defect.
func (e *Engine) Validate(ctx context.Context, accessToken string) (*token.Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if e.config.Token.ValidateSecurityStamp {
		rec, err := e.directory.FindByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				return nil, ErrTokenInvalid
			}
			return nil, fmt.Errorf("directory lookup: %w", err)
		}
		if rec.SecurityStamp != claims.Stamp {
			return nil, ErrTokenInvalid
		}
	}

	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
