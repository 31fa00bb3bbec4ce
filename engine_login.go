package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Login runs the password step of authentication. The outcome is always an
// [AuthenticationResult]; an error means a fault (directory unreachable,
// signing failure), never a wrong password. Accounts with a second factor
// enabled get a RequiresTwoFactor result and must come back through
// [Engine.LoginTwoFactor].
func (e *Engine) Login(ctx context.Context, email, pw string) (*AuthenticationResult, error) {
	return e.login(ctx, email, pw, "", false)
}

// LoginTwoFactor is the dedicated second-factor entry point: it re-runs the
// full login sequence with the submitted TOTP code. An invalid or stale code
// yields RequiresTwoFactor again, indistinguishable in shape from the first
// checkpoint.
func (e *Engine) LoginTwoFactor(ctx context.Context, email, pw, code string) (*AuthenticationResult, error) {
	return e.login(ctx, email, pw, code, true)
}

// login is the orchestrator state machine: credential lookup, lockout
// check, password check, two-factor check, token issue.
//
// The lockout check runs BEFORE the password check. Password-first ordering
// would let a locked account keep spending verification cycles and even
// reset its own counter on a correct guess while locked; lockout-first is
// the brute-force-resistant ordering.
func (e *Engine) login(ctx context.Context, email, pw, code string, haveCode bool) (*AuthenticationResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	now := e.clock()
	policy := e.lockout()

	rec, err := e.directory.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown email and wrong password must be indistinguishable, in
			// message and in cost: burn a verification cycle on the decoy.
			e.hasher.Verify(pw, e.decoyKey, e.decoyDigest)
			return failedResult(FailureInvalidCredentials), nil
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}

	if policy.isLocked(rec, now) {
		return failedResult(FailureAccountLocked), nil
	}

	if !e.hasher.Verify(pw, rec.PasswordKey, rec.PasswordDigest) {
		policy.recordFailure(rec, now)
		if err := e.directory.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("directory save: %w", err)
		}
		return failedResult(FailureInvalidCredentials), nil
	}

	if rec.TwoFactorEnabled {
		if len(rec.TwoFactorSecret) == 0 {
			return nil, fmt.Errorf("record %s: two-factor enabled without secret", rec.ID)
		}
		if !haveCode || !e.totp.VerifyCode(rec.TwoFactorSecret, code, now) {
			return twoFactorResult(), nil
		}
	}

	// The plaintext is only in hand here, so a configured digest upgrade
	// happens now: rehash under the current scheme and bump the stamp. The
	// new digest embeds its own salt, the per-user key retires with the old
	// digest.
	if e.config.Password.UpgradeOnLogin && e.hasher.NeedsUpgrade(rec.PasswordDigest) {
		digest, err := e.hasher.Hash(pw, nil)
		if err != nil {
			e.warn("password digest upgrade failed", "user", rec.ID)
		} else {
			rec.PasswordDigest = digest
			rec.PasswordKey = nil
			rec.SecurityStamp = newSecurityStamp()
		}
	}

	return e.issueTokens(ctx, rec, now)
}

// issueTokens is the terminal state of a successful login: reset the
// lockout counters, stamp the last login, persist, then mint the pair.
// Persistence happens before issuance so a crash in between leaves the
// account unlocked but tokenless, which the user recovers from by simply
// logging in again.
func (e *Engine) issueTokens(ctx context.Context, rec *CredentialRecord, now time.Time) (*AuthenticationResult, error) {
	e.lockout().recordSuccess(rec)
	rec.LastLoginAt = &now
	if err := e.directory.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("directory save: %w", err)
	}

	access, err := e.tokens.Create(e.identity(rec))
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	refresh, err := e.store.Issue(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}

	return successResult(access, refresh), nil
}
