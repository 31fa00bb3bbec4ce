package authcore

import (
	"context"
	"time"
)

// CredentialRecord is the per-user credential state read and written through
// [UserDirectory]. The directory owns storage; this core owns the meaning of
// every field.
//
// PasswordDigest and PasswordKey together verify a password without ever
// storing the plaintext: the key is a per-user random value that doubles as
// the HMAC key, so two users with the same password have unrelated digests.
// Records hashed with the argon2id scheme carry an empty PasswordKey because
// the salt is embedded in the digest string.
//
// Invariant: the account is locked out iff LockoutEnd is non-nil.
type CredentialRecord struct {
	ID    string
	Email string
	Name  string

	PasswordDigest string
	PasswordKey    []byte

	TwoFactorEnabled bool
	TwoFactorSecret  []byte

	FailedLoginAttempts int
	LockoutEnd          *time.Time

	// SecurityStamp is regenerated whenever a security-relevant attribute
	// changes (password, roles, lockout state, two-factor toggle). Tokens
	// issued before the change carry the old stamp and can be rejected.
	SecurityStamp string

	Roles []string

	LastLoginAt *time.Time
}

// IsLockedOut reports whether the record currently carries a lockout marker.
// It does not consult the clock; an expired lockout still reports true until
// a successful login clears it.
func (r *CredentialRecord) IsLockedOut() bool {
	return r != nil && r.LockoutEnd != nil
}

// UserDirectory is the external collaborator that persists credential records.
// Implementations must return [ErrUserNotFound] (possibly wrapped) when no
// record matches; any other error is treated as a directory fault and
// propagated to the caller.
//
// Save must durably persist FailedLoginAttempts, LockoutEnd, SecurityStamp,
// and LastLoginAt: lockout state has to survive process restarts and be
// visible to concurrent sessions.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*CredentialRecord, error)
	FindByID(ctx context.Context, id string) (*CredentialRecord, error)
	Save(ctx context.Context, record *CredentialRecord) error
}

// FailureReason classifies a failed [AuthenticationResult].
type FailureReason uint8

const (
	// FailureNone marks a result that is not a failure.
	FailureNone FailureReason = iota
	// FailureInvalidCredentials covers both unknown email and wrong password;
	// the two are intentionally indistinguishable to the caller.
	FailureInvalidCredentials
	// FailureAccountLocked is returned while a lockout is active.
	FailureAccountLocked
	// FailureInvalidToken covers malformed, wrong-algorithm, bad-signature,
	// and unknown refresh tokens.
	FailureInvalidToken
	// FailureExpiredRefreshToken is returned when the refresh token is known
	// but past its expiry.
	FailureExpiredRefreshToken
)

// String returns the reason name used in logs and test output.
func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "none"
	case FailureInvalidCredentials:
		return "invalid_credentials"
	case FailureAccountLocked:
		return "account_locked"
	case FailureInvalidToken:
		return "invalid_token"
	case FailureExpiredRefreshToken:
		return "expired_refresh_token"
	default:
		return "unknown"
	}
}

// AuthenticationResult is the sole channel through which login and refresh
// report their outcome. Exactly one of the three shapes is populated:
// success (Succeeded with both tokens), failure (Reason set), or the
// two-factor checkpoint (RequiresTwoFactor, not a failure).
type AuthenticationResult struct {
	Succeeded         bool
	RequiresTwoFactor bool
	Reason            FailureReason

	AccessToken  string
	RefreshToken string
}

func successResult(access, refresh string) *AuthenticationResult {
	return &AuthenticationResult{Succeeded: true, AccessToken: access, RefreshToken: refresh}
}

func failedResult(reason FailureReason) *AuthenticationResult {
	return &AuthenticationResult{Reason: reason}
}

func twoFactorResult() *AuthenticationResult {
	return &AuthenticationResult{RequiresTwoFactor: true}
}

// TwoFactorSetup holds the base32-encoded TOTP secret and otpauth:// URI
// returned by [Engine.ProvisionTwoFactor].
type TwoFactorSetup struct {
	SecretBase32 string
	URI          string
}
