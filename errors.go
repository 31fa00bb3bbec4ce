package authcore

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called before the
	// engine was constructed through [Builder.Build].
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrUserNotFound must be returned (possibly wrapped) by [UserDirectory]
	// implementations when no record matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned by management operations (such as
	// [Engine.ChangePassword]) when the presented current password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTokenInvalid is returned by [Engine.Validate] for tokens that fail
	// signature, algorithm, expiry, or security-stamp checks.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTwoFactorNotConfigured is returned when a two-factor operation needs
	// a provisioned secret and the record has none.
	ErrTwoFactorNotConfigured = errors.New("two-factor not configured")
	// ErrTwoFactorInvalid is returned when a submitted TOTP code does not
	// match any step inside the acceptance window.
	ErrTwoFactorInvalid = errors.New("invalid two-factor code")
)
