package authcore

import (
	"context"
	"errors"
	"fmt"
)

// ProvisionTwoFactor generates a fresh second-factor secret for the user and
// persists it on the record, returning the base32 secret and otpauth:// URI
// for enrollment. Provisioning never flips TwoFactorEnabled; the code path
// only becomes active once [Engine.EnableTwoFactor] confirms the enrollment
// with a valid code.
func (e *Engine) ProvisionTwoFactor(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	rec, err := e.findByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	raw, encoded, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("secret generation: %w", err)
	}

	rec.TwoFactorSecret = raw
	if err := e.directory.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("directory save: %w", err)
	}

	account := rec.Email
	if account == "" {
		account = rec.ID
	}
	return &TwoFactorSetup{
		SecretBase32: encoded,
		URI:          e.totp.ProvisionURI(encoded, account),
	}, nil
}

// EnableTwoFactor confirms enrollment: the submitted code must be valid for
// the provisioned secret right now. On success the flag flips on, the
// security stamp rotates, and the record is persisted.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID, code string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rec, err := e.findByID(ctx, userID)
	if err != nil {
		return err
	}
	if len(rec.TwoFactorSecret) == 0 {
		return ErrTwoFactorNotConfigured
	}
	if !e.totp.VerifyCode(rec.TwoFactorSecret, code, e.clock()) {
		return ErrTwoFactorInvalid
	}

	rec.TwoFactorEnabled = true
	rec.SecurityStamp = newSecurityStamp()
	if err := e.directory.Save(ctx, rec); err != nil {
		return fmt.Errorf("directory save: %w", err)
	}
	return nil
}

// DisableTwoFactor removes the second factor: secret cleared, flag off,
// stamp rotated, record persisted.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rec, err := e.findByID(ctx, userID)
	if err != nil {
		return err
	}

	rec.TwoFactorEnabled = false
	rec.TwoFactorSecret = nil
	rec.SecurityStamp = newSecurityStamp()
	if err := e.directory.Save(ctx, rec); err != nil {
		return fmt.Errorf("directory save: %w", err)
	}
	return nil
}

// ChangePassword rotates the credential: the current password must verify,
// then the record gets a fresh key and digest, a new security stamp, and
// every outstanding refresh token is revoked so stolen sessions die with the
// old password. Returns [ErrInvalidCredentials] when the current password is
// wrong.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPW, newPW string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	rec, err := e.findByID(ctx, userID)
	if err != nil {
		return err
	}
	if !e.hasher.Verify(currentPW, rec.PasswordKey, rec.PasswordDigest) {
		return ErrInvalidCredentials
	}

	key, digest, err := e.deriveCredential(newPW)
	if err != nil {
		return err
	}
	rec.PasswordKey = key
	rec.PasswordDigest = digest
	rec.SecurityStamp = newSecurityStamp()
	if err := e.directory.Save(ctx, rec); err != nil {
		return fmt.Errorf("directory save: %w", err)
	}

	if err := e.store.RevokeAll(ctx, rec.ID); err != nil {
		return fmt.Errorf("registry revoke all: %w", err)
	}
	return nil
}

// NewCredential assembles a registration-ready record: fresh key and digest
// for the password, a security stamp, and the normalized email. The caller
// persists it through its own directory; this core never inserts users.
func (e *Engine) NewCredential(id, email, name, pw string, roles []string) (*CredentialRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	key, digest, err := e.deriveCredential(pw)
	if err != nil {
		return nil, err
	}

	return &CredentialRecord{
		ID:             id,
		Email:          normalizeEmail(email),
		Name:           name,
		PasswordDigest: digest,
		PasswordKey:    key,
		SecurityStamp:  newSecurityStamp(),
		Roles:          roles,
	}, nil
}

// deriveCredential produces the stored (key, digest) pair for a plaintext.
// Digests that embed their own salt (argon2id) carry no per-user key.
func (e *Engine) deriveCredential(pw string) ([]byte, string, error) {
	var key []byte
	if e.config.Password.Scheme == SchemeHMACSHA512 {
		var err error
		key, err = e.hasher.GenerateKey()
		if err != nil {
			return nil, "", fmt.Errorf("key generation: %w", err)
		}
	}
	digest, err := e.hasher.Hash(pw, key)
	if err != nil {
		return nil, "", fmt.Errorf("password hash: %w", err)
	}
	return key, digest, nil
}

func (e *Engine) findByID(ctx context.Context, userID string) (*CredentialRecord, error) {
	rec, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return rec, nil
}
