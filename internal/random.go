// Package internal holds the entropy helpers shared by the root package and
// the refresh-token registry. Nothing here is part of the public API.
package internal

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
)

const (
	refreshTokenBytes = 32 // 256 bits, the minimum entropy for an opaque bearer secret
	totpSecretBytes   = 20 // 160 bits per RFC 4226
)

// NewRefreshToken returns a fresh opaque refresh token: 32 random bytes,
// base64url without padding. The string carries no structure; its only
// semantics come from the registry entry it maps to.
func NewRefreshToken() (string, error) {
	raw := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewTOTPSecret returns a fresh 160-bit TOTP secret as raw bytes plus its
// unpadded base32 form for provisioning URIs.
func NewTOTPSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return raw, enc.EncodeToString(raw), nil
}
