// Package password implements the credential hasher: keyed HMAC-SHA512
// digests with a per-user random key, plus PHC-encoded argon2id digests as
// the forward scheme for new deployments. Verification is constant-time with
// respect to password content and never reports a mismatch as an error.
package password
