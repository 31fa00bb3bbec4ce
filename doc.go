// Package authcore implements the authentication and session-security core:
// credential verification with keyed password digests, time-based one-time-password
// (TOTP) second factors, signed HS256 access tokens with rotating opaque refresh
// tokens, and a failed-login lockout policy.
//
// The package is a library, not a service. Persistence of credential records is
// delegated to a caller-supplied [UserDirectory]; transport of tokens to and from
// clients is out of scope. Engine methods are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], and
// value types ([CredentialRecord], [AuthenticationResult], [TwoFactorSetup]).
// Token signing lives in the token subpackage, credential hashing in password,
// and the refresh-token registry in registry; entropy helpers live under
// internal/ and are never exported.
//
// # Outcomes versus faults
//
// Expected, user-facing login and refresh outcomes (wrong password, locked
// account, second factor required, unknown refresh token) are reported through
// [AuthenticationResult], never as errors. Errors are reserved for faults the
// caller must handle: an unreachable directory, a misconfigured signing secret,
// an exhausted entropy source.
package authcore
