// Package token issues and validates the signed access tokens of the
// authentication core: HS256 JWTs carrying subject, display name, email,
// roles, and the security stamp active at issue time.
//
// Parse is the normal validation path. ParseExpired exists solely for the
// refresh flow: the presented token is expected to be past its expiry, so
// expiry is deliberately not checked, while the signature and the signing
// algorithm identifier still are: a token signed with any other algorithm
// is rejected regardless of an otherwise valid signature.
package token
