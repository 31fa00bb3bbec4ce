package authcore

import (
	"time"

	"github.com/google/uuid"
)

// lockoutPolicy is the pure state-transition function over a record's failed
// attempt count and lockout timestamp. It only mutates the record in memory;
// every transition must be persisted through the user directory before the
// login result is returned, so lockouts survive restarts and are visible to
// concurrent sessions.
type lockoutPolicy struct {
	maxAttempts int
	duration    time.Duration
}

// isLocked reports whether the record is under an active lockout at now.
// An expired lockout reports false: the attempt is evaluated normally and a
// successful login clears the stale marker.
func (p lockoutPolicy) isLocked(rec *CredentialRecord, now time.Time) bool {
	return rec.LockoutEnd != nil && now.Before(*rec.LockoutEnd)
}

// recordFailure applies the failed-verification transition: increment the
// counter and, at the threshold, set the lockout end. Returns whether the
// record became locked. Mutates the security stamp.
func (p lockoutPolicy) recordFailure(rec *CredentialRecord, now time.Time) bool {
	rec.FailedLoginAttempts++
	rec.SecurityStamp = newSecurityStamp()
	if rec.FailedLoginAttempts >= p.maxAttempts {
		until := now.Add(p.duration)
		rec.LockoutEnd = &until
		return true
	}
	return false
}

// recordSuccess applies the successful-verification transition: reset the
// counter and clear any lockout. Returns whether the record changed; the
// stamp is only regenerated when it did.
func (p lockoutPolicy) recordSuccess(rec *CredentialRecord) bool {
	if rec.FailedLoginAttempts == 0 && rec.LockoutEnd == nil {
		return false
	}
	rec.FailedLoginAttempts = 0
	rec.LockoutEnd = nil
	rec.SecurityStamp = newSecurityStamp()
	return true
}

func newSecurityStamp() string {
	return uuid.NewString()
}
