package authcore

import (
	"testing"
	"time"
)

func TestLockoutPolicyFailureTransitions(t *testing.T) {
	policy := lockoutPolicy{maxAttempts: 3, duration: 15 * time.Minute}
	now := time.Unix(1_700_000_000, 0)
	rec := &CredentialRecord{ID: "u1", SecurityStamp: "s0"}

	if locked := policy.recordFailure(rec, now); locked {
		t.Fatal("locked after one failure")
	}
	if rec.FailedLoginAttempts != 1 {
		t.Fatalf("attempts = %d, want 1", rec.FailedLoginAttempts)
	}
	if rec.SecurityStamp == "s0" {
		t.Fatal("stamp not rotated")
	}

	policy.recordFailure(rec, now)
	if locked := policy.recordFailure(rec, now); !locked {
		t.Fatal("not locked at the threshold")
	}
	if rec.LockoutEnd == nil {
		t.Fatal("lockout end not set")
	}
	if want := now.Add(15 * time.Minute); !rec.LockoutEnd.Equal(want) {
		t.Fatalf("lockout end = %v, want %v", rec.LockoutEnd, want)
	}
	// Locked-iff-marker invariant holds through the transition.
	if !rec.IsLockedOut() {
		t.Fatal("IsLockedOut disagrees with LockoutEnd")
	}
}

func TestLockoutPolicyExpiry(t *testing.T) {
	policy := lockoutPolicy{maxAttempts: 1, duration: 15 * time.Minute}
	now := time.Unix(1_700_000_000, 0)
	rec := &CredentialRecord{ID: "u1"}

	policy.recordFailure(rec, now)
	if !policy.isLocked(rec, now) {
		t.Fatal("not locked immediately after the threshold")
	}
	if !policy.isLocked(rec, now.Add(14*time.Minute)) {
		t.Fatal("unlocked before the duration elapsed")
	}
	// At and past the boundary the attempt is evaluated normally.
	if policy.isLocked(rec, now.Add(15*time.Minute)) {
		t.Fatal("still locked at the boundary")
	}
	if policy.isLocked(rec, now.Add(16*time.Minute)) {
		t.Fatal("still locked after expiry")
	}
}

func TestLockoutPolicySuccessClears(t *testing.T) {
	policy := lockoutPolicy{maxAttempts: 2, duration: time.Minute}
	now := time.Unix(1_700_000_000, 0)
	rec := &CredentialRecord{ID: "u1", SecurityStamp: "s0"}

	policy.recordFailure(rec, now)
	policy.recordFailure(rec, now)
	stamp := rec.SecurityStamp

	if changed := policy.recordSuccess(rec); !changed {
		t.Fatal("success transition reported no change")
	}
	if rec.FailedLoginAttempts != 0 || rec.LockoutEnd != nil {
		t.Fatalf("state not cleared: attempts=%d end=%v", rec.FailedLoginAttempts, rec.LockoutEnd)
	}
	if rec.SecurityStamp == stamp {
		t.Fatal("stamp not rotated by the clearing transition")
	}

	// A clean record is a no-op: no spurious stamp churn.
	stamp = rec.SecurityStamp
	if changed := policy.recordSuccess(rec); changed {
		t.Fatal("success on a clean record reported a change")
	}
	if rec.SecurityStamp != stamp {
		t.Fatal("stamp rotated without a state change")
	}
}
