package account

import "time"

const (
	// DefaultMaxLoginAttempts is the number of consecutive failures that
	// locks an account.
	DefaultMaxLoginAttempts = 5
	// DefaultLockDuration is how long a lock lasts once triggered.
	DefaultLockDuration = 2 * time.Hour
)

// LockoutPolicy parameterizes the lockout state machine.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy returns the 5 attempts / 2 hours policy.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts:  DefaultMaxLoginAttempts,
		LockDuration: DefaultLockDuration,
	}
}

// LockState is the pair of lockout fields of an account.
type LockState struct {
	Attempts  int
	LockUntil time.Time
}

// Locked reports whether s is locked at now.
func (s LockState) Locked(now time.Time) bool {
	return !s.LockUntil.IsZero() && s.LockUntil.After(now)
}

// Fail returns the state after one failed credential check at now.
//
// An elapsed lock starts a fresh cycle: the lock is cleared and the counter
// becomes 1, and nothing else happens in the same call. Otherwise the counter
// is incremented and, once it reaches p.MaxAttempts on an account that is not
// already locked, the lock is set to now+p.LockDuration.
func (s LockState) Fail(p LockoutPolicy, now time.Time) LockState {
	if !s.LockUntil.IsZero() && !s.LockUntil.After(now) {
		return LockState{Attempts: 1}
	}

	next := LockState{Attempts: s.Attempts + 1, LockUntil: s.LockUntil}
	if next.Attempts >= p.MaxAttempts && !s.Locked(now) {
		next.LockUntil = now.Add(p.LockDuration)
	}
	return next
}
