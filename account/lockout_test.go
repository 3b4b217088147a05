package account

import (
	"testing"
	"time"
)

func TestLockStateFailReachesThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := DefaultLockoutPolicy()

	s := LockState{}
	for i := 1; i < p.MaxAttempts; i++ {
		s = s.Fail(p, now)
		if s.Attempts != i {
			t.Fatalf("attempt %d: expected counter %d, got %d", i, i, s.Attempts)
		}
		if s.Locked(now) {
			t.Fatalf("attempt %d: account locked before threshold", i)
		}
	}

	s = s.Fail(p, now)
	if s.Attempts != p.MaxAttempts {
		t.Fatalf("expected counter %d, got %d", p.MaxAttempts, s.Attempts)
	}
	if !s.LockUntil.Equal(now.Add(p.LockDuration)) {
		t.Fatalf("expected lock until %v, got %v", now.Add(p.LockDuration), s.LockUntil)
	}
}

func TestLockStateFailWhileLockedDoesNotExtend(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := DefaultLockoutPolicy()
	until := now.Add(time.Hour)

	s := LockState{Attempts: 5, LockUntil: until}.Fail(p, now)
	if s.Attempts != 6 {
		t.Fatalf("expected counter 6, got %d", s.Attempts)
	}
	if !s.LockUntil.Equal(until) {
		t.Fatalf("lock must not be extended, got %v", s.LockUntil)
	}
}

func TestLockStateFailAfterExpiryStartsFreshCycle(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := DefaultLockoutPolicy()

	tests := []struct {
		name  string
		until time.Time
	}{
		{name: "elapsed", until: now.Add(-time.Minute)},
		{name: "exactly now", until: now},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := LockState{Attempts: 5, LockUntil: tc.until}.Fail(p, now)
			if s.Attempts != 1 {
				t.Fatalf("expected counter 1, got %d", s.Attempts)
			}
			if !s.LockUntil.IsZero() {
				t.Fatalf("expected lock cleared, got %v", s.LockUntil)
			}
		})
	}
}

func TestLockStateCustomPolicy(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := LockoutPolicy{MaxAttempts: 2, LockDuration: time.Minute}

	s := LockState{}.Fail(p, now).Fail(p, now)
	if !s.Locked(now) {
		t.Fatal("expected lock after 2 failures")
	}
	if s.Locked(now.Add(time.Minute)) {
		t.Fatal("lock must be over once LockUntil is reached")
	}
}

func TestAccountIsLockedIsPure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := &Account{LoginAttempts: 5, LockUntil: now.Add(-time.Second)}

	if a.IsLocked(now) {
		t.Fatal("expired lock reported as locked")
	}
	if a.LoginAttempts != 5 || a.LockUntil.IsZero() {
		t.Fatal("IsLocked mutated the account")
	}

	a.LockUntil = now.Add(time.Second)
	if !a.IsLocked(now) {
		t.Fatal("future lock not reported")
	}
}

func TestAccountRecordTransitions(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	p := DefaultLockoutPolicy()
	a := &Account{LoginAttempts: 4}

	a.RecordFailedAttempt(p, now)
	if a.LoginAttempts != 5 || !a.IsLocked(now) {
		t.Fatalf("expected locked with 5 attempts, got %d / %v", a.LoginAttempts, a.LockUntil)
	}

	later := now.Add(3 * time.Hour)
	a.RecordSuccessfulLogin(later)
	if a.LoginAttempts != 0 || !a.LockUntil.IsZero() {
		t.Fatal("success must clear lockout fields")
	}
	if !a.LastLogin.Equal(later) {
		t.Fatalf("expected lastLogin %v, got %v", later, a.LastLogin)
	}
}

func TestAccountHasRefreshToken(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	a := &Account{RefreshTokens: []RefreshToken{
		{Digest: TokenDigest("live"), ExpiresAt: now.Add(time.Hour)},
		{Digest: TokenDigest("stale"), ExpiresAt: now.Add(-time.Hour)},
	}}

	if !a.HasRefreshToken("live", now) {
		t.Fatal("expected live token present")
	}
	if a.HasRefreshToken("stale", now) {
		t.Fatal("expired token must not count")
	}
	if a.HasRefreshToken("other", now) {
		t.Fatal("unknown token reported present")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Admin@Example.COM "); got != "admin@example.com" {
		t.Fatalf("unexpected normalized email %q", got)
	}
}

func TestPublicOmitsCredential(t *testing.T) {
	a := &Account{ID: "a1", Email: "a@b.c", PasswordHash: "$2a$12$secret", Role: RoleAdmin}
	p := a.Public()
	if p.ID != "a1" || p.Email != "a@b.c" || p.Role != RoleAdmin {
		t.Fatalf("unexpected public view %+v", p)
	}
}
