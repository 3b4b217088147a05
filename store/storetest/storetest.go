// Package storetest is a conformance suite for account.Store adapters.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/google/uuid"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) account.Store

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// NewAccount returns an active admin with a unique id and email.
func NewAccount(email string) *account.Account {
	return &account.Account{
		ID:           uuid.NewString(),
		Name:         "Test Admin",
		Email:        email,
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuu8hash.placeholder.value.for.tests",
		Role:         account.RoleAdmin,
		IsActive:     true,
		CreatedAt:    base,
		UpdatedAt:    base,
	}
}

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s account.Store)
	}{
		{"CreateAndFind", testCreateAndFind},
		{"DuplicateEmail", testDuplicateEmail},
		{"NotFound", testNotFound},
		{"LockoutTransition", testLockoutTransition},
		{"LockExpiryResets", testLockExpiryResets},
		{"ResetLoginAttempts", testResetLoginAttempts},
		{"RefreshTokenSet", testRefreshTokenSet},
		{"ConcurrentAddRefreshToken", testConcurrentAddRefreshToken},
		{"ConcurrentIncrement", testConcurrentIncrement},
		{"UnlockExpiredAccounts", testUnlockExpiredAccounts},
		{"UnlockAccount", testUnlockAccount},
		{"CleanupExpiredTokens", testCleanupExpiredTokens},
		{"UpdatePassword", testUpdatePassword},
		{"RehashPassword", testRehashPassword},
		{"SetActive", testSetActive},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustCreate(t *testing.T, s account.Store, email string) *account.Account {
	t.Helper()
	a := NewAccount(email)
	if err := s.Create(context.Background(), a); err != nil {
		t.Fatalf("Create(%s) error: %v", email, err)
	}
	return a
}

func testCreateAndFind(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "find@example.com")

	got, err := s.FindByEmail(ctx, "find@example.com", false)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != a.ID || got.Role != account.RoleAdmin || !got.IsActive {
		t.Fatalf("unexpected account %+v", got)
	}
	if got.PasswordHash != "" {
		t.Fatal("credential returned without being requested")
	}

	got, err = s.FindByEmail(ctx, "find@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail(includeCredential) error: %v", err)
	}
	if got.PasswordHash != a.PasswordHash {
		t.Fatalf("expected credential, got %q", got.PasswordHash)
	}

	byID, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if byID.Email != "find@example.com" || byID.PasswordHash != "" {
		t.Fatalf("unexpected FindByID result %+v", byID)
	}
}

func testDuplicateEmail(t *testing.T, s account.Store) {
	mustCreate(t, s, "dup@example.com")
	err := s.Create(context.Background(), NewAccount("dup@example.com"))
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func testNotFound(t *testing.T, s account.Store) {
	ctx := context.Background()
	if _, err := s.FindByEmail(ctx, "nobody@example.com", true); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("FindByEmail: expected ErrNotFound, got %v", err)
	}
	if _, err := s.FindByID(ctx, uuid.NewString()); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("FindByID: expected ErrNotFound, got %v", err)
	}
	if _, err := s.IncrementLoginAttempts(ctx, uuid.NewString(), account.DefaultLockoutPolicy(), base); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("IncrementLoginAttempts: expected ErrNotFound, got %v", err)
	}
	if err := s.RemoveRefreshToken(ctx, uuid.NewString(), "tok"); err != nil {
		t.Fatalf("RemoveRefreshToken on missing account must be a no-op, got %v", err)
	}
}

func testLockoutTransition(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "lock@example.com")
	p := account.DefaultLockoutPolicy()

	var st account.LockState
	var err error
	for i := 1; i <= p.MaxAttempts; i++ {
		st, err = s.IncrementLoginAttempts(ctx, a.ID, p, base)
		if err != nil {
			t.Fatalf("IncrementLoginAttempts error: %v", err)
		}
		if st.Attempts != i {
			t.Fatalf("attempt %d: counter %d", i, st.Attempts)
		}
	}
	if !st.LockUntil.Equal(base.Add(p.LockDuration)) {
		t.Fatalf("expected lock until %v, got %v", base.Add(p.LockDuration), st.LockUntil)
	}

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if !got.IsLocked(base.Add(time.Hour)) {
		t.Fatal("stored account not locked")
	}
	if got.LoginAttempts != p.MaxAttempts {
		t.Fatalf("stored counter %d", got.LoginAttempts)
	}
}

func testLockExpiryResets(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "expiry@example.com")
	p := account.DefaultLockoutPolicy()

	for i := 0; i < p.MaxAttempts; i++ {
		if _, err := s.IncrementLoginAttempts(ctx, a.ID, p, base); err != nil {
			t.Fatalf("IncrementLoginAttempts error: %v", err)
		}
	}

	after := base.Add(p.LockDuration + time.Second)
	st, err := s.IncrementLoginAttempts(ctx, a.ID, p, after)
	if err != nil {
		t.Fatalf("IncrementLoginAttempts error: %v", err)
	}
	if st.Attempts != 1 || !st.LockUntil.IsZero() {
		t.Fatalf("expected fresh cycle {1, zero}, got %+v", st)
	}

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.LoginAttempts != 1 || !got.LockUntil.IsZero() {
		t.Fatalf("stored state not reset: attempts=%d lockUntil=%v", got.LoginAttempts, got.LockUntil)
	}
}

func testResetLoginAttempts(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "reset@example.com")
	p := account.DefaultLockoutPolicy()

	for i := 0; i < 4; i++ {
		if _, err := s.IncrementLoginAttempts(ctx, a.ID, p, base); err != nil {
			t.Fatalf("IncrementLoginAttempts error: %v", err)
		}
	}

	login := base.Add(time.Minute)
	if err := s.ResetLoginAttempts(ctx, a.ID, login); err != nil {
		t.Fatalf("ResetLoginAttempts error: %v", err)
	}

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.LoginAttempts != 0 || !got.LockUntil.IsZero() {
		t.Fatalf("lockout fields not cleared: %+v", got.LockState())
	}
	if !got.LastLogin.Equal(login) {
		t.Fatalf("expected lastLogin %v, got %v", login, got.LastLogin)
	}
}

func testRefreshTokenSet(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "tokens@example.com")
	exp := base.Add(7 * 24 * time.Hour)

	if err := s.AddRefreshToken(ctx, a.ID, "rt-1", exp); err != nil {
		t.Fatalf("AddRefreshToken error: %v", err)
	}
	if err := s.AddRefreshToken(ctx, a.ID, "rt-2", exp); err != nil {
		t.Fatalf("AddRefreshToken error: %v", err)
	}
	if err := s.AddRefreshToken(ctx, a.ID, "rt-1", exp); err != nil {
		t.Fatalf("AddRefreshToken (again) error: %v", err)
	}

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if len(got.RefreshTokens) != 2 {
		t.Fatalf("expected 2 whitelisted tokens, got %d", len(got.RefreshTokens))
	}
	for _, rt := range got.RefreshTokens {
		if rt.Digest == "rt-1" || rt.Digest == "rt-2" {
			t.Fatal("raw refresh token stored")
		}
	}

	ok, err := s.HasRefreshToken(ctx, a.ID, "rt-1", base)
	if err != nil || !ok {
		t.Fatalf("expected rt-1 present, ok=%v err=%v", ok, err)
	}

	if err := s.RemoveRefreshToken(ctx, a.ID, "rt-1"); err != nil {
		t.Fatalf("RemoveRefreshToken error: %v", err)
	}
	if err := s.RemoveRefreshToken(ctx, a.ID, "rt-1"); err != nil {
		t.Fatalf("second RemoveRefreshToken must be a no-op, got %v", err)
	}
	if ok, _ := s.HasRefreshToken(ctx, a.ID, "rt-1", base); ok {
		t.Fatal("rt-1 still present after removal")
	}
	if ok, _ := s.HasRefreshToken(ctx, a.ID, "rt-2", base); !ok {
		t.Fatal("rt-2 removed with rt-1")
	}
	if ok, _ := s.HasRefreshToken(ctx, a.ID, "rt-2", exp); ok {
		t.Fatal("token reported valid at its expiry")
	}

	if err := s.ClearAllRefreshTokens(ctx, a.ID); err != nil {
		t.Fatalf("ClearAllRefreshTokens error: %v", err)
	}
	if ok, _ := s.HasRefreshToken(ctx, a.ID, "rt-2", base); ok {
		t.Fatal("rt-2 present after clear")
	}
}

func testConcurrentAddRefreshToken(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "concurrent-tokens@example.com")
	exp := base.Add(time.Hour)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.AddRefreshToken(ctx, a.ID, fmt.Sprintf("rt-%d", i), exp)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("AddRefreshToken error: %v", err)
		}
	}

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if len(got.RefreshTokens) != n {
		t.Fatalf("expected %d tokens after concurrent inserts, got %d", n, len(got.RefreshTokens))
	}
}

func testConcurrentIncrement(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "concurrent-fail@example.com")
	p := account.LockoutPolicy{MaxAttempts: 1000, LockDuration: time.Hour}

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementLoginAttempts(ctx, a.ID, p, base); err != nil {
				t.Errorf("IncrementLoginAttempts error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.LoginAttempts != n {
		t.Fatalf("expected %d counted failures, got %d", n, got.LoginAttempts)
	}
}

func testUnlockExpiredAccounts(t *testing.T, s account.Store) {
	ctx := context.Background()
	p := account.LockoutPolicy{MaxAttempts: 1, LockDuration: time.Hour}

	expired := mustCreate(t, s, "expired-lock@example.com")
	active := mustCreate(t, s, "active-lock@example.com")
	mustCreate(t, s, "never-locked@example.com")

	if _, err := s.IncrementLoginAttempts(ctx, expired.ID, p, base); err != nil {
		t.Fatalf("IncrementLoginAttempts error: %v", err)
	}
	if _, err := s.IncrementLoginAttempts(ctx, active.ID, p, base.Add(90*time.Minute)); err != nil {
		t.Fatalf("IncrementLoginAttempts error: %v", err)
	}

	now := base.Add(2 * time.Hour)
	found, err := s.FindAccountsWithExpiredLocks(ctx, now)
	if err != nil {
		t.Fatalf("FindAccountsWithExpiredLocks error: %v", err)
	}
	if len(found) != 1 || found[0].ID != expired.ID {
		t.Fatalf("expected only %s, got %d accounts", expired.ID, len(found))
	}

	n, err := s.UnlockExpiredAccounts(ctx, now)
	if err != nil {
		t.Fatalf("UnlockExpiredAccounts error: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 unlocked account, got %d", n)
	}

	got, _ := s.FindByID(ctx, expired.ID)
	if got.LoginAttempts != 0 || !got.LockUntil.IsZero() {
		t.Fatalf("expired account not reset: %+v", got.LockState())
	}
	got, _ = s.FindByID(ctx, active.ID)
	if !got.IsLocked(now) {
		t.Fatal("account with an active lock was unlocked")
	}

	if n, _ := s.UnlockExpiredAccounts(ctx, now); n != 0 {
		t.Fatalf("second sweep unlocked %d accounts", n)
	}
}

func testUnlockAccount(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "manual-unlock@example.com")
	p := account.LockoutPolicy{MaxAttempts: 1, LockDuration: time.Hour}

	if _, err := s.IncrementLoginAttempts(ctx, a.ID, p, base); err != nil {
		t.Fatalf("IncrementLoginAttempts error: %v", err)
	}
	if err := s.UnlockAccount(ctx, a.ID, base); err != nil {
		t.Fatalf("UnlockAccount error: %v", err)
	}
	got, _ := s.FindByID(ctx, a.ID)
	if got.IsLocked(base) || got.LoginAttempts != 0 {
		t.Fatalf("account still locked: %+v", got.LockState())
	}
	if err := s.UnlockAccount(ctx, uuid.NewString(), base); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testCleanupExpiredTokens(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "cleanup-a@example.com")
	b := mustCreate(t, s, "cleanup-b@example.com")

	_ = s.AddRefreshToken(ctx, a.ID, "a-old", base.Add(-time.Hour))
	_ = s.AddRefreshToken(ctx, a.ID, "a-new", base.Add(time.Hour))
	_ = s.AddRefreshToken(ctx, b.ID, "b-old", base.Add(-time.Minute))

	n, err := s.CleanupExpiredTokens(ctx, base)
	if err != nil {
		t.Fatalf("CleanupExpiredTokens error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged tokens, got %d", n)
	}

	got, _ := s.FindByID(ctx, a.ID)
	if len(got.RefreshTokens) != 1 {
		t.Fatalf("expected 1 surviving token, got %d", len(got.RefreshTokens))
	}
	if ok, _ := s.HasRefreshToken(ctx, a.ID, "a-new", base); !ok {
		t.Fatal("live token purged")
	}
}

func testUpdatePassword(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "password@example.com")
	changed := base.Add(time.Hour)

	if err := s.UpdatePassword(ctx, a.ID, "$2a$12$newhash", changed); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}
	got, err := s.FindByEmail(ctx, "password@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.PasswordHash != "$2a$12$newhash" || !got.PasswordChangedAt.Equal(changed) {
		t.Fatalf("password not updated: %q at %v", got.PasswordHash, got.PasswordChangedAt)
	}
	if err := s.UpdatePassword(ctx, uuid.NewString(), "x", changed); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRehashPassword(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "rehash@example.com")
	changed := base.Add(time.Hour)
	if err := s.UpdatePassword(ctx, a.ID, "$2a$12$first", changed); err != nil {
		t.Fatalf("UpdatePassword error: %v", err)
	}

	if err := s.RehashPassword(ctx, a.ID, "$argon2id$upgraded", base.Add(2*time.Hour)); err != nil {
		t.Fatalf("RehashPassword error: %v", err)
	}
	got, err := s.FindByEmail(ctx, "rehash@example.com", true)
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.PasswordHash != "$argon2id$upgraded" {
		t.Fatalf("hash not replaced: %q", got.PasswordHash)
	}
	if !got.PasswordChangedAt.Equal(changed) {
		t.Fatalf("rehash moved passwordChangedAt to %v, want %v", got.PasswordChangedAt, changed)
	}
	if err := s.RehashPassword(ctx, uuid.NewString(), "x", base); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testSetActive(t *testing.T, s account.Store) {
	ctx := context.Background()
	a := mustCreate(t, s, "status@example.com")

	if err := s.SetActive(ctx, a.ID, false, base.Add(time.Minute)); err != nil {
		t.Fatalf("SetActive(false) error: %v", err)
	}
	got, err := s.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.IsActive {
		t.Fatal("account still active after disable")
	}
	if !got.UpdatedAt.Equal(base.Add(time.Minute)) {
		t.Fatalf("updatedAt = %v", got.UpdatedAt)
	}

	if err := s.SetActive(ctx, a.ID, true, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("SetActive(true) error: %v", err)
	}
	if got, _ := s.FindByEmail(ctx, "status@example.com", false); got == nil || !got.IsActive {
		t.Fatal("account not re-enabled")
	}
	if err := s.SetActive(ctx, uuid.NewString(), false, base); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
