//go:build integration
// +build integration

package test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth"
)

func TestSessionLifecycleAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store, bl := b.setup(t)
			engine := newEngine(t, store, bl, nil, nil)
			pub := createAdmin(t, engine, "lifecycle@example.com")

			res, err := engine.Login(ctx, "Lifecycle@Example.com", adminPassword)
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			if res.Account.ID != pub.ID {
				t.Fatalf("login account = %s, want %s", res.Account.ID, pub.ID)
			}

			claims, err := engine.Authorize(ctx, res.AccessToken)
			if err != nil {
				t.Fatalf("authorize: %v", err)
			}
			if claims.Subject != pub.ID || claims.Role != "admin" {
				t.Fatalf("unexpected claims %+v", claims)
			}

			refreshed, err := engine.Refresh(ctx, res.RefreshToken)
			if err != nil {
				t.Fatalf("refresh: %v", err)
			}
			if _, err := engine.Authorize(ctx, refreshed.AccessToken); err != nil {
				t.Fatalf("authorize refreshed: %v", err)
			}

			if err := engine.Logout(ctx, pub.ID, res.RefreshToken); err != nil {
				t.Fatalf("logout: %v", err)
			}
			if err := engine.Logout(ctx, pub.ID, res.RefreshToken); err != nil {
				t.Fatalf("second logout: %v", err)
			}
			if _, err := engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, adminauth.ErrTokenInvalid) {
				t.Fatalf("refresh after logout: expected ErrTokenInvalid, got %v", err)
			}

			if err := engine.BlacklistToken(ctx, res.AccessToken); err != nil {
				t.Fatalf("blacklist: %v", err)
			}
			if _, err := engine.Authorize(ctx, res.AccessToken); !errors.Is(err, adminauth.ErrTokenInvalid) {
				t.Fatalf("authorize blacklisted: expected ErrTokenInvalid, got %v", err)
			}
		})
	}
}

func TestLockoutAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store, bl := b.setup(t)
			c := newClock()
			engine := newEngine(t, store, bl, c, nil)
			pub := createAdmin(t, engine, "lockout@example.com")

			for i := 0; i < 4; i++ {
				if _, err := engine.Login(ctx, "lockout@example.com", "wrong"); !errors.Is(err, adminauth.ErrInvalidCredentials) {
					t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
				}
			}
			if _, err := engine.Login(ctx, "lockout@example.com", "wrong"); !errors.Is(err, adminauth.ErrAccountLocked) {
				t.Fatalf("fifth attempt: expected ErrAccountLocked, got %v", err)
			}
			if _, err := engine.Login(ctx, "lockout@example.com", adminPassword); !errors.Is(err, adminauth.ErrAccountLocked) {
				t.Fatalf("correct password while locked: expected ErrAccountLocked, got %v", err)
			}

			c.Advance(31 * time.Minute)
			if _, err := engine.Login(ctx, "lockout@example.com", adminPassword); err != nil {
				t.Fatalf("login after lock expiry: %v", err)
			}

			got, err := store.FindByID(ctx, pub.ID)
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			if got.LoginAttempts != 0 || !got.LockUntil.IsZero() {
				t.Fatalf("expected counters reset, got attempts=%d lockUntil=%v", got.LoginAttempts, got.LockUntil)
			}
		})
	}
}

func TestMaintenanceAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store, bl := b.setup(t)
			c := newClock()
			engine := newEngine(t, store, bl, c, nil)
			createAdmin(t, engine, "purge@example.com")
			createAdmin(t, engine, "locked@example.com")

			if _, err := engine.Login(ctx, "purge@example.com", adminPassword); err != nil {
				t.Fatalf("login: %v", err)
			}
			for i := 0; i < 5; i++ {
				_, _ = engine.Login(ctx, "locked@example.com", "wrong")
			}

			c.Advance(8 * 24 * time.Hour)
			report, err := engine.RunMaintenance(ctx)
			if err != nil {
				t.Fatalf("maintenance: %v", err)
			}
			if report.AccountsUnlocked != 1 {
				t.Fatalf("accounts unlocked = %d, want 1", report.AccountsUnlocked)
			}
			if report.TokensPurged != 1 {
				t.Fatalf("tokens purged = %d, want 1", report.TokensPurged)
			}

			again, err := engine.RunMaintenance(ctx)
			if err != nil {
				t.Fatalf("second maintenance: %v", err)
			}
			if again.AccountsUnlocked != 0 || again.TokensPurged != 0 {
				t.Fatalf("second pass should be empty, got %+v", again)
			}
		})
	}
}

func TestChangePasswordRevokesSessionsAcrossBackends(t *testing.T) {
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store, bl := b.setup(t)
			engine := newEngine(t, store, bl, nil, nil)
			pub := createAdmin(t, engine, "change@example.com")

			res, err := engine.Login(ctx, "change@example.com", adminPassword)
			if err != nil {
				t.Fatalf("login: %v", err)
			}
			if err := engine.ChangePassword(ctx, pub.ID, adminPassword, "a-brand-new-password"); err != nil {
				t.Fatalf("change password: %v", err)
			}
			if _, err := engine.Refresh(ctx, res.RefreshToken); !errors.Is(err, adminauth.ErrTokenInvalid) {
				t.Fatalf("refresh after change: expected ErrTokenInvalid, got %v", err)
			}
			if _, err := engine.Login(ctx, "change@example.com", adminPassword); !errors.Is(err, adminauth.ErrInvalidCredentials) {
				t.Fatalf("old password: expected ErrInvalidCredentials, got %v", err)
			}
			if _, err := engine.Login(ctx, "change@example.com", "a-brand-new-password"); err != nil {
				t.Fatalf("new password: %v", err)
			}
		})
	}
}
