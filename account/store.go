package account

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by a Store when the target account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned by Create when the email is already taken.
	ErrDuplicateEmail = errors.New("account email already exists")
)

// Store is the persistence contract for admin accounts.
//
// Emails passed in are already normalized with [NormalizeEmail]. Methods that
// target a single account return [ErrNotFound] when it does not exist, except
// the refresh-token mutations, which are idempotent no-ops in that case.
//
// IncrementLoginAttempts must apply [LockState.Fail] atomically against the
// stored state; concurrent failures must all be counted. AddRefreshToken must
// be an atomic set insert, never a read-modify-write of the whole list.
type Store interface {
	FindByEmail(ctx context.Context, email string, includeCredential bool) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
	Create(ctx context.Context, a *Account) error
	UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error
	// RehashPassword replaces the stored hash without touching
	// PasswordChangedAt; the password itself is unchanged.
	RehashPassword(ctx context.Context, id, hash string, now time.Time) error
	SetActive(ctx context.Context, id string, active bool, now time.Time) error

	IncrementLoginAttempts(ctx context.Context, id string, p LockoutPolicy, now time.Time) (LockState, error)
	ResetLoginAttempts(ctx context.Context, id string, now time.Time) error

	AddRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error
	RemoveRefreshToken(ctx context.Context, id, token string) error
	HasRefreshToken(ctx context.Context, id, token string, now time.Time) (bool, error)
	ClearAllRefreshTokens(ctx context.Context, id string) error

	FindAccountsWithExpiredLocks(ctx context.Context, now time.Time) ([]*Account, error)
	UnlockExpiredAccounts(ctx context.Context, now time.Time) (int, error)
	UnlockAccount(ctx context.Context, id string, now time.Time) error
	CleanupExpiredTokens(ctx context.Context, now time.Time) (int, error)
}
