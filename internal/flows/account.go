package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth/account"
)

// NewAccountInput is the flow-local provisioning request.
type NewAccountInput struct {
	Name     string
	Email    string
	Password string
	Role     account.Role
}

// AccountErrors carries host-level sentinel errors used by account flows.
type AccountErrors struct {
	InvalidInput       error
	PasswordPolicy     error
	PasswordReuse      error
	EmailTaken         error
	InvalidCredentials error
	AccountNotFound    error
}

// AccountDeps captures provisioning, password change, unlock and status
// dependencies.
type AccountDeps struct {
	Now               func() time.Time
	NewID             func() string
	MinPasswordLength int
	MaxPasswordBytes  int

	Create                func(ctx context.Context, a *account.Account) error
	FindByID              func(ctx context.Context, id string) (*account.Account, error)
	FindByEmail           func(ctx context.Context, email string) (*account.Account, error)
	UpdatePassword        func(ctx context.Context, id, hash string, changedAt time.Time) error
	ClearAllRefreshTokens func(ctx context.Context, id string) error
	UnlockAccount         func(ctx context.Context, id string, now time.Time) error
	SetActive             func(ctx context.Context, id string, active bool, now time.Time) error

	HashPassword   func(plain string) (string, error)
	VerifyPassword func(plain, hash string) (bool, error)

	Errors AccountErrors
}

func checkPasswordPolicy(plain string, deps AccountDeps) error {
	if len([]rune(plain)) < deps.MinPasswordLength {
		return deps.Errors.PasswordPolicy
	}
	if deps.MaxPasswordBytes > 0 && len(plain) > deps.MaxPasswordBytes {
		return deps.Errors.PasswordPolicy
	}
	return nil
}

// RunCreateAccount provisions an active account with a freshly hashed
// password.
func RunCreateAccount(ctx context.Context, in NewAccountInput, deps AccountDeps) (*account.Account, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	email := account.NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || !strings.Contains(email, "@") || name == "" {
		return nil, deps.Errors.InvalidInput
	}
	role := in.Role
	if role == "" {
		role = account.RoleAdmin
	}
	if !role.Valid() {
		return nil, deps.Errors.InvalidInput
	}
	if err := checkPasswordPolicy(in.Password, deps); err != nil {
		return nil, err
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := deps.Now().UTC()
	acct := &account.Account{
		ID:                deps.NewID(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		IsActive:          true,
		PasswordChangedAt: now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := deps.Create(ctx, acct); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, deps.Errors.EmailTaken
		}
		return nil, err
	}
	acct.PasswordHash = ""
	return acct, nil
}

// RunChangePassword replaces the password of an authenticated account and
// revokes all of its refresh tokens. A wrong current password does not count
// towards lockout.
func RunChangePassword(ctx context.Context, accountID, current, next string, deps AccountDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	acct, err := deps.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.AccountNotFound
		}
		return err
	}
	withHash, err := deps.FindByEmail(ctx, acct.Email)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.AccountNotFound
		}
		return err
	}

	ok, err := deps.VerifyPassword(current, withHash.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return deps.Errors.InvalidCredentials
	}
	if current == next {
		return deps.Errors.PasswordReuse
	}
	if err := checkPasswordPolicy(next, deps); err != nil {
		return err
	}

	hash, err := deps.HashPassword(next)
	if err != nil {
		return err
	}
	if err := deps.UpdatePassword(ctx, accountID, hash, deps.Now()); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.AccountNotFound
		}
		return err
	}
	return deps.ClearAllRefreshTokens(ctx, accountID)
}

// RunUnlockAccount clears the lock and the attempt counter.
func RunUnlockAccount(ctx context.Context, accountID string, deps AccountDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if err := deps.UnlockAccount(ctx, accountID, deps.Now()); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.AccountNotFound
		}
		return err
	}
	return nil
}
