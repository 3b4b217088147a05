package flows

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/jwt"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Account          account.Public
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	Success  int
	Failure  int
	Locked   int
	Inactive int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	Success  string
	Failure  string
	Locked   string
	Inactive string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	AccountLocked      error
	AccountInactive    error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Now    func() time.Time
	Policy account.LockoutPolicy

	// DummyHash is verified against when the email is unknown so that the
	// unknown-email path costs the same as a wrong password.
	DummyHash string

	FindByEmail        func(ctx context.Context, email string) (*account.Account, error)
	RecordFailure      func(ctx context.Context, id string, p account.LockoutPolicy, now time.Time) (account.LockState, error)
	RecordSuccess      func(ctx context.Context, id string, now time.Time) error
	AddRefreshToken    func(ctx context.Context, id, token string, expiresAt time.Time) error
	UpdatePasswordHash func(ctx context.Context, id, hash string, now time.Time) error

	VerifyPassword       func(plain, hash string) (bool, error)
	PasswordNeedsUpgrade func(hash string) (bool, error)
	HashPassword         func(plain string) (string, error)

	IssueAccess  func(a *account.Account) (jwt.Issued, error)
	IssueRefresh func(a *account.Account) (jwt.Issued, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin authenticates email/password and issues a token pair.
//
// Unknown email and wrong password return the same error. A locked account
// is rejected before the password is compared.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = noMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noAudit
	}
	if deps.Warn == nil {
		deps.Warn = noWarn
	}
	if deps.FindByEmail == nil ||
		deps.RecordFailure == nil ||
		deps.RecordSuccess == nil ||
		deps.AddRefreshToken == nil ||
		deps.VerifyPassword == nil ||
		deps.IssueAccess == nil ||
		deps.IssueRefresh == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = account.NormalizeEmail(email)
	fail := func(accountID, reason string, err error) {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, accountID, err, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": reason,
			}
		})
	}

	if email == "" || password == "" {
		fail("", "empty_input", deps.Errors.InvalidCredentials)
		return nil, deps.Errors.InvalidCredentials
	}

	acct, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, account.ErrNotFound) {
			return nil, err
		}
		if deps.DummyHash != "" {
			_, _ = deps.VerifyPassword(password, deps.DummyHash)
		}
		fail("", "unknown_email", deps.Errors.InvalidCredentials)
		return nil, deps.Errors.InvalidCredentials
	}

	now := deps.Now()
	if acct.IsLocked(now) {
		deps.MetricInc(deps.Metrics.Locked)
		deps.EmitAudit(ctx, deps.Events.Locked, false, acct.ID, deps.Errors.AccountLocked, func() map[string]string {
			return map[string]string{
				"email":      email,
				"lock_until": acct.LockUntil.UTC().Format(time.RFC3339),
			}
		})
		return nil, deps.Errors.AccountLocked
	}

	if !acct.IsActive {
		deps.MetricInc(deps.Metrics.Inactive)
		deps.EmitAudit(ctx, deps.Events.Inactive, false, acct.ID, deps.Errors.AccountInactive, func() map[string]string {
			return map[string]string{
				"email": email,
			}
		})
		return nil, deps.Errors.AccountInactive
	}

	ok, err := deps.VerifyPassword(password, acct.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		state, err := deps.RecordFailure(ctx, acct.ID, deps.Policy, now)
		if err != nil {
			return nil, err
		}
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, acct.ID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":    email,
				"reason":   "password_mismatch",
				"attempts": strconv.Itoa(state.Attempts),
				"locked":   strconv.FormatBool(state.Locked(now)),
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if err := deps.RecordSuccess(ctx, acct.ID, now); err != nil {
		return nil, err
	}
	acct.RecordSuccessfulLogin(now)

	if deps.PasswordNeedsUpgrade != nil && deps.HashPassword != nil && deps.UpdatePasswordHash != nil {
		if stale, err := deps.PasswordNeedsUpgrade(acct.PasswordHash); err == nil && stale {
			if upgraded, err := deps.HashPassword(password); err == nil {
				if err := deps.UpdatePasswordHash(ctx, acct.ID, upgraded, now); err != nil {
					deps.Warn("password hash upgrade update failed", "account_id", acct.ID, "error", err)
				}
			} else {
				deps.Warn("password hash upgrade generation failed", "account_id", acct.ID, "error", err)
			}
		}
	}
	password = ""

	access, err := deps.IssueAccess(acct)
	if err != nil {
		return nil, err
	}
	refresh, err := deps.IssueRefresh(acct)
	if err != nil {
		return nil, err
	}
	if err := deps.AddRefreshToken(ctx, acct.ID, refresh.Token, refresh.ExpiresAt); err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, acct.ID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return &LoginResult{
		Account:          acct.Public(),
		AccessToken:      access.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}
