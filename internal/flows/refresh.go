package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureVerify
	RefreshFailureAccountNotFound
	RefreshFailureInactive
	RefreshFailureNotWhitelisted
	RefreshFailureStore
	RefreshFailureIssue
)

// RefreshResult carries either the issued tokens or failure metadata.
type RefreshResult struct {
	Failure   RefreshFailureKind
	Err       error
	AccountID string

	AccessToken     string
	AccessExpiresAt time.Time

	// Set only when rotation is enabled.
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	Now    func() time.Time
	Rotate bool

	VerifyRefresh      func(token string) (*jwt.RefreshClaims, error)
	FindByID           func(ctx context.Context, id string) (*account.Account, error)
	HasRefreshToken    func(ctx context.Context, id, token string, now time.Time) (bool, error)
	AddRefreshToken    func(ctx context.Context, id, token string, expiresAt time.Time) error
	RemoveRefreshToken func(ctx context.Context, id, token string) error

	IssueAccess  func(a *account.Account) (jwt.Issued, error)
	IssueRefresh func(a *account.Account) (jwt.Issued, error)
}

// RunRefresh exchanges a whitelisted refresh token for a new access token.
// With Rotate set, the presented refresh token is replaced by a new one.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureVerify, Err: err}
	}
	id := claims.Subject

	acct, err := deps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return RefreshResult{Failure: RefreshFailureAccountNotFound, Err: err, AccountID: id}
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, AccountID: id}
	}
	if !acct.IsActive {
		return RefreshResult{Failure: RefreshFailureInactive, AccountID: id}
	}

	now := deps.Now()
	listed, err := deps.HasRefreshToken(ctx, id, refreshToken, now)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, AccountID: id}
	}
	if !listed {
		return RefreshResult{Failure: RefreshFailureNotWhitelisted, AccountID: id}
	}

	access, err := deps.IssueAccess(acct)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, AccountID: id}
	}
	result := RefreshResult{
		AccountID:       id,
		AccessToken:     access.Token,
		AccessExpiresAt: access.ExpiresAt,
	}
	if !deps.Rotate {
		return result
	}

	next, err := deps.IssueRefresh(acct)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, AccountID: id}
	}
	// Add before remove so a failure in between leaves the caller with a
	// usable token rather than none.
	if err := deps.AddRefreshToken(ctx, id, next.Token, next.ExpiresAt); err != nil {
		return RefreshResult{Failure: RefreshFailureStore, Err: err, AccountID: id}
	}
	if err := deps.RemoveRefreshToken(ctx, id, refreshToken); err != nil {
		// The caller never receives next, so it must not stay whitelisted.
		// The presented token is still valid and can be retried.
		if cerr := deps.RemoveRefreshToken(ctx, id, next.Token); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return RefreshResult{Failure: RefreshFailureStore, Err: err, AccountID: id}
	}
	result.RefreshToken = next.Token
	result.RefreshExpiresAt = next.ExpiresAt
	return result
}
