package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/jwt"
)

// LogoutErrors carries host-level sentinel errors used by logout flows.
type LogoutErrors struct {
	AccountNotFound error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	FindByID              func(ctx context.Context, id string) (*account.Account, error)
	RemoveRefreshToken    func(ctx context.Context, id, token string) error
	ClearAllRefreshTokens func(ctx context.Context, id string) error

	VerifyAccess func(token string) (*jwt.AccessClaims, error)
	Blacklist    func(ctx context.Context, token string, expiresAt time.Time) error

	Errors LogoutErrors
}

// RunLogout removes one refresh token from the whitelist. An empty or
// already-removed token is not an error.
func RunLogout(ctx context.Context, accountID, refreshToken string, deps LogoutDeps) error {
	if refreshToken == "" {
		return nil
	}
	return deps.RemoveRefreshToken(ctx, accountID, refreshToken)
}

// RunLogoutAll clears every refresh token of an existing account.
func RunLogoutAll(ctx context.Context, accountID string, deps LogoutDeps) error {
	if _, err := deps.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return deps.Errors.AccountNotFound
		}
		return err
	}
	return deps.ClearAllRefreshTokens(ctx, accountID)
}

// RunBlacklistAccess revokes an access token until its own expiry. Tokens
// that do not verify are already unusable and are ignored; the returned
// claims are nil in that case.
func RunBlacklistAccess(ctx context.Context, accessToken string, deps LogoutDeps) (*jwt.AccessClaims, error) {
	claims, err := deps.VerifyAccess(accessToken)
	if err != nil {
		return nil, nil
	}
	if err := deps.Blacklist(ctx, accessToken, claims.ExpiresAt.Time); err != nil {
		return nil, err
	}
	return claims, nil
}
