package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/adminauth/jwt"
)

// AuthorizeOutcome tells the engine why an access token was refused.
type AuthorizeOutcome uint8

const (
	AuthorizeOK AuthorizeOutcome = iota
	AuthorizeBadToken
	AuthorizeIssuedInFuture
	AuthorizeBlacklisted
	// AuthorizeBlacklistDown means the blacklist could not be consulted.
	AuthorizeBlacklistDown
)

type AuthorizeResult struct {
	Outcome AuthorizeOutcome
	Claims  *jwt.AccessClaims
	Err     error
}

// AuthorizeDeps wires access-token checks. A negative MaxClockSkew disables
// the issued-at check.
type AuthorizeDeps struct {
	Verify       func(token string) (*jwt.AccessClaims, error)
	Blacklisted  func(ctx context.Context, token string) (bool, error)
	Now          func() time.Time
	MaxClockSkew time.Duration
}

// RunAuthorize verifies the token locally first, so forged or expired tokens
// never reach the blacklist backend.
func RunAuthorize(ctx context.Context, token string, deps AuthorizeDeps) AuthorizeResult {
	claims, err := deps.Verify(token)
	if err != nil {
		return AuthorizeResult{Outcome: AuthorizeBadToken, Err: err}
	}

	if deps.MaxClockSkew >= 0 && claims.IssuedAt != nil {
		now := time.Now
		if deps.Now != nil {
			now = deps.Now
		}
		if claims.IssuedAt.After(now().Add(deps.MaxClockSkew)) {
			return AuthorizeResult{Outcome: AuthorizeIssuedInFuture}
		}
	}

	if deps.Blacklisted == nil {
		return AuthorizeResult{Claims: claims}
	}
	switch hit, err := deps.Blacklisted(ctx, token); {
	case err != nil:
		return AuthorizeResult{Outcome: AuthorizeBlacklistDown, Err: err}
	case hit:
		return AuthorizeResult{Outcome: AuthorizeBlacklisted}
	}
	return AuthorizeResult{Claims: claims}
}
