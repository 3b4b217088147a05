package adminauth

import (
	"context"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/jwt"
)

// LoginResult is returned by a successful Login. It never carries the
// password hash.
type LoginResult struct {
	Account      account.Public `json:"account"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`
}

// TokenResult is returned by Refresh. RefreshToken is empty unless rotation
// is enabled.
type TokenResult struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// Claims are the verified contents of an access token.
type Claims = jwt.AccessClaims

// NewAccount is a provisioning request. Role defaults to admin.
type NewAccount struct {
	Name     string
	Email    string
	Password string
	Role     account.Role
}

// MaintenanceReport counts what one maintenance pass removed.
type MaintenanceReport struct {
	StartedAt        time.Time     `json:"startedAt"`
	Duration         time.Duration `json:"duration"`
	AccountsUnlocked int           `json:"accountsUnlocked"`
	TokensPurged     int           `json:"tokensPurged"`
	BlacklistEvicted int           `json:"blacklistEvicted"`
}

// Blacklist is the access-token revocation set. Implementations must be
// safe for concurrent use; see package blacklist.
type Blacklist interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Cleanup(ctx context.Context, now time.Time) (int, error)
}

func expiresIn(until, now time.Time) int64 {
	secs := int64(until.Sub(now).Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
