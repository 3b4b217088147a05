package account

import (
	"strings"
	"time"
)

// Role is advisory in this package; enforcement belongs to the caller.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super-admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// RefreshToken is a whitelist entry. The raw token is never stored, only its
// digest (see [TokenDigest]) and the token's own expiry.
type RefreshToken struct {
	Digest    string
	ExpiresAt time.Time
}

// Account is an admin account as held by a [Store].
//
// PasswordHash is only populated when the caller asked for credentials.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool

	LoginAttempts int
	LockUntil     time.Time

	RefreshTokens []RefreshToken

	LastLogin         time.Time
	PasswordChangedAt time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Public is the subset of an account that may cross the auth boundary.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	LastLogin time.Time `json:"lastLogin"`
}

// NormalizeEmail trims and lower-cases an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsLocked reports whether the account is locked at now. It never mutates a.
func (a *Account) IsLocked(now time.Time) bool {
	if a == nil || a.LockUntil.IsZero() {
		return false
	}
	return a.LockUntil.After(now)
}

// LockState returns the lockout fields of a.
func (a *Account) LockState() LockState {
	if a == nil {
		return LockState{}
	}
	return LockState{Attempts: a.LoginAttempts, LockUntil: a.LockUntil}
}

// RecordFailedAttempt applies the failed-login transition to a in place and
// returns the resulting state.
func (a *Account) RecordFailedAttempt(p LockoutPolicy, now time.Time) LockState {
	next := a.LockState().Fail(p, now)
	a.LoginAttempts = next.Attempts
	a.LockUntil = next.LockUntil
	a.UpdatedAt = now
	return next
}

// RecordSuccessfulLogin clears the lockout fields and stamps LastLogin.
func (a *Account) RecordSuccessfulLogin(now time.Time) {
	a.LoginAttempts = 0
	a.LockUntil = time.Time{}
	a.LastLogin = now
	a.UpdatedAt = now
}

// HasRefreshToken reports whether the digest of token is whitelisted and
// not past its expiry.
func (a *Account) HasRefreshToken(token string, now time.Time) bool {
	if a == nil {
		return false
	}
	d := TokenDigest(token)
	for _, rt := range a.RefreshTokens {
		if rt.Digest == d && rt.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// Public returns the externally visible view of a.
func (a *Account) Public() Public {
	return Public{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Role:      a.Role,
		LastLogin: a.LastLogin,
	}
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.RefreshTokens != nil {
		c.RefreshTokens = make([]RefreshToken, len(a.RefreshTokens))
		copy(c.RefreshTokens, a.RefreshTokens)
	}
	return &c
}
