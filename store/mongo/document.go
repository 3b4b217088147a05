package mongo

import (
	"time"

	"github.com/MrEthical07/adminauth/account"
)

// document is the stored shape of an account. Optional timestamps are
// pointers so they are omitted rather than stored as the zero time.
type document struct {
	ID                string     `bson:"_id"`
	Name              string     `bson:"name"`
	Email             string     `bson:"email"`
	PasswordHash      string     `bson:"passwordHash,omitempty"`
	Role              string     `bson:"role"`
	IsActive          bool       `bson:"isActive"`
	LoginAttempts     int        `bson:"loginAttempts"`
	LockUntil         *time.Time `bson:"lockUntil,omitempty"`
	RefreshTokens     []tokenDoc `bson:"refreshTokens"`
	LastLogin         *time.Time `bson:"lastLogin,omitempty"`
	PasswordChangedAt *time.Time `bson:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `bson:"createdAt"`
	UpdatedAt         time.Time  `bson:"updatedAt"`
}

type tokenDoc struct {
	Digest    string    `bson:"digest"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func toDocument(a *account.Account) document {
	d := document{
		ID:                a.ID,
		Name:              a.Name,
		Email:             a.Email,
		PasswordHash:      a.PasswordHash,
		Role:              string(a.Role),
		IsActive:          a.IsActive,
		LoginAttempts:     a.LoginAttempts,
		LockUntil:         optionalTime(a.LockUntil),
		RefreshTokens:     make([]tokenDoc, 0, len(a.RefreshTokens)),
		LastLogin:         optionalTime(a.LastLogin),
		PasswordChangedAt: optionalTime(a.PasswordChangedAt),
		CreatedAt:         a.CreatedAt.UTC(),
		UpdatedAt:         a.UpdatedAt.UTC(),
	}
	for _, rt := range a.RefreshTokens {
		d.RefreshTokens = append(d.RefreshTokens, tokenDoc{Digest: rt.Digest, ExpiresAt: rt.ExpiresAt.UTC()})
	}
	return d
}

func (d document) toAccount() *account.Account {
	a := &account.Account{
		ID:                d.ID,
		Name:              d.Name,
		Email:             d.Email,
		PasswordHash:      d.PasswordHash,
		Role:              account.Role(d.Role),
		IsActive:          d.IsActive,
		LoginAttempts:     d.LoginAttempts,
		LockUntil:         derefTime(d.LockUntil),
		LastLogin:         derefTime(d.LastLogin),
		PasswordChangedAt: derefTime(d.PasswordChangedAt),
		CreatedAt:         d.CreatedAt.UTC(),
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
	for _, rt := range d.RefreshTokens {
		a.RefreshTokens = append(a.RefreshTokens, account.RefreshToken{Digest: rt.Digest, ExpiresAt: rt.ExpiresAt.UTC()})
	}
	return a
}
