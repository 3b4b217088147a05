// Package memory is an in-process account.Store. It backs tests, local
// development and the single-binary demo mode of adminauthd.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/adminauth/account"
)

// Store keeps accounts in a map guarded by one mutex, so every method is
// trivially atomic with respect to the others.
type Store struct {
	mu      sync.Mutex
	byID    map[string]*account.Account
	byEmail map[string]string
}

func New() *Store {
	return &Store{
		byID:    make(map[string]*account.Account),
		byEmail: make(map[string]string),
	}
}

func (s *Store) FindByEmail(_ context.Context, email string, includeCredential bool) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.snapshot(id, includeCredential), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return nil, account.ErrNotFound
	}
	return s.snapshot(id, false), nil
}

func (s *Store) Create(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[a.Email]; ok {
		return account.ErrDuplicateEmail
	}
	s.byID[a.ID] = a.Clone()
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *Store) UpdatePassword(_ context.Context, id, hash string, changedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	a.PasswordHash = hash
	a.PasswordChangedAt = changedAt
	a.UpdatedAt = changedAt
	return nil
}

func (s *Store) RehashPassword(_ context.Context, id, hash string, now time.Time) error {
	return s.update(id, func(a *account.Account) {
		a.PasswordHash = hash
		a.UpdatedAt = now
	})
}

func (s *Store) SetActive(_ context.Context, id string, active bool, now time.Time) error {
	return s.update(id, func(a *account.Account) {
		a.IsActive = active
		a.UpdatedAt = now
	})
}

func (s *Store) update(id string, fn func(*account.Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	fn(a)
	return nil
}

func (s *Store) IncrementLoginAttempts(_ context.Context, id string, p account.LockoutPolicy, now time.Time) (account.LockState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.LockState{}, account.ErrNotFound
	}
	return a.RecordFailedAttempt(p, now), nil
}

func (s *Store) ResetLoginAttempts(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	a.RecordSuccessfulLogin(now)
	return nil
}

func (s *Store) AddRefreshToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	d := account.TokenDigest(token)
	for i := range a.RefreshTokens {
		if a.RefreshTokens[i].Digest == d {
			a.RefreshTokens[i].ExpiresAt = expiresAt
			return nil
		}
	}
	a.RefreshTokens = append(a.RefreshTokens, account.RefreshToken{Digest: d, ExpiresAt: expiresAt})
	return nil
}

func (s *Store) RemoveRefreshToken(_ context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil
	}
	d := account.TokenDigest(token)
	kept := a.RefreshTokens[:0]
	for _, rt := range a.RefreshTokens {
		if rt.Digest != d {
			kept = append(kept, rt)
		}
	}
	a.RefreshTokens = kept
	return nil
}

func (s *Store) HasRefreshToken(_ context.Context, id, token string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	return a.HasRefreshToken(token, now), nil
}

func (s *Store) ClearAllRefreshTokens(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.byID[id]; ok {
		a.RefreshTokens = nil
	}
	return nil
}

func (s *Store) FindAccountsWithExpiredLocks(_ context.Context, now time.Time) ([]*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*account.Account
	for id, a := range s.byID {
		if !a.LockUntil.IsZero() && !a.LockUntil.After(now) {
			out = append(out, s.snapshot(id, false))
		}
	}
	return out, nil
}

func (s *Store) UnlockExpiredAccounts(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, a := range s.byID {
		if !a.LockUntil.IsZero() && !a.LockUntil.After(now) {
			a.LockUntil = time.Time{}
			a.LoginAttempts = 0
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) UnlockAccount(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return account.ErrNotFound
	}
	a.LockUntil = time.Time{}
	a.LoginAttempts = 0
	a.UpdatedAt = now
	return nil
}

func (s *Store) CleanupExpiredTokens(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, a := range s.byID {
		kept := a.RefreshTokens[:0]
		for _, rt := range a.RefreshTokens {
			if rt.ExpiresAt.After(now) {
				kept = append(kept, rt)
			} else {
				n++
			}
		}
		a.RefreshTokens = kept
	}
	return n, nil
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot(id string, includeCredential bool) *account.Account {
	c := s.byID[id].Clone()
	if !includeCredential {
		c.PasswordHash = ""
	}
	return c
}
