// Package redis is an account.Store on Redis.
//
// Every state transition that must be atomic (account creation, the lockout
// failure transition, refresh-token insert) runs as a Lua script, so
// concurrent requests against the same account never lose an update.
//
// Key layout, with the configured prefix p:
//
//	p:acct:<id>     HASH  account fields
//	p:email:<email> STRING account id
//	p:rt:<id>       ZSET  refresh-token digest -> expiry (unix ms)
//	p:locks         ZSET  account id -> lock_until (unix ms)
//	p:accts         SET   all account ids
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every transport or server failure.
var ErrRedisUnavailable = errors.New("redis unavailable")

const scanBatch = 256

// Store implements account.Store.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore returns a Store using keys under prefix ("aa" when empty).
func NewStore(client redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = "aa"
	}
	return &Store{redis: client, prefix: prefix}
}

func (s *Store) accountPrefix() string        { return s.prefix + ":acct:" }
func (s *Store) accountKey(id string) string  { return s.accountPrefix() + id }
func (s *Store) emailKey(email string) string { return s.prefix + ":email:" + email }
func (s *Store) tokenKey(id string) string    { return s.prefix + ":rt:" + id }
func (s *Store) locksKey() string             { return s.prefix + ":locks" }
func (s *Store) accountsKey() string          { return s.prefix + ":accts" }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

func (s *Store) Create(ctx context.Context, a *account.Account) error {
	args := []interface{}{a.ID}
	args = append(args, encodeFields(a)...)

	created, err := createLua.Run(ctx, s.redis,
		[]string{s.emailKey(a.Email), s.accountKey(a.ID), s.accountsKey()},
		args...,
	).Int()
	if err != nil {
		return unavailable(err)
	}
	if created == 0 {
		return account.ErrDuplicateEmail
	}
	return nil
}

func (s *Store) FindByEmail(ctx context.Context, email string, includeCredential bool) (*account.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, account.ErrNotFound
		}
		return nil, unavailable(err)
	}
	return s.load(ctx, id, includeCredential)
}

func (s *Store) FindByID(ctx context.Context, id string) (*account.Account, error) {
	return s.load(ctx, id, false)
}

func (s *Store) load(ctx context.Context, id string, includeCredential bool) (*account.Account, error) {
	var (
		fields *redis.MapStringStringCmd
		tokens *redis.ZSliceCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, s.accountKey(id))
		tokens = pipe.ZRangeWithScores(ctx, s.tokenKey(id), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable(err)
	}
	if len(fields.Val()) == 0 {
		return nil, account.ErrNotFound
	}

	a := decodeFields(fields.Val())
	if !includeCredential {
		a.PasswordHash = ""
	}
	for _, z := range tokens.Val() {
		digest, _ := z.Member.(string)
		a.RefreshTokens = append(a.RefreshTokens, account.RefreshToken{
			Digest:    digest,
			ExpiresAt: fromMillis(int64(z.Score)),
		})
	}
	return a, nil
}

func (s *Store) UpdatePassword(ctx context.Context, id, hash string, changedAt time.Time) error {
	ok, err := updatePasswordLua.Run(ctx, s.redis, []string{s.accountKey(id)}, hash, toMillis(changedAt)).Int()
	if err != nil {
		return unavailable(err)
	}
	if ok == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) RehashPassword(ctx context.Context, id, hash string, now time.Time) error {
	return s.setFields(ctx, id, "hash", hash, "updated", toMillis(now))
}

func (s *Store) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	flag := "0"
	if active {
		flag = "1"
	}
	return s.setFields(ctx, id, "active", flag, "updated", toMillis(now))
}

func (s *Store) setFields(ctx context.Context, id string, pairs ...interface{}) error {
	ok, err := setFieldsLua.Run(ctx, s.redis, []string{s.accountKey(id)}, pairs...).Int()
	if err != nil {
		return unavailable(err)
	}
	if ok == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) IncrementLoginAttempts(ctx context.Context, id string, p account.LockoutPolicy, now time.Time) (account.LockState, error) {
	res, err := incrementAttemptsLua.Run(ctx, s.redis,
		[]string{s.accountKey(id), s.locksKey()},
		id, toMillis(now), p.MaxAttempts, p.LockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return account.LockState{}, unavailable(err)
	}
	if len(res) != 2 {
		return account.LockState{}, fmt.Errorf("%w: unexpected script reply %v", ErrRedisUnavailable, res)
	}
	if res[0] < 0 {
		return account.LockState{}, account.ErrNotFound
	}
	return account.LockState{Attempts: int(res[0]), LockUntil: fromMillis(res[1])}, nil
}

func (s *Store) ResetLoginAttempts(ctx context.Context, id string, now time.Time) error {
	return s.clearLock(ctx, id, now, true)
}

func (s *Store) UnlockAccount(ctx context.Context, id string, now time.Time) error {
	return s.clearLock(ctx, id, now, false)
}

func (s *Store) clearLock(ctx context.Context, id string, now time.Time, stampLogin bool) error {
	flag := "0"
	if stampLogin {
		flag = "1"
	}
	ok, err := clearLockLua.Run(ctx, s.redis, []string{s.accountKey(id), s.locksKey()}, id, toMillis(now), flag).Int()
	if err != nil {
		return unavailable(err)
	}
	if ok == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) AddRefreshToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	ok, err := addTokenLua.Run(ctx, s.redis,
		[]string{s.accountKey(id), s.tokenKey(id)},
		toMillis(expiresAt), account.TokenDigest(token),
	).Int()
	if err != nil {
		return unavailable(err)
	}
	if ok == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *Store) RemoveRefreshToken(ctx context.Context, id, token string) error {
	if err := s.redis.ZRem(ctx, s.tokenKey(id), account.TokenDigest(token)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) HasRefreshToken(ctx context.Context, id, token string, now time.Time) (bool, error) {
	score, err := s.redis.ZScore(ctx, s.tokenKey(id), account.TokenDigest(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, unavailable(err)
	}
	return int64(score) > toMillis(now), nil
}

func (s *Store) ClearAllRefreshTokens(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, s.tokenKey(id)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) FindAccountsWithExpiredLocks(ctx context.Context, now time.Time) ([]*account.Account, error) {
	ids, err := s.redis.ZRangeByScore(ctx, s.locksKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(toMillis(now), 10),
	}).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]*account.Account, 0, len(ids))
	for _, id := range ids {
		a, err := s.load(ctx, id, false)
		if errors.Is(err, account.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) UnlockExpiredAccounts(ctx context.Context, now time.Time) (int, error) {
	n, err := unlockExpiredLua.Run(ctx, s.redis, []string{s.locksKey()}, toMillis(now), s.accountPrefix()).Int()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// CleanupExpiredTokens walks the account set in SSCAN batches and trims each
// token set by score. It is not atomic across accounts, which is fine for
// housekeeping: a token that expires mid-walk is caught on the next run.
func (s *Store) CleanupExpiredTokens(ctx context.Context, now time.Time) (int, error) {
	max := strconv.FormatInt(toMillis(now), 10)
	removed := 0

	var cursor uint64
	for {
		ids, next, err := s.redis.SScan(ctx, s.accountsKey(), cursor, "", scanBatch).Result()
		if err != nil {
			return removed, unavailable(err)
		}

		if len(ids) > 0 {
			cmds := make([]*redis.IntCmd, len(ids))
			_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				for i, id := range ids {
					cmds[i] = pipe.ZRemRangeByScore(ctx, s.tokenKey(id), "-inf", max)
				}
				return nil
			})
			if err != nil {
				return removed, unavailable(err)
			}
			for _, c := range cmds {
				removed += int(c.Val())
			}
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Ping reports round-trip latency to Redis.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return 0, unavailable(err)
	}
	return time.Since(start), nil
}
