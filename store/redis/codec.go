package redis

import (
	"strconv"
	"time"

	"github.com/MrEthical07/adminauth/account"
)

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// parseMillis accepts both integer and float renderings, since values written
// from Lua arithmetic may come back in either form.
func parseMillis(v string) int64 {
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

func encodeFields(a *account.Account) []interface{} {
	active := "0"
	if a.IsActive {
		active = "1"
	}
	return []interface{}{
		"id", a.ID,
		"name", a.Name,
		"email", a.Email,
		"hash", a.PasswordHash,
		"role", string(a.Role),
		"active", active,
		"attempts", a.LoginAttempts,
		"lock_until", toMillis(a.LockUntil),
		"last_login", toMillis(a.LastLogin),
		"pwd_changed", toMillis(a.PasswordChangedAt),
		"created", toMillis(a.CreatedAt),
		"updated", toMillis(a.UpdatedAt),
	}
}

func decodeFields(m map[string]string) *account.Account {
	attempts, _ := strconv.Atoi(m["attempts"])
	return &account.Account{
		ID:                m["id"],
		Name:              m["name"],
		Email:             m["email"],
		PasswordHash:      m["hash"],
		Role:              account.Role(m["role"]),
		IsActive:          m["active"] == "1",
		LoginAttempts:     attempts,
		LockUntil:         fromMillis(parseMillis(m["lock_until"])),
		LastLogin:         fromMillis(parseMillis(m["last_login"])),
		PasswordChangedAt: fromMillis(parseMillis(m["pwd_changed"])),
		CreatedAt:         fromMillis(parseMillis(m["created"])),
		UpdatedAt:         fromMillis(parseMillis(m["updated"])),
	}
}
