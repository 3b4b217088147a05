package adminauth

import (
	"time"

	"github.com/MrEthical07/adminauth/password"
)

// HighSecurityConfig tightens DefaultConfig for dashboards exposed to the
// internet: short access tokens, a one-day refresh window with rotation,
// three attempts before a four hour lock, and argon2id hashing. Secrets are
// left empty and must be supplied.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()

	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.JWT.MaxClockSkew = 5 * time.Second

	cfg.Lockout.MaxAttempts = 3
	cfg.Lockout.LockDuration = 4 * time.Hour

	cfg.Password.Algorithm = password.AlgorithmArgon2id
	cfg.Password.MinLength = 12
	cfg.Password.MaxBytes = 256

	cfg.Refresh.Rotate = true
	cfg.Maintenance.Interval = 5 * time.Minute
	cfg.Audit.DropIfFull = false
	return cfg
}

// Preset returns the named configuration preset: "default" or
// "high-security". ok is false for unknown names.
func Preset(name string) (cfg Config, ok bool) {
	switch name {
	case "", "default":
		return DefaultConfig(), true
	case "high-security":
		return HighSecurityConfig(), true
	}
	return Config{}, false
}
