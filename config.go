package adminauth

import (
	"bytes"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/password"
)

// Config is the complete engine configuration. Build it from DefaultConfig
// and override fields; the Builder copies it, so later mutation has no
// effect on a built Engine.
type Config struct {
	JWT         JWTConfig
	Lockout     LockoutConfig
	Password    PasswordConfig
	Refresh     RefreshConfig
	Blacklist   BlacklistConfig
	Maintenance MaintenanceConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds the two signing secrets and token lifetimes. The secrets
// are independent values; neither is derived from the other.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// MaxClockSkew bounds how far in the future an access token's iat may
	// be. Negative disables the check.
	MaxClockSkew time.Duration
}

/*
====================================
LOCKOUT / PASSWORD CONFIG
====================================
*/

type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

func (c LockoutConfig) policy() account.LockoutPolicy {
	return account.LockoutPolicy{MaxAttempts: c.MaxAttempts, LockDuration: c.LockDuration}
}

type PasswordConfig struct {
	Algorithm      password.Algorithm
	BcryptCost     int
	Argon2         password.Argon2Config
	MinLength      int
	MaxBytes       int
	UpgradeOnLogin bool
}

/*
====================================
SESSION CONFIG
====================================
*/

// RefreshConfig controls refresh-token handling. With Rotate unset a refresh
// only issues a new access token and the refresh token stays valid until it
// expires or is logged out.
type RefreshConfig struct {
	Rotate bool
}

type BlacklistConfig struct {
	CleanupInterval time.Duration
}

// MaintenanceConfig controls the background loop started by
// Engine.StartMaintenance.
type MaintenanceConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. Secrets are left empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:    15 * time.Minute,
			RefreshTTL:   7 * 24 * time.Hour,
			Issuer:       "adminauth",
			Leeway:       0,
			MaxClockSkew: 30 * time.Second,
		},
		Lockout: LockoutConfig{
			MaxAttempts:  account.DefaultMaxLoginAttempts,
			LockDuration: account.DefaultLockDuration,
		},
		Password: PasswordConfig{
			Algorithm:      password.AlgorithmBcrypt,
			BcryptCost:     password.DefaultBcryptCost,
			Argon2:         password.DefaultArgon2Config(),
			MinLength:      8,
			MaxBytes:       72,
			UpgradeOnLogin: true,
		},
		Refresh: RefreshConfig{
			Rotate: false,
		},
		Blacklist: BlacklistConfig{
			CleanupInterval: 5 * time.Minute,
		},
		Maintenance: MaintenanceConfig{
			Interval: 10 * time.Minute,
			Timeout:  30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.AccessSecret) < 32 || len(c.JWT.RefreshSecret) < 32 {
		return ErrWeakSecret
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return ErrSharedSecret
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return ErrInvalidTTL
	}

	// Lockout
	if c.Lockout.MaxAttempts <= 0 || c.Lockout.LockDuration <= 0 {
		return ErrInvalidLockout
	}

	// Password
	if c.Password.Algorithm == password.AlgorithmBcrypt || c.Password.Algorithm == "" {
		if c.Password.BcryptCost < password.MinBcryptCost || c.Password.BcryptCost > 31 {
			return ErrInvalidBcryptCost
		}
	}
	if c.Password.MinLength < 1 || (c.Password.MaxBytes > 0 && c.Password.MaxBytes < c.Password.MinLength) {
		return ErrInvalidPasswordLen
	}
	if c.Password.Algorithm != password.AlgorithmArgon2id && c.Password.MaxBytes > 72 {
		return ErrInvalidPasswordLen
	}

	// Background work
	if c.Blacklist.CleanupInterval < 0 || c.Maintenance.Interval < 0 || c.Maintenance.Timeout < 0 {
		return ErrInvalidInterval
	}

	return nil
}
