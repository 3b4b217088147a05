package adminauth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/adminauth/password"
)

// LintSeverity ranks a LintWarning. Higher is worse.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	}
	return fmt.Sprintf("LintSeverity(%d)", int(s))
}

// LintWarning is one finding of Config.Lint. Code is stable and suitable for
// suppression lists.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered list of findings.
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil
// when there are none.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}

// Lint reports settings that pass Validate but are risky or unusual for an
// admin dashboard. It never fails; use AsError to turn findings into one.
func (c *Config) Lint() LintResult {
	var r LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		r = append(r, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	// JWT
	if lowEntropy(c.JWT.AccessSecret) || lowEntropy(c.JWT.RefreshSecret) {
		add("secret_low_entropy", LintHigh, "a jwt secret uses fewer than 8 distinct bytes")
	}
	if c.JWT.AccessTTL > 15*time.Minute {
		add("access_ttl_long", LintWarn, "access tokens live %s; revocation relies on the blacklist until then", c.JWT.AccessTTL)
	}
	if c.JWT.RefreshTTL > 14*24*time.Hour {
		add("refresh_ttl_long", LintWarn, "refresh tokens live %s", c.JWT.RefreshTTL)
	}
	if c.JWT.Leeway > time.Minute {
		add("leeway_large", LintWarn, "expiry leeway of %s extends every token", c.JWT.Leeway)
	}
	if c.JWT.MaxClockSkew < 0 {
		add("clock_skew_unchecked", LintInfo, "access tokens issued in the future are accepted")
	}

	// Lockout
	if c.Lockout.MaxAttempts > 10 {
		add("lockout_lenient", LintWarn, "%d failed attempts are allowed before locking", c.Lockout.MaxAttempts)
	}
	if c.Lockout.LockDuration > 0 && c.Lockout.LockDuration < 5*time.Minute {
		add("lockout_short", LintWarn, "accounts stay locked for only %s", c.Lockout.LockDuration)
	}

	// Password
	if c.Password.MinLength < 8 {
		add("password_min_short", LintWarn, "minimum password length is %d", c.Password.MinLength)
	}
	if c.Password.Algorithm == password.AlgorithmArgon2id && c.Password.Argon2.Memory < 64*1024 {
		add("argon2_memory_low", LintWarn, "argon2id memory is %d KiB, below 64 MiB", c.Password.Argon2.Memory)
	}
	if !c.Password.UpgradeOnLogin {
		add("hash_upgrade_disabled", LintInfo, "hashes made with weaker parameters are never replaced")
	}

	// Sessions and background work
	if !c.Refresh.Rotate {
		add("refresh_rotation_disabled", LintInfo, "a stolen refresh token stays valid until it expires or is logged out")
	}
	if c.Maintenance.Interval == 0 {
		add("maintenance_disabled", LintWarn, "expired locks and whitelist entries are never purged in the background")
	}
	if c.Blacklist.CleanupInterval == 0 {
		add("blacklist_cleanup_disabled", LintInfo, "the in-memory blacklist is only trimmed by maintenance passes")
	}

	// Observability
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "authentication events are not audited")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "engine counters are not collected")
	}
	return r
}

func lowEntropy(secret []byte) bool {
	if len(secret) == 0 {
		return false
	}
	seen := make(map[byte]struct{}, 8)
	for _, b := range secret {
		seen[b] = struct{}{}
		if len(seen) >= 8 {
			return false
		}
	}
	return true
}

// String renders one finding per line.
func (r LintResult) String() string {
	var b strings.Builder
	for _, w := range r {
		fmt.Fprintf(&b, "%-4s %s: %s\n", w.Severity, w.Code, w.Message)
	}
	return b.String()
}
