package internaldefs

import (
	"strconv"

	"github.com/MrEthical07/adminauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   adminauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: adminauth.MetricLoginSuccess, Name: "adminauth_login_success_total", Help: "Successful admin logins."},
	{ID: adminauth.MetricLoginFailure, Name: "adminauth_login_failure_total", Help: "Logins rejected for invalid credentials."},
	{ID: adminauth.MetricLoginLocked, Name: "adminauth_login_locked_total", Help: "Logins rejected because the account was locked."},
	{ID: adminauth.MetricLoginInactive, Name: "adminauth_login_inactive_total", Help: "Logins rejected because the account was disabled."},
	{ID: adminauth.MetricRefreshSuccess, Name: "adminauth_refresh_success_total", Help: "Successful token refreshes."},
	{ID: adminauth.MetricRefreshFailure, Name: "adminauth_refresh_failure_total", Help: "Rejected token refreshes."},
	{ID: adminauth.MetricLogout, Name: "adminauth_logout_total", Help: "Single-token logouts."},
	{ID: adminauth.MetricLogoutAll, Name: "adminauth_logout_all_total", Help: "Logout-all operations."},
	{ID: adminauth.MetricTokenBlacklisted, Name: "adminauth_token_blacklisted_total", Help: "Access tokens added to the blacklist."},
	{ID: adminauth.MetricAuthorizeFailure, Name: "adminauth_authorize_failure_total", Help: "Access tokens rejected by Authorize."},
	{ID: adminauth.MetricPasswordChangeSuccess, Name: "adminauth_password_change_success_total", Help: "Successful password changes."},
	{ID: adminauth.MetricPasswordChangeFailure, Name: "adminauth_password_change_failure_total", Help: "Rejected password changes."},
	{ID: adminauth.MetricAccountCreated, Name: "adminauth_account_created_total", Help: "Provisioned admin accounts."},
	{ID: adminauth.MetricAccountsUnlocked, Name: "adminauth_accounts_unlocked_total", Help: "Accounts unlocked by maintenance after their lock expired."},
	{ID: adminauth.MetricStoreTokensPurged, Name: "adminauth_store_tokens_purged_total", Help: "Expired refresh tokens purged from the store."},
	{ID: adminauth.MetricBlacklistEvicted, Name: "adminauth_blacklist_evicted_total", Help: "Expired entries evicted from the blacklist."},
	{ID: adminauth.MetricInternalError, Name: "adminauth_internal_error_total", Help: "Operations that failed with an internal error."},
}

var HistogramDefs = []HistogramDef{
	{ID: adminauth.MetricLoginLatency, Name: "adminauth_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets. The engine's last bucket is the overflow (+Inf).
var HistogramBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketLabels returns the "le" label of each engine bucket, overflow
// included, formatted the way Prometheus renders bucket bounds.
func BucketLabels() []string {
	out := make([]string, 0, len(HistogramBounds)+1)
	for _, b := range HistogramBounds {
		out = append(out, strconv.FormatFloat(b, 'g', -1, 64))
	}
	return append(out, "+Inf")
}

// AuditDroppedName is exported alongside the engine counters.
const (
	AuditDroppedName = "adminauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped under dispatcher back-pressure."
)

// NormalizeBuckets copies raw into a fixed-size array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
