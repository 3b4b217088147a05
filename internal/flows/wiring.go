package flows

import "context"

// AuditFunc emits one audit event. accountID may be empty and metadata is
// only invoked when the event is actually recorded.
type AuditFunc func(ctx context.Context, event string, success bool, accountID string, err error, metadata func() map[string]string)

func noAudit(context.Context, string, bool, string, error, func() map[string]string) {}

func noMetric(int) {}

func noWarn(string, ...any) {}

// Wiring holds the dependencies of every flow. The engine builds one at
// construction time, never mutates it, and passes the matching field to each
// Run function.
type Wiring struct {
	Login       LoginDeps
	Refresh     RefreshDeps
	Authorize   AuthorizeDeps
	Logout      LogoutDeps
	Account     AccountDeps
	Maintenance MaintenanceDeps
}

// Ready is false for a nil or partially built Wiring.
func (r *Wiring) Ready() bool {
	return r != nil && r.Authorize.Verify != nil && r.Login.FindByEmail != nil
}
