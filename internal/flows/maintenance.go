package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/adminauth/account"
)

// MaintenanceReport counts what one maintenance pass removed.
type MaintenanceReport struct {
	StartedAt        time.Time
	Duration         time.Duration
	AccountsUnlocked int
	TokensPurged     int
	BlacklistEvicted int
}

// MaintenanceDeps captures maintenance dependencies. CleanupBlacklist is
// optional.
type MaintenanceDeps struct {
	Now func() time.Time

	FindAccountsWithExpiredLocks func(ctx context.Context, now time.Time) ([]*account.Account, error)
	UnlockExpiredAccounts        func(ctx context.Context, now time.Time) (int, error)
	CleanupExpiredTokens         func(ctx context.Context, now time.Time) (int, error)
	CleanupBlacklist             func(ctx context.Context, now time.Time) (int, error)

	EmitAudit      AuditFunc
	LockExpiredEvt string
}

// RunMaintenance unlocks accounts whose lock elapsed, purges expired
// whitelist entries, and evicts expired blacklist entries. A failing step
// does not stop the later ones; all step errors are joined.
func RunMaintenance(ctx context.Context, deps MaintenanceDeps) (MaintenanceReport, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = noAudit
	}

	now := deps.Now()
	report := MaintenanceReport{StartedAt: now}
	var errs []error

	expired, err := deps.FindAccountsWithExpiredLocks(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("find expired locks: %w", err))
	}
	for _, a := range expired {
		lockUntil := a.LockUntil
		deps.EmitAudit(ctx, deps.LockExpiredEvt, true, a.ID, nil, func() map[string]string {
			return map[string]string{
				"email":      a.Email,
				"lock_until": lockUntil.UTC().Format(time.RFC3339),
			}
		})
	}

	if n, err := deps.UnlockExpiredAccounts(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("unlock expired accounts: %w", err))
	} else {
		report.AccountsUnlocked = n
	}

	if n, err := deps.CleanupExpiredTokens(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("cleanup refresh tokens: %w", err))
	} else {
		report.TokensPurged = n
	}

	if deps.CleanupBlacklist != nil {
		if n, err := deps.CleanupBlacklist(ctx, now); err != nil {
			errs = append(errs, fmt.Errorf("cleanup blacklist: %w", err))
		} else {
			report.BlacklistEvicted = n
		}
	}

	report.Duration = deps.Now().Sub(now)
	return report, errors.Join(errs...)
}
