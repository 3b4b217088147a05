package adminauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/adminauth/internal/flows"
)

// RunMaintenance performs one maintenance pass: accounts whose lock has
// elapsed are unlocked, expired whitelist entries are purged from the
// store, and expired blacklist entries are evicted. A failing step does not
// skip the others. The returned error is already logged and classified.
func (e *Engine) RunMaintenance(ctx context.Context) (MaintenanceReport, error) {
	if !e.ready() {
		return MaintenanceReport{}, ErrEngineNotReady
	}

	if e.config.Maintenance.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Maintenance.Timeout)
		defer cancel()
	}

	res, err := flows.RunMaintenance(ctx, e.flow.Maintenance)
	report := MaintenanceReport{
		StartedAt:        res.StartedAt,
		Duration:         res.Duration,
		AccountsUnlocked: res.AccountsUnlocked,
		TokensPurged:     res.TokensPurged,
		BlacklistEvicted: res.BlacklistEvicted,
	}

	if e.metrics != nil {
		e.metrics.Add(MetricAccountsUnlocked, uint64(report.AccountsUnlocked))
		e.metrics.Add(MetricStoreTokensPurged, uint64(report.TokensPurged))
		e.metrics.Add(MetricBlacklistEvicted, uint64(report.BlacklistEvicted))
	}

	e.logger.LogAttrs(ctx, slog.LevelInfo, "maintenance completed",
		slog.Int("accounts_unlocked", report.AccountsUnlocked),
		slog.Int("tokens_purged", report.TokensPurged),
		slog.Int("blacklist_evicted", report.BlacklistEvicted),
		slog.Duration("duration", report.Duration),
	)

	if err != nil {
		return report, e.internal(ctx, "maintenance", "", err)
	}
	return report, nil
}

// CleanupBlacklist evicts blacklist entries whose token has expired.
func (e *Engine) CleanupBlacklist(ctx context.Context) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}

	n, err := e.blacklist.Cleanup(ctx, e.now())
	if err != nil {
		return 0, e.internal(ctx, "blacklist_cleanup", "", err)
	}
	if e.metrics != nil {
		e.metrics.Add(MetricBlacklistEvicted, uint64(n))
	}
	return n, nil
}

// StartMaintenance runs RunMaintenance immediately and then every
// Maintenance.Interval, and CleanupBlacklist every Blacklist.CleanupInterval,
// until ctx is done. It blocks; run it in its own goroutine. A zero interval
// disables that loop. Only one loop may run per engine.
func (e *Engine) StartMaintenance(ctx context.Context) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if !e.maintaining.CompareAndSwap(false, true) {
		return ErrMaintenanceActive
	}
	defer e.maintaining.Store(false)

	maintenance := tickerC(e.config.Maintenance.Interval)
	blacklist := tickerC(e.config.Blacklist.CleanupInterval)
	defer maintenance.stop()
	defer blacklist.stop()

	e.logger.Info("maintenance loop started",
		slog.Duration("interval", e.config.Maintenance.Interval),
		slog.Duration("blacklist_interval", e.config.Blacklist.CleanupInterval),
	)

	_, _ = e.RunMaintenance(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("maintenance loop stopped")
			return nil
		case <-maintenance.c:
			_, _ = e.RunMaintenance(ctx)
		case <-blacklist.c:
			_, _ = e.CleanupBlacklist(ctx)
		}
	}
}

type optionalTicker struct {
	t *time.Ticker
	c <-chan time.Time
}

// tickerC returns a ticker whose channel never fires when d is zero.
func tickerC(d time.Duration) optionalTicker {
	if d <= 0 {
		return optionalTicker{}
	}
	t := time.NewTicker(d)
	return optionalTicker{t: t, c: t.C}
}

func (o optionalTicker) stop() {
	if o.t != nil {
		o.t.Stop()
	}
}
