package adminauth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
)

// Engine is the admin authentication orchestrator. It is safe for
// concurrent use; all durable state lives in the account store and the
// blacklist.
type Engine struct {
	config    Config
	store     account.Store
	blacklist Blacklist
	tokens    *jwt.Manager
	passwords *password.Verifier
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	clock     func() time.Time
	flow      *flows.Wiring

	maintaining atomic.Bool
}

// Close flushes pending audit events. The engine must not be used after
// Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped reports audit events dropped under back-pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AccessTTL is the configured access token lifetime.
func (e *Engine) AccessTTL() time.Duration {
	return e.tokens.AccessTTL()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) now() time.Time {
	return e.clock()
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Ready()
}

// internal hides err behind ErrInternal unless it is already one of the
// public outcomes. The cause is logged with the operation name.
func (e *Engine) internal(ctx context.Context, op, accountID string, err error) error {
	if err == nil {
		return nil
	}
	if isPublic(err) {
		return err
	}
	e.metricInc(MetricInternalError)
	e.logger.LogAttrs(ctx, slog.LevelError, "operation failed",
		slog.String("op", op),
		slog.String("account_id", accountID),
		slog.String("request_id", requestIDFromContext(ctx)),
		slog.Any("error", err),
	)
	return ErrInternal
}

// Login authenticates an admin by email and password.
//
// Unknown email and wrong password both return ErrInvalidCredentials. A
// locked account returns ErrAccountLocked without comparing the password,
// and an inactive one ErrAccountInactive. Each wrong password counts towards
// the lockout threshold.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	res, err := flows.RunLogin(ctx, email, password, e.flow.Login)
	if e.metrics.Enabled() {
		e.metrics.Observe(MetricLoginLatency, time.Since(start))
	}
	if err != nil {
		return nil, e.internal(ctx, "login", "", err)
	}

	return &LoginResult{
		Account:      res.Account,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn(res.AccessExpiresAt, e.now()),
	}, nil
}

// Refresh exchanges a whitelisted refresh token for a new access token.
// Every token problem returns ErrTokenInvalid; a deactivated account returns
// ErrAccountInactive.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flow.Refresh)
	var err error
	switch res.Failure {
	case flows.RefreshFailureNone:
	case flows.RefreshFailureVerify,
		flows.RefreshFailureAccountNotFound,
		flows.RefreshFailureNotWhitelisted:
		err = ErrTokenInvalid
	case flows.RefreshFailureInactive:
		err = ErrAccountInactive
	default:
		err = e.internal(ctx, "refresh", res.AccountID, res.Err)
	}

	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshFailure, false, res.AccountID, err, nil)
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefreshSuccess, true, res.AccountID, nil, func() map[string]string {
		if res.RefreshToken == "" {
			return nil
		}
		return map[string]string{"rotated": "true"}
	})
	return &TokenResult{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    expiresIn(res.AccessExpiresAt, e.now()),
	}, nil
}

// Authorize verifies an access token and checks it against the blacklist.
// All failures return ErrTokenInvalid. A blacklist backend failure is logged
// and treated as revoked.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res := flows.RunAuthorize(ctx, accessToken, e.flow.Authorize)
	if res.Outcome == flows.AuthorizeOK {
		return res.Claims, nil
	}

	e.metricInc(MetricAuthorizeFailure)
	if res.Outcome == flows.AuthorizeBlacklistDown {
		e.logger.LogAttrs(ctx, slog.LevelError, "blacklist lookup failed",
			slog.String("request_id", requestIDFromContext(ctx)),
			slog.Any("error", res.Err),
		)
	}
	return nil, ErrTokenInvalid
}

// Logout removes refreshToken from the account's whitelist. An empty or
// already-removed token is not an error, so repeated logouts succeed.
func (e *Engine) Logout(ctx context.Context, accountID, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := flows.RunLogout(ctx, accountID, refreshToken, e.flow.Logout); err != nil {
		return e.internal(ctx, "logout", accountID, err)
	}
	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditLogout, true, accountID, nil, nil)
	return nil
}

// BlacklistToken revokes an access token until its own expiry. A token that
// does not verify is ignored, since it is rejected anyway.
func (e *Engine) BlacklistToken(ctx context.Context, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := flows.RunBlacklistAccess(ctx, accessToken, e.flow.Logout)
	if err != nil {
		return e.internal(ctx, "blacklist", "", err)
	}
	if claims != nil {
		e.metricInc(MetricTokenBlacklisted)
	}
	return nil
}

// LogoutAll revokes every refresh token of the account. Access tokens
// already issued stay valid until they expire or are blacklisted.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := flows.RunLogoutAll(ctx, accountID, e.flow.Logout); err != nil {
		return e.internal(ctx, "logout_all", accountID, err)
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, AuditLogoutAll, true, accountID, nil, nil)
	return nil
}

// Account returns the public view of an account.
func (e *Engine) Account(ctx context.Context, accountID string) (*account.Public, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	a, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, e.internal(ctx, "account", accountID, err)
	}
	pub := a.Public()
	return &pub, nil
}

// CreateAccount provisions an active admin account. The email is normalized
// and must be unique.
func (e *Engine) CreateAccount(ctx context.Context, req NewAccount) (*account.Public, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	a, err := flows.RunCreateAccount(ctx, flows.NewAccountInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, e.flow.Account)
	if err != nil {
		err = e.internal(ctx, "create_account", "", err)
		e.emitAudit(ctx, AuditAccountCreated, false, "", err, func() map[string]string {
			return map[string]string{"email": account.NormalizeEmail(req.Email)}
		})
		return nil, err
	}

	e.metricInc(MetricAccountCreated)
	e.emitAudit(ctx, AuditAccountCreated, true, a.ID, nil, func() map[string]string {
		return map[string]string{"email": a.Email, "role": string(a.Role)}
	})
	pub := a.Public()
	return &pub, nil
}

// ChangePassword verifies the current password, stores a hash of next and
// revokes every refresh token of the account. A wrong current password
// returns ErrInvalidCredentials and does not count towards lockout.
func (e *Engine) ChangePassword(ctx context.Context, accountID, current, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := flows.RunChangePassword(ctx, accountID, current, next, e.flow.Account); err != nil {
		err = e.internal(ctx, "change_password", accountID, err)
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, AuditPasswordChange, false, accountID, err, nil)
		return err
	}
	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, AuditPasswordChange, true, accountID, nil, nil)
	return nil
}

// UnlockAccount clears a lock before it expires.
func (e *Engine) UnlockAccount(ctx context.Context, accountID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	if err := flows.RunUnlockAccount(ctx, accountID, e.flow.Account); err != nil {
		return e.internal(ctx, "unlock_account", accountID, err)
	}
	e.emitAudit(ctx, AuditAccountUnlocked, true, accountID, nil, nil)
	return nil
}

// DisableAccount deactivates an account and revokes all of its refresh
// tokens. Logins and refreshes then fail with ErrAccountInactive. Access
// tokens already issued stay valid until they expire; blacklist them to cut
// them short. Disabling a disabled account is a no-op apart from the revoke.
func (e *Engine) DisableAccount(ctx context.Context, accountID string) error {
	return e.setAccountStatus(ctx, accountID, false)
}

// EnableAccount reactivates an account. The refresh tokens revoked by
// DisableAccount stay revoked.
func (e *Engine) EnableAccount(ctx context.Context, accountID string) error {
	return e.setAccountStatus(ctx, accountID, true)
}

func (e *Engine) setAccountStatus(ctx context.Context, accountID string, active bool) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	op, event := "disable_account", AuditAccountDisabled
	if active {
		op, event = "enable_account", AuditAccountEnabled
	}
	changed, err := flows.RunSetAccountStatus(ctx, accountID, active, e.flow.Account)
	if err != nil {
		err = e.internal(ctx, op, accountID, err)
		e.emitAudit(ctx, event, false, accountID, err, nil)
		return err
	}
	e.emitAudit(ctx, event, true, accountID, nil, func() map[string]string {
		return map[string]string{"changed": strconv.FormatBool(changed)}
	})
	return nil
}
