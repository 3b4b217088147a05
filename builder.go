package adminauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/blacklist"
	"github.com/MrEthical07/adminauth/internal/audit"
	"github.com/MrEthical07/adminauth/internal/flows"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/password"
	"github.com/google/uuid"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config    Config
	store     account.Store
	blacklist Blacklist
	logger    *slog.Logger
	clock     func() time.Time
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the account store. Required.
func (b *Builder) WithStore(store account.Store) *Builder {
	b.store = store
	return b
}

// WithBlacklist replaces the default in-memory revocation set, for example
// with blacklist.NewRedis to share revocations across processes.
func (b *Builder) WithBlacklist(bl Blacklist) *Builder {
	b.blacklist = bl
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for lockout, token issuance and maintenance.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.store == nil {
		return nil, ErrMissingStore
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	bl := b.blacklist
	if bl == nil {
		bl = blacklist.NewMemory()
	}

	verifier, err := password.NewVerifier(password.Config{
		Algorithm:  cfg.Password.Algorithm,
		BcryptCost: cfg.Password.BcryptCost,
		Argon2:     cfg.Password.Argon2,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cloneBytes(cfg.JWT.AccessSecret),
		RefreshSecret: cloneBytes(cfg.JWT.RefreshSecret),
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		Now:           clock,
	})
	if err != nil {
		return nil, err
	}

	// Hash of a random secret; unknown-email logins verify against it.
	dummyHash, err := verifier.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cfg,
		store:     b.store,
		blacklist: bl,
		tokens:    tokens,
		passwords: verifier,
		logger:    logger.With("component", "adminauth"),
		clock:     clock,
		metrics:   NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
	}
	engine.flow = engine.wireFlows(dummyHash)

	b.built = true
	return engine, nil
}

func (e *Engine) wireFlows(dummyHash string) *flows.Wiring {
	store := e.store
	issueAccess := func(a *account.Account) (jwt.Issued, error) {
		return e.tokens.IssueAccess(a.ID, a.Email, string(a.Role))
	}
	issueRefresh := func(a *account.Account) (jwt.Issued, error) {
		return e.tokens.IssueRefresh(a.ID)
	}
	findWithCredential := func(ctx context.Context, email string) (*account.Account, error) {
		return store.FindByEmail(ctx, email, true)
	}
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	emit := func(ctx context.Context, event string, success bool, accountID string, err error, md func() map[string]string) {
		e.emitAudit(ctx, event, success, accountID, err, md)
	}

	login := flows.LoginDeps{
		Now:                e.now,
		Policy:             e.config.Lockout.policy(),
		DummyHash:          dummyHash,
		FindByEmail:        findWithCredential,
		RecordFailure:      store.IncrementLoginAttempts,
		RecordSuccess:      store.ResetLoginAttempts,
		AddRefreshToken:    store.AddRefreshToken,
		UpdatePasswordHash: store.RehashPassword,
		VerifyPassword:     e.passwords.Verify,
		IssueAccess:        issueAccess,
		IssueRefresh:       issueRefresh,
		MetricInc:          metricInc,
		EmitAudit:          emit,
		Warn:               e.logger.Warn,
		Metrics: flows.LoginMetrics{
			Success:  int(MetricLoginSuccess),
			Failure:  int(MetricLoginFailure),
			Locked:   int(MetricLoginLocked),
			Inactive: int(MetricLoginInactive),
		},
		Events: flows.LoginEvents{
			Success:  AuditLoginSuccess,
			Failure:  AuditLoginFailure,
			Locked:   AuditLoginLocked,
			Inactive: AuditLoginInactive,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			AccountLocked:      ErrAccountLocked,
			AccountInactive:    ErrAccountInactive,
		},
	}
	if e.config.Password.UpgradeOnLogin {
		login.PasswordNeedsUpgrade = e.passwords.NeedsRehash
		login.HashPassword = e.passwords.Hash
	}

	return &flows.Wiring{
		Login: login,
		Refresh: flows.RefreshDeps{
			Now:                e.now,
			Rotate:             e.config.Refresh.Rotate,
			VerifyRefresh:      e.tokens.VerifyRefresh,
			FindByID:           store.FindByID,
			HasRefreshToken:    store.HasRefreshToken,
			AddRefreshToken:    store.AddRefreshToken,
			RemoveRefreshToken: store.RemoveRefreshToken,
			IssueAccess:        issueAccess,
			IssueRefresh:       issueRefresh,
		},
		Authorize: flows.AuthorizeDeps{
			Verify:       e.tokens.VerifyAccess,
			Blacklisted:  e.blacklist.Contains,
			Now:          e.now,
			MaxClockSkew: e.config.JWT.MaxClockSkew,
		},
		Logout: flows.LogoutDeps{
			FindByID:              store.FindByID,
			RemoveRefreshToken:    store.RemoveRefreshToken,
			ClearAllRefreshTokens: store.ClearAllRefreshTokens,
			VerifyAccess:          e.tokens.VerifyAccess,
			Blacklist:             e.blacklist.Add,
			Errors: flows.LogoutErrors{
				AccountNotFound: ErrAccountNotFound,
			},
		},
		Account: flows.AccountDeps{
			Now:                   e.now,
			NewID:                 uuid.NewString,
			MinPasswordLength:     e.config.Password.MinLength,
			MaxPasswordBytes:      e.config.Password.MaxBytes,
			Create:                store.Create,
			FindByID:              store.FindByID,
			FindByEmail:           findWithCredential,
			UpdatePassword:        store.UpdatePassword,
			ClearAllRefreshTokens: store.ClearAllRefreshTokens,
			UnlockAccount:         store.UnlockAccount,
			SetActive:             store.SetActive,
			HashPassword:          e.passwords.Hash,
			VerifyPassword:        e.passwords.Verify,
			Errors: flows.AccountErrors{
				InvalidInput:       ErrInvalidAccount,
				PasswordPolicy:     ErrPasswordPolicy,
				PasswordReuse:      ErrPasswordReuse,
				EmailTaken:         ErrEmailTaken,
				InvalidCredentials: ErrInvalidCredentials,
				AccountNotFound:    ErrAccountNotFound,
			},
		},
		Maintenance: flows.MaintenanceDeps{
			Now:                          e.now,
			FindAccountsWithExpiredLocks: store.FindAccountsWithExpiredLocks,
			UnlockExpiredAccounts:        store.UnlockExpiredAccounts,
			CleanupExpiredTokens:         store.CleanupExpiredTokens,
			CleanupBlacklist:             e.blacklist.Cleanup,
			EmitAudit:                    emit,
			LockExpiredEvt:               AuditLockExpired,
		},
	}
}
