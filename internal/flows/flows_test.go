package flows

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/adminauth/account"
	"github.com/MrEthical07/adminauth/jwt"
	"github.com/MrEthical07/adminauth/store/memory"
	"github.com/google/uuid"
)

var (
	errNotReady     = errors.New("not ready")
	errInvalidCreds = errors.New("invalid credentials")
	errLocked       = errors.New("account temporarily locked")
	errInactive     = errors.New("account disabled")
	errNotFound     = errors.New("account not found")
	errPolicy       = errors.New("password policy")
	errReuse        = errors.New("password reuse")
	errTaken        = errors.New("email taken")
	errInput        = errors.New("invalid input")
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

// plainVerify stands in for a real hasher: the hash is "h:" + password.
type plainVerify struct{ calls int }

func (p *plainVerify) Hash(plain string) (string, error) { return "h:" + plain, nil }

func (p *plainVerify) Verify(plain, hash string) (bool, error) {
	p.calls++
	return hash == "h:"+plain, nil
}

type harness struct {
	store  *memory.Store
	clock  *clock
	pw     *plainVerify
	tokens *jwt.Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m, err := jwt.NewManager(jwt.Config{
		AccessSecret:  []byte(strings.Repeat("a", 32)),
		RefreshSecret: []byte(strings.Repeat("r", 32)),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Now:           c.Now,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return &harness{store: memory.New(), clock: c, pw: &plainVerify{}, tokens: m}
}

func (h *harness) seed(t *testing.T, email, password string, mutate func(*account.Account)) *account.Account {
	t.Helper()
	a := &account.Account{
		ID:           uuid.NewString(),
		Name:         "Admin",
		Email:        email,
		PasswordHash: "h:" + password,
		Role:         account.RoleAdmin,
		IsActive:     true,
		CreatedAt:    h.clock.now,
		UpdatedAt:    h.clock.now,
	}
	if mutate != nil {
		mutate(a)
	}
	if err := h.store.Create(context.Background(), a); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return a
}

func (h *harness) loginDeps() LoginDeps {
	return LoginDeps{
		Now:    h.clock.Now,
		Policy: account.DefaultLockoutPolicy(),
		FindByEmail: func(ctx context.Context, email string) (*account.Account, error) {
			return h.store.FindByEmail(ctx, email, true)
		},
		RecordFailure:   h.store.IncrementLoginAttempts,
		RecordSuccess:   h.store.ResetLoginAttempts,
		AddRefreshToken: h.store.AddRefreshToken,
		VerifyPassword:  h.pw.Verify,
		IssueAccess: func(a *account.Account) (jwt.Issued, error) {
			return h.tokens.IssueAccess(a.ID, a.Email, string(a.Role))
		},
		IssueRefresh: func(a *account.Account) (jwt.Issued, error) {
			return h.tokens.IssueRefresh(a.ID)
		},
		Errors: LoginErrors{
			EngineNotReady:     errNotReady,
			InvalidCredentials: errInvalidCreds,
			AccountLocked:      errLocked,
			AccountInactive:    errInactive,
		},
	}
}

func (h *harness) refreshDeps(rotate bool) RefreshDeps {
	return RefreshDeps{
		Now:                h.clock.Now,
		Rotate:             rotate,
		VerifyRefresh:      h.tokens.VerifyRefresh,
		FindByID:           h.store.FindByID,
		HasRefreshToken:    h.store.HasRefreshToken,
		AddRefreshToken:    h.store.AddRefreshToken,
		RemoveRefreshToken: h.store.RemoveRefreshToken,
		IssueAccess: func(a *account.Account) (jwt.Issued, error) {
			return h.tokens.IssueAccess(a.ID, a.Email, string(a.Role))
		},
		IssueRefresh: func(a *account.Account) (jwt.Issued, error) {
			return h.tokens.IssueRefresh(a.ID)
		},
	}
}

func (h *harness) accountDeps() AccountDeps {
	return AccountDeps{
		Now:               h.clock.Now,
		NewID:             uuid.NewString,
		MinPasswordLength: 8,
		MaxPasswordBytes:  72,
		Create:            h.store.Create,
		FindByID:          h.store.FindByID,
		FindByEmail: func(ctx context.Context, email string) (*account.Account, error) {
			return h.store.FindByEmail(ctx, email, true)
		},
		UpdatePassword:        h.store.UpdatePassword,
		ClearAllRefreshTokens: h.store.ClearAllRefreshTokens,
		UnlockAccount:         h.store.UnlockAccount,
		SetActive:             h.store.SetActive,
		HashPassword:          h.pw.Hash,
		VerifyPassword:        h.pw.Verify,
		Errors: AccountErrors{
			InvalidInput:       errInput,
			PasswordPolicy:     errPolicy,
			PasswordReuse:      errReuse,
			EmailTaken:         errTaken,
			InvalidCredentials: errInvalidCreds,
			AccountNotFound:    errNotFound,
		},
	}
}

func TestLoginCorrectPasswordAfterFourFailures(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "four@example.com", "correct-horse", func(a *account.Account) { a.LoginAttempts = 4 })

	res, err := RunLogin(context.Background(), "  Four@Example.com ", "correct-horse", h.loginDeps())
	if err != nil {
		t.Fatalf("RunLogin error: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected token pair")
	}
	if !res.Account.LastLogin.Equal(h.clock.now) {
		t.Fatalf("lastLogin = %v, want %v", res.Account.LastLogin, h.clock.now)
	}

	got, _ := h.store.FindByID(context.Background(), a.ID)
	if got.LoginAttempts != 0 || !got.LockUntil.IsZero() {
		t.Fatalf("lockout not cleared: %+v", got.LockState())
	}
	if len(got.RefreshTokens) != 1 {
		t.Fatalf("expected 1 whitelisted token, got %d", len(got.RefreshTokens))
	}
}

func TestLoginFifthFailureLocks(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "five@example.com", "correct-horse", func(a *account.Account) { a.LoginAttempts = 4 })

	_, err := RunLogin(context.Background(), a.Email, "wrong", h.loginDeps())
	if !errors.Is(err, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}

	got, _ := h.store.FindByID(context.Background(), a.ID)
	if got.LoginAttempts != 5 {
		t.Fatalf("attempts = %d, want 5", got.LoginAttempts)
	}
	if want := h.clock.now.Add(2 * time.Hour); !got.LockUntil.Equal(want) {
		t.Fatalf("lockUntil = %v, want %v", got.LockUntil, want)
	}
}

func TestLoginLockedSkipsPasswordCheck(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "locked@example.com", "correct-horse", func(a *account.Account) {
		a.LoginAttempts = 5
		a.LockUntil = h.clock.now.Add(time.Hour)
	})

	_, err := RunLogin(context.Background(), "locked@example.com", "correct-horse", h.loginDeps())
	if !errors.Is(err, errLocked) {
		t.Fatalf("expected locked, got %v", err)
	}
	if h.pw.calls != 0 {
		t.Fatalf("password compared %d times on a locked account", h.pw.calls)
	}
}

func TestLoginInactive(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "off@example.com", "correct-horse", func(a *account.Account) { a.IsActive = false })

	_, err := RunLogin(context.Background(), "off@example.com", "correct-horse", h.loginDeps())
	if !errors.Is(err, errInactive) {
		t.Fatalf("expected inactive, got %v", err)
	}
}

func TestLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "known@example.com", "correct-horse", nil)
	deps := h.loginDeps()
	deps.DummyHash = "h:dummy"

	_, unknownErr := RunLogin(context.Background(), "nobody@example.com", "whatever", deps)
	_, wrongErr := RunLogin(context.Background(), "known@example.com", "whatever", deps)
	if unknownErr == nil || wrongErr == nil {
		t.Fatal("expected both logins to fail")
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("distinguishable failures: %q vs %q", unknownErr, wrongErr)
	}
	if h.pw.calls != 2 {
		t.Fatalf("expected the unknown email path to verify the dummy hash, calls=%d", h.pw.calls)
	}
}

func TestLoginAuditAndMetrics(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "audit@example.com", "correct-horse", nil)

	var events []string
	var metrics []int
	deps := h.loginDeps()
	deps.Events = LoginEvents{Success: "login_success", Failure: "login_failure"}
	deps.Metrics = LoginMetrics{Success: 1, Failure: 2}
	deps.MetricInc = func(id int) { metrics = append(metrics, id) }
	deps.EmitAudit = func(_ context.Context, event string, _ bool, _ string, _ error, md func() map[string]string) {
		if md != nil {
			_ = md()
		}
		events = append(events, event)
	}

	_, _ = RunLogin(context.Background(), "audit@example.com", "nope", deps)
	_, _ = RunLogin(context.Background(), "audit@example.com", "correct-horse", deps)

	if len(events) != 2 || events[0] != "login_failure" || events[1] != "login_success" {
		t.Fatalf("unexpected events %v", events)
	}
	if len(metrics) != 2 || metrics[0] != 2 || metrics[1] != 1 {
		t.Fatalf("unexpected metrics %v", metrics)
	}
}

func TestLoginMissingDepsNotReady(t *testing.T) {
	_, err := RunLogin(context.Background(), "a@example.com", "pw", LoginDeps{Errors: LoginErrors{EngineNotReady: errNotReady}})
	if !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestLoginPasswordUpgrade(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "upgrade@example.com", "correct-horse", nil)

	deps := h.loginDeps()
	deps.PasswordNeedsUpgrade = func(string) (bool, error) { return true, nil }
	deps.HashPassword = func(plain string) (string, error) { return "h2:" + plain, nil }
	deps.UpdatePasswordHash = h.store.RehashPassword

	h.clock.now = h.clock.now.Add(time.Hour)
	if _, err := RunLogin(context.Background(), a.Email, "correct-horse", deps); err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	got, _ := h.store.FindByEmail(context.Background(), a.Email, true)
	if got.PasswordHash != "h2:correct-horse" {
		t.Fatalf("hash not upgraded: %q", got.PasswordHash)
	}
	if !got.PasswordChangedAt.Equal(a.PasswordChangedAt) {
		t.Fatalf("rehash moved PasswordChangedAt: %v -> %v", a.PasswordChangedAt, got.PasswordChangedAt)
	}
}

func TestRefreshRequiresWhitelist(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "refresh@example.com", "correct-horse", nil)

	login, err := RunLogin(context.Background(), a.Email, "correct-horse", h.loginDeps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res := RunRefresh(context.Background(), login.RefreshToken, h.refreshDeps(false))
	if res.Failure != RefreshFailureNone || res.AccessToken == "" {
		t.Fatalf("refresh failed: %+v", res)
	}
	if res.RefreshToken != "" {
		t.Fatal("non-rotating refresh must not issue a refresh token")
	}

	if err := h.store.RemoveRefreshToken(context.Background(), a.ID, login.RefreshToken); err != nil {
		t.Fatalf("remove: %v", err)
	}
	res = RunRefresh(context.Background(), login.RefreshToken, h.refreshDeps(false))
	if res.Failure != RefreshFailureNotWhitelisted {
		t.Fatalf("expected not whitelisted, got %+v", res)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "cross@example.com", "correct-horse", nil)
	login, err := RunLogin(context.Background(), a.Email, "correct-horse", h.loginDeps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res := RunRefresh(context.Background(), login.AccessToken, h.refreshDeps(false))
	if res.Failure != RefreshFailureVerify {
		t.Fatalf("expected verify failure, got %+v", res)
	}
}

func TestRefreshInactiveAccount(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "disable@example.com", "correct-horse", nil)
	issued, _ := h.tokens.IssueRefresh(a.ID)
	_ = h.store.AddRefreshToken(context.Background(), a.ID, issued.Token, issued.ExpiresAt)

	h2 := h.seed(t, "other@example.com", "x", func(x *account.Account) { x.IsActive = false })
	issued2, _ := h.tokens.IssueRefresh(h2.ID)
	_ = h.store.AddRefreshToken(context.Background(), h2.ID, issued2.Token, issued2.ExpiresAt)

	if res := RunRefresh(context.Background(), issued2.Token, h.refreshDeps(false)); res.Failure != RefreshFailureInactive {
		t.Fatalf("expected inactive failure, got %+v", res)
	}
	if res := RunRefresh(context.Background(), issued.Token, h.refreshDeps(false)); res.Failure != RefreshFailureNone {
		t.Fatalf("active account refresh failed: %+v", res)
	}
}

func TestRefreshRotation(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "rotate@example.com", "correct-horse", nil)
	login, err := RunLogin(context.Background(), a.Email, "correct-horse", h.loginDeps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	res := RunRefresh(context.Background(), login.RefreshToken, h.refreshDeps(true))
	if res.Failure != RefreshFailureNone || res.RefreshToken == "" {
		t.Fatalf("rotation failed: %+v", res)
	}
	if res.RefreshToken == login.RefreshToken {
		t.Fatal("rotated token equals the old one")
	}

	if again := RunRefresh(context.Background(), login.RefreshToken, h.refreshDeps(true)); again.Failure != RefreshFailureNotWhitelisted {
		t.Fatalf("old token still accepted: %+v", again)
	}
	if next := RunRefresh(context.Background(), res.RefreshToken, h.refreshDeps(true)); next.Failure != RefreshFailureNone {
		t.Fatalf("rotated token rejected: %+v", next)
	}
}

func TestRefreshRotationRemoveFailureDropsNewToken(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "rotate-fail@example.com", "correct-horse", nil)
	login, err := RunLogin(context.Background(), a.Email, "correct-horse", h.loginDeps())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	removeErr := errors.New("write timeout")
	deps := h.refreshDeps(true)
	deps.RemoveRefreshToken = func(ctx context.Context, id, token string) error {
		if token == login.RefreshToken {
			return removeErr
		}
		return h.store.RemoveRefreshToken(ctx, id, token)
	}

	res := RunRefresh(context.Background(), login.RefreshToken, deps)
	if res.Failure != RefreshFailureStore || !errors.Is(res.Err, removeErr) {
		t.Fatalf("expected store failure, got %+v", res)
	}
	if res.RefreshToken != "" {
		t.Fatal("refresh token returned on failure")
	}

	stored, err := h.store.FindByID(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(stored.RefreshTokens) != 1 {
		t.Fatalf("expected only the presented token to remain, got %d entries", len(stored.RefreshTokens))
	}
	if ok, _ := h.store.HasRefreshToken(context.Background(), a.ID, login.RefreshToken, h.clock.Now()); !ok {
		t.Fatal("presented token no longer whitelisted")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "logout@example.com", "correct-horse", nil)
	login, _ := RunLogin(context.Background(), a.Email, "correct-horse", h.loginDeps())

	deps := LogoutDeps{RemoveRefreshToken: h.store.RemoveRefreshToken}
	for i := 0; i < 2; i++ {
		if err := RunLogout(context.Background(), a.ID, login.RefreshToken, deps); err != nil {
			t.Fatalf("logout #%d: %v", i+1, err)
		}
	}
	if err := RunLogout(context.Background(), a.ID, "", deps); err != nil {
		t.Fatalf("logout without token: %v", err)
	}
}

func TestLogoutAllUnknownAccount(t *testing.T) {
	h := newHarness(t)
	deps := LogoutDeps{
		FindByID:              h.store.FindByID,
		ClearAllRefreshTokens: h.store.ClearAllRefreshTokens,
		Errors:                LogoutErrors{AccountNotFound: errNotFound},
	}
	if err := RunLogoutAll(context.Background(), "missing", deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBlacklistAccessIgnoresInvalidToken(t *testing.T) {
	h := newHarness(t)
	called := false
	deps := LogoutDeps{
		VerifyAccess: h.tokens.VerifyAccess,
		Blacklist: func(context.Context, string, time.Time) error {
			called = true
			return nil
		},
	}
	claims, err := RunBlacklistAccess(context.Background(), "not-a-token", deps)
	if err != nil || claims != nil || called {
		t.Fatalf("invalid token must be a no-op: claims=%v err=%v called=%v", claims, err, called)
	}

	issued, _ := h.tokens.IssueAccess("id-1", "x@example.com", "admin")
	var gotExp time.Time
	deps.Blacklist = func(_ context.Context, _ string, exp time.Time) error {
		gotExp = exp
		return nil
	}
	if _, err := RunBlacklistAccess(context.Background(), issued.Token, deps); err != nil {
		t.Fatalf("blacklist: %v", err)
	}
	if !gotExp.Equal(issued.ExpiresAt) {
		t.Fatalf("expiry = %v, want %v", gotExp, issued.ExpiresAt)
	}
}

func TestAuthorizeOutcomes(t *testing.T) {
	h := newHarness(t)
	issued, _ := h.tokens.IssueAccess("id-1", "x@example.com", "admin")

	deps := AuthorizeDeps{
		Verify: h.tokens.VerifyAccess,
		Now:    h.clock.Now,
		Blacklisted: func(_ context.Context, token string) (bool, error) {
			return token == issued.Token, nil
		},
	}
	if res := RunAuthorize(context.Background(), issued.Token, deps); res.Outcome != AuthorizeBlacklisted {
		t.Fatalf("expected blacklisted, got %+v", res)
	}

	other, _ := h.tokens.IssueAccess("id-1", "x@example.com", "admin")
	res := RunAuthorize(context.Background(), other.Token, deps)
	if res.Outcome != AuthorizeOK || res.Claims.Subject != "id-1" {
		t.Fatalf("unrelated token rejected: %+v", res)
	}

	if res := RunAuthorize(context.Background(), "not-a-jwt", deps); res.Outcome != AuthorizeBadToken || res.Err == nil {
		t.Fatalf("expected bad token, got %+v", res)
	}

	deps.Blacklisted = func(context.Context, string) (bool, error) { return false, errors.New("down") }
	if res := RunAuthorize(context.Background(), other.Token, deps); res.Outcome != AuthorizeBlacklistDown {
		t.Fatalf("expected blacklist down, got %+v", res)
	}
}

func TestAuthorizeRejectsFutureIssuedAt(t *testing.T) {
	h := newHarness(t)
	issued, _ := h.tokens.IssueAccess("id-1", "x@example.com", "admin")

	// The verifier's clock runs ahead of the one Authorize compares with.
	deps := AuthorizeDeps{
		Verify:       h.tokens.VerifyAccess,
		Now:          func() time.Time { return h.clock.Now().Add(-time.Minute) },
		MaxClockSkew: 10 * time.Second,
	}
	if res := RunAuthorize(context.Background(), issued.Token, deps); res.Outcome != AuthorizeIssuedInFuture {
		t.Fatalf("expected issued-in-future, got %+v", res)
	}

	deps.MaxClockSkew = -1
	if res := RunAuthorize(context.Background(), issued.Token, deps); res.Outcome != AuthorizeOK {
		t.Fatalf("negative skew should disable the check, got %+v", res)
	}
}

func TestCreateAccountAndChangePassword(t *testing.T) {
	h := newHarness(t)
	deps := h.accountDeps()

	created, err := RunCreateAccount(context.Background(), NewAccountInput{
		Name:     "Owner",
		Email:    " Owner@Example.com",
		Password: "first-password",
		Role:     account.RoleSuperAdmin,
	}, deps)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Email != "owner@example.com" || created.PasswordHash != "" || !created.IsActive {
		t.Fatalf("unexpected account %+v", created)
	}

	if _, err := RunCreateAccount(context.Background(), NewAccountInput{Name: "Dup", Email: "owner@example.com", Password: "another-password"}, deps); !errors.Is(err, errTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
	if _, err := RunCreateAccount(context.Background(), NewAccountInput{Name: "Short", Email: "s@example.com", Password: "short"}, deps); !errors.Is(err, errPolicy) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if _, err := RunCreateAccount(context.Background(), NewAccountInput{Name: "Role", Email: "r@example.com", Password: "long-enough", Role: "root"}, deps); !errors.Is(err, errInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}

	_ = h.store.AddRefreshToken(context.Background(), created.ID, "rt", h.clock.now.Add(time.Hour))

	if err := RunChangePassword(context.Background(), created.ID, "wrong-password", "second-password", deps); !errors.Is(err, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	got, _ := h.store.FindByID(context.Background(), created.ID)
	if got.LoginAttempts != 0 {
		t.Fatal("wrong current password must not count towards lockout")
	}
	if err := RunChangePassword(context.Background(), created.ID, "first-password", "first-password", deps); !errors.Is(err, errReuse) {
		t.Fatalf("expected reuse error, got %v", err)
	}

	h.clock.now = h.clock.now.Add(time.Minute)
	if err := RunChangePassword(context.Background(), created.ID, "first-password", "second-password", deps); err != nil {
		t.Fatalf("change: %v", err)
	}
	got, _ = h.store.FindByEmail(context.Background(), created.Email, true)
	if got.PasswordHash != "h:second-password" {
		t.Fatalf("hash not updated: %q", got.PasswordHash)
	}
	if !got.PasswordChangedAt.Equal(h.clock.now) {
		t.Fatalf("passwordChangedAt = %v", got.PasswordChangedAt)
	}
	if len(got.RefreshTokens) != 0 {
		t.Fatal("refresh tokens must be revoked after a password change")
	}
}

func TestUnlockAccount(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "unlock@example.com", "pw", func(a *account.Account) {
		a.LoginAttempts = 5
		a.LockUntil = h.clock.now.Add(time.Hour)
	})
	deps := h.accountDeps()

	if err := RunUnlockAccount(context.Background(), a.ID, deps); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	got, _ := h.store.FindByID(context.Background(), a.ID)
	if got.IsLocked(h.clock.now) || got.LoginAttempts != 0 {
		t.Fatalf("still locked: %+v", got.LockState())
	}
	if err := RunUnlockAccount(context.Background(), "missing", deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetAccountStatus(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "status@example.com", "correct-horse", nil)
	ctx := context.Background()
	if _, err := RunLogin(ctx, a.Email, "correct-horse", h.loginDeps()); err != nil {
		t.Fatalf("login: %v", err)
	}
	deps := h.accountDeps()

	changed, err := RunSetAccountStatus(ctx, a.ID, false, deps)
	if err != nil || !changed {
		t.Fatalf("disable: changed=%v err=%v", changed, err)
	}
	got, _ := h.store.FindByID(ctx, a.ID)
	if got.IsActive || len(got.RefreshTokens) != 0 {
		t.Fatalf("after disable: active=%v tokens=%d", got.IsActive, len(got.RefreshTokens))
	}

	if changed, err := RunSetAccountStatus(ctx, a.ID, false, deps); err != nil || changed {
		t.Fatalf("second disable: changed=%v err=%v", changed, err)
	}
	if changed, err := RunSetAccountStatus(ctx, a.ID, true, deps); err != nil || !changed {
		t.Fatalf("enable: changed=%v err=%v", changed, err)
	}
	if got, _ := h.store.FindByID(ctx, a.ID); !got.IsActive {
		t.Fatal("account still inactive after enable")
	}
	if _, err := RunSetAccountStatus(ctx, "missing", false, deps); !errors.Is(err, errNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMaintenance(t *testing.T) {
	h := newHarness(t)
	a := h.seed(t, "expired@example.com", "pw", func(a *account.Account) {
		a.LoginAttempts = 5
		a.LockUntil = h.clock.now.Add(-time.Minute)
	})
	_ = h.store.AddRefreshToken(context.Background(), a.ID, "old", h.clock.now.Add(-time.Second))
	_ = h.store.AddRefreshToken(context.Background(), a.ID, "new", h.clock.now.Add(time.Hour))

	var audited []string
	deps := MaintenanceDeps{
		Now:                          h.clock.Now,
		FindAccountsWithExpiredLocks: h.store.FindAccountsWithExpiredLocks,
		UnlockExpiredAccounts:        h.store.UnlockExpiredAccounts,
		CleanupExpiredTokens:         h.store.CleanupExpiredTokens,
		CleanupBlacklist: func(context.Context, time.Time) (int, error) {
			return 0, errors.New("blacklist down")
		},
		LockExpiredEvt: "lock_expired",
		EmitAudit: func(_ context.Context, event string, _ bool, id string, _ error, _ func() map[string]string) {
			audited = append(audited, event+":"+id)
		},
	}

	report, err := RunMaintenance(context.Background(), deps)
	if err == nil || !strings.Contains(err.Error(), "blacklist down") {
		t.Fatalf("expected joined blacklist error, got %v", err)
	}
	if report.AccountsUnlocked != 1 || report.TokensPurged != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(audited) != 1 || audited[0] != "lock_expired:"+a.ID {
		t.Fatalf("unexpected audit %v", audited)
	}
}
