package adminauth

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/MrEthical07/adminauth/internal/audit"
)

// AuditEvent is one security-relevant record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

func NewChannelSink(buffer int) *ChannelSink { return audit.NewChannelSink(buffer) }

type JSONWriterSink = audit.JSONWriterSink

func NewJSONWriterSink(w io.Writer) *JSONWriterSink { return audit.NewJSONWriterSink(w) }

type SlogSink = audit.SlogSink

func NewSlogSink(logger *slog.Logger) *SlogSink { return audit.NewSlogSink(logger) }

const (
	AuditLoginSuccess    = "login_success"
	AuditLoginFailure    = "login_failure"
	AuditLoginLocked     = "login_locked"
	AuditLoginInactive   = "login_inactive"
	AuditRefreshSuccess  = "refresh_success"
	AuditRefreshFailure  = "refresh_failure"
	AuditLogout          = "logout"
	AuditLogoutAll       = "logout_all"
	AuditPasswordChange  = "password_change"
	AuditAccountCreated  = "account_created"
	AuditAccountUnlocked = "account_unlocked"
	AuditAccountDisabled = "account_disabled"
	AuditAccountEnabled  = "account_enabled"
	AuditLockExpired     = "lock_expired"
)

// AuditErrorCode is the stable error label carried by failed events.
type AuditErrorCode string

// auditCodes is checked in order; the first match wins.
var auditCodes = []struct {
	err  error
	code AuditErrorCode
}{
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrAccountLocked, "account_locked"},
	{ErrAccountInactive, "account_inactive"},
	{ErrAccountNotFound, "account_not_found"},
	{ErrTokenInvalid, "invalid_token"},
	{ErrPasswordPolicy, "password_policy"},
	{ErrPasswordReuse, "password_reuse"},
	{ErrEmailTaken, "duplicate"},
	{ErrInvalidAccount, "invalid_input"},
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}
	for _, c := range auditCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal_error"
}

// emitAudit records one event. meta is only called when auditing is on.
func (e *Engine) emitAudit(ctx context.Context, kind string, success bool, accountID string, err error, meta func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: kind,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		RequestID: requestIDFromContext(ctx),
		Success:   success,
		Error:     string(auditErrorCode(err)),
	}
	if meta != nil {
		ev.Metadata = meta()
	}
	e.audit.Emit(ctx, ev)
}
