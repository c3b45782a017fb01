package goAlert

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/phi"
)

const (
	auditEventCrisisAlert        = "crisis_alert"
	auditEventSupportMessage     = "support_message"
	auditEventNotificationSent   = "notification_sent"
	auditEventNotificationRead   = "notification_read"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventPHISession         = "phi_session"
	auditEventAuth               = "auth"
)

const (
	securityEventSuspiciousInput   = "suspicious_input"
	securityEventOwnershipMismatch = "contact_ownership_mismatch"
	securityEventRateLimitExceeded = "rate_limit_exceeded"
	securityEventDecryptionFailure = "decryption_failure"
)

// AuditErrorCode is the stable error code stored in audit entries instead of
// raw error text.
type AuditErrorCode string

const (
	auditErrValidation      AuditErrorCode = "validation_failed"
	auditErrSuspicious      AuditErrorCode = "suspicious_input"
	auditErrBatchTooLarge   AuditErrorCode = "batch_too_large"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrRateUnavailable AuditErrorCode = "rate_limit_unavailable"
	auditErrUnauthorized    AuditErrorCode = "unauthorized"
	auditErrNotConfigured   AuditErrorCode = "not_configured"
	auditErrNoRecipients    AuditErrorCode = "no_recipients"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrCrypto          AuditErrorCode = "crypto_failure"
	auditErrNotFound        AuditErrorCode = "not_found"
	auditErrNoneDelivered   AuditErrorCode = "no_contacts_notified"
	auditErrInternal        AuditErrorCode = "internal_error"
)

// emitAudit writes one entry through the async dispatcher. Device details
// come from ctx.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	action string,
	outcome AuditOutcome,
	risk RiskLevel,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	entry := AuditLogEntry{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Action:    action,
		UserID:    userID,
		Outcome:   outcome,
		RiskLevel: risk,
		Device:    deviceFromContext(ctx),
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		entry.ErrorMessage = string(code)
	}

	e.audit.Emit(ctx, entry)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrSuspiciousInput):
		return auditErrSuspicious
	case errors.Is(err, ErrBatchTooLarge):
		return auditErrBatchTooLarge
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	case errors.Is(err, ErrRateLimitUnavailable):
		return auditErrRateUnavailable
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrContactNotOwned):
		return auditErrUnauthorized
	case errors.Is(err, ErrNotConfigured):
		return auditErrNotConfigured
	case errors.Is(err, ErrNoRecipients):
		return auditErrNoRecipients
	case errors.Is(err, ErrAuthorityUnavailable):
		return auditErrUnavailable
	case errors.Is(err, phi.ErrCrypto), errors.Is(err, ErrPHISessionRequired):
		return auditErrCrypto
	case errors.Is(err, ErrNotificationNotFound):
		return auditErrNotFound
	case errors.Is(err, errNoneDelivered):
		return auditErrNoneDelivered
	default:
		return auditErrInternal
	}
}

var errNoneDelivered = errors.New("no contacts notified")

// LogAudit records a caller-supplied audit entry. It never blocks on the
// sink and never fails; missing ID, timestamp and device are filled in.
func (e *Engine) LogAudit(ctx context.Context, entry AuditLogEntry) {
	if e == nil || e.audit == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = e.now().UTC()
	}
	if entry.Device == (DeviceInfo{}) {
		entry.Device = deviceFromContext(ctx)
	}
	if entry.Outcome == "" {
		entry.Outcome = OutcomeSuccess
	}
	if entry.RiskLevel == "" {
		entry.RiskLevel = RiskLow
	}
	e.audit.Emit(ctx, entry)
}

// AuthEventKind is a session or account transition reported by the
// authentication layer.
type AuthEventKind string

const (
	AuthLoginAttempt         AuthEventKind = "login_attempt"
	AuthLoginSuccess         AuthEventKind = "login_success"
	AuthLoginFailure         AuthEventKind = "login_failure"
	AuthSignupAttempt        AuthEventKind = "signup_attempt"
	AuthSignupSuccess        AuthEventKind = "signup_success"
	AuthSignupFailure        AuthEventKind = "signup_failure"
	AuthPasswordResetRequest AuthEventKind = "password_reset_request"
	AuthPasswordResetSuccess AuthEventKind = "password_reset_success"
	AuthLogout               AuthEventKind = "logout"
	AuthSessionTimeout       AuthEventKind = "session_timeout"
)

// AuthEvent is one authentication transition.
type AuthEvent struct {
	Kind   AuthEventKind
	UserID string
	// SessionID identifies the PHI key session to close on logout or timeout.
	SessionID string
	// Reason is a short machine code for failures, e.g. "invalid_credentials".
	Reason string
}

// RecordAuthEvent writes exactly one audit entry for an authentication
// transition. Logout and session timeout also clear the PHI key session.
func (e *Engine) RecordAuthEvent(ctx context.Context, ev AuthEvent) error {
	if e == nil {
		return ErrEngineNotReady
	}

	outcome, risk := OutcomeSuccess, RiskLow
	switch ev.Kind {
	case AuthLoginAttempt, AuthSignupAttempt, AuthPasswordResetRequest:
		outcome = OutcomePending
	case AuthLoginFailure, AuthSignupFailure:
		outcome, risk = OutcomeFailure, RiskMedium
	case AuthPasswordResetSuccess:
		risk = RiskMedium
	case AuthLoginSuccess, AuthSignupSuccess:
	case AuthLogout, AuthSessionTimeout:
		if ev.SessionID != "" {
			e.phiSessions.Close(ev.SessionID)
			e.metricInc(MetricPHISessionClosed)
		}
	default:
		return ErrValidation
	}

	e.metricInc(MetricAuthEvent)
	e.emitAudit(ctx, auditEventAuth, string(ev.Kind), outcome, risk, ev.UserID, nil, func() map[string]string {
		if ev.Reason == "" {
			return nil
		}
		return map[string]string{"reason": ev.Reason}
	})
	return nil
}

// ReportSecurityEvent queues a security event for batched persistence.
// Critical events flush immediately.
func (e *Engine) ReportSecurityEvent(ctx context.Context, ev SecurityEvent) {
	if e == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.now().UTC()
	}
	if ev.Severity == "" {
		ev.Severity = RiskMedium
	}
	e.metricInc(MetricSecurityEvent)

	if e.security == nil {
		e.log.Warn("security event",
			zap.String("event_type", ev.Type),
			zap.String("severity", string(ev.Severity)),
			zap.String("user_id", ev.UserID),
		)
		return
	}
	e.security.Add(ev)
}

func (e *Engine) reportSuspicious(ctx context.Context, userID string, reasons []string) {
	e.ReportSecurityEvent(ctx, SecurityEvent{
		Type:     securityEventSuspiciousInput,
		Severity: RiskMedium,
		UserID:   userID,
		Details:  map[string]string{"reasons": strings.Join(reasons, ",")},
	})
}
