package goAlert

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	internalflows "github.com/MrEthical07/goAlert/internal/flows"
	"github.com/MrEthical07/goAlert/internal/validate"
)

// SendSupportMessage delivers message to the listed contacts. Every contact
// is re-verified against the caller's support network before sending; a
// contact that fails the check gets an "unauthorized" outcome and the rest
// of the batch proceeds.
func (e *Engine) SendSupportMessage(ctx context.Context, req SupportMessageRequest) (DeliveryResult, error) {
	if err := e.ready(); err != nil {
		return DeliveryResult{}, err
	}
	e.metricInc(MetricSupportMessageAttempt)

	if req.SenderUserID == "" {
		e.emitAudit(ctx, auditEventSupportMessage, "send", OutcomeFailure, RiskMedium, "", ErrUnauthorized, nil)
		return DeliveryResult{}, ErrUnauthorized
	}

	res, err := e.dispatch(ctx, OperationSupportMessage, req.SenderUserID, req.SenderName, req.Message, req.Contacts, nil)
	e.auditDispatch(ctx, auditEventSupportMessage, "send", req.SenderUserID, res, err)
	return res, err
}

// dispatch runs one batch on a context detached from the caller's
// cancellation, bounded by Alert.RequestTimeout, so that sends already in
// flight complete and are audited even if the caller goes away.
//
// Request contacts are resolved against the sender's stored network and
// only stored phone numbers and emails are sent to. A nil network is
// loaded fresh from the ContactProvider.
func (e *Engine) dispatch(ctx context.Context, operation, userID, senderName, message string, contacts, network []SupportContact) (DeliveryResult, error) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.config.Alert.RequestTimeout)
	defer cancel()

	req := internalflows.DispatchRequest{
		SenderUserID: userID,
		SenderName:   senderName,
		Message:      message,
		Subject:      e.config.Alert.EmailSubject,
		Contacts:     toFlowContacts(contacts),
	}

	deps := e.dispatchFlowDeps(operation)
	deps.LoadNetwork = func(ctx context.Context, userID string) ([]internalflows.DispatchContact, error) {
		if network != nil {
			return toFlowContacts(ownedActive(network, userID)), nil
		}
		stored, err := e.contacts.ListActiveContacts(ctx, userID)
		if err != nil {
			e.log.Error("load support network failed", zap.String("user_id", userID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
		}
		return toFlowContacts(ownedActive(stored, userID)), nil
	}

	start := time.Now()
	res, err := internalflows.RunDispatch(dctx, req, deps)
	e.metrics.Observe(MetricDispatchLatency, time.Since(start))

	return fromFlowResult(res), err
}

func (e *Engine) dispatchFlowDeps(operation string) internalflows.DispatchDeps {
	deps := internalflows.DispatchDeps{
		MaxContacts:      e.config.Alert.MaxContactsPerAlert,
		Workers:          e.config.Alert.Workers,
		StepTimeout:      e.config.Alert.StepTimeout,
		RejectSuspicious: e.config.Alert.RejectSuspicious,
		NormalizePhone:   validate.NormalizePhone,
		FormatBody:       formatAlertBody,
		Tracer:           e.tracer,
		MetricInc: func(id int) {
			e.metricInc(MetricID(id))
		},
		Metrics: internalflows.DispatchMetrics{
			ValidationRejected: int(MetricValidationRejected),
			SuspiciousInput:    int(MetricSuspiciousInput),
			RateLimited:        int(MetricRateLimited),
			OwnershipRejected:  int(MetricOwnershipRejected),
			DeliverySuccess:    int(MetricDeliverySuccess),
			DeliveryFailure:    int(MetricDeliveryFailure),
		},
		Errors: internalflows.DispatchErrors{
			Validation:      ErrValidation,
			SuspiciousInput: ErrSuspiciousInput,
			BatchTooLarge:   ErrBatchTooLarge,
			NotConfigured:   ErrNotConfigured,
		},
	}

	deps.ValidateMessage = func(ctx context.Context, userID, message string) (internalflows.MessageCheck, error) {
		v, err := e.authority.ValidateInput(ctx, userID, "", message)
		if err != nil {
			return internalflows.MessageCheck{}, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
		}
		return internalflows.MessageCheck{
			Valid:      v.IsValid,
			Suspicious: v.Suspicious,
			Sanitized:  v.SanitizedMessage,
			Reasons:    v.Errors,
		}, nil
	}
	deps.ValidateSenderName = func(name string) internalflows.MessageCheck {
		v := e.validator.ValidateLabel(name, maxSenderNameLength)
		return internalflows.MessageCheck{
			Valid:      v.Valid,
			Suspicious: v.Suspicious,
			Sanitized:  v.SanitizedMessage,
			Reasons:    v.Reasons,
		}
	}
	deps.CheckRateLimit = func(ctx context.Context, userID string) error {
		return e.checkRateLimit(ctx, operation, userID)
	}
	deps.VerifyOwnership = e.authority.VerifyContactOwnership

	if e.sms != nil {
		deps.SendSMS = func(ctx context.Context, sr internalflows.SendRequest) (string, error) {
			return e.sms.SendSMS(ctx, sr.To, sr.Body)
		}
	}
	if e.email != nil {
		deps.SendEmail = func(ctx context.Context, sr internalflows.SendRequest) (string, error) {
			return e.email.SendEmail(ctx, sr.To, sr.Subject, sr.Body)
		}
	}

	deps.OnSuspicious = e.reportSuspicious
	deps.OnOwnershipRejected = func(ctx context.Context, userID, contactID string, err error) {
		details := map[string]string{"contact_id": contactID, "operation": operation}
		if err != nil {
			details["lookup_error"] = "true"
		} else {
			err = ErrContactNotOwned
		}
		details["error_class"] = Classify(err).String()
		e.log.Warn("contact ownership rejected",
			zap.String("user_id", userID),
			zap.String("contact_id", contactID),
			zap.Error(err),
		)
		e.ReportSecurityEvent(ctx, SecurityEvent{
			Type:     securityEventOwnershipMismatch,
			Severity: RiskHigh,
			UserID:   userID,
			Details:  details,
		})
	}
	deps.OnTransportError = func(ctx context.Context, contactID, channel string, err error) {
		e.log.Warn("delivery failed",
			zap.String("contact_id", contactID),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}

	return deps
}

// checkRateLimit consults the in-process mirror first, then the authority.
// Any authority failure denies the operation.
func (e *Engine) checkRateLimit(ctx context.Context, operation, userID string) error {
	maxOps, window := e.ratePolicy(operation)

	if e.mirror != nil && !e.mirror.IsAllowed(operation+":"+userID, maxOps, window) {
		e.rateLimited(ctx, operation, userID, "client")
		return ErrRateLimited
	}

	allowed, err := e.authority.CheckRateLimit(ctx, userID, operation, maxOps, window)
	if err != nil {
		e.metricInc(MetricRateLimitUnavailable)
		e.log.Error("rate limit check failed", zap.String("operation", operation), zap.Error(err))
		if errors.Is(err, ErrRateLimitUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}
	if !allowed {
		e.rateLimited(ctx, operation, userID, "authority")
		return ErrRateLimited
	}
	return nil
}

func (e *Engine) rateLimited(ctx context.Context, operation, userID, source string) {
	e.emitAudit(ctx, auditEventRateLimitTriggered, operation, OutcomeFailure, RiskHigh, userID, ErrRateLimited, func() map[string]string {
		return map[string]string{"source": source}
	})
	e.ReportSecurityEvent(ctx, SecurityEvent{
		Type:     securityEventRateLimitExceeded,
		Severity: RiskMedium,
		UserID:   userID,
		Details:  map[string]string{"operation": operation, "source": source},
	})
}

func (e *Engine) ratePolicy(operation string) (int, time.Duration) {
	if operation == OperationCrisisAlert {
		return e.config.RateLimit.CrisisAlertMax, e.config.RateLimit.CrisisAlertWindow
	}
	return e.config.RateLimit.SupportMessageMax, e.config.RateLimit.SupportMessageWindow
}

// auditDispatch writes the single summary entry of a batch.
func (e *Engine) auditDispatch(ctx context.Context, eventType, action, userID string, res DeliveryResult, err error) {
	outcome, risk := OutcomeSuccess, RiskLow
	switch {
	case err != nil:
		outcome, risk = OutcomeFailure, RiskMedium
		if c := Classify(err); c == ClassRateLimit || c == ClassValidation {
			risk = RiskHigh
		}
	case !res.Delivered():
		outcome, risk = OutcomeFailure, RiskHigh
		err = errNoneDelivered
	case res.Partial():
		risk = RiskMedium
	}

	e.emitAudit(ctx, eventType, action, outcome, risk, userID, err, func() map[string]string {
		md := map[string]string{
			"contacts_notified": strconv.Itoa(res.ContactsNotified),
			"total_contacts":    strconv.Itoa(res.TotalContacts),
		}
		failed := 0
		for _, o := range res.Results {
			if !o.Success {
				failed++
			}
		}
		md["failed_attempts"] = strconv.Itoa(failed)
		return md
	})
}

const maxSenderNameLength = 100

func formatAlertBody(message, senderName string) string {
	if senderName == "" {
		return message
	}
	return message + "\n\n- " + senderName
}

// ownedActive keeps userID's active contacts.
func ownedActive(in []SupportContact, userID string) []SupportContact {
	out := in[:0:0]
	for _, c := range in {
		if c.IsActive && c.OwnerUserID == userID {
			out = append(out, c)
		}
	}
	return out
}

func toFlowContacts(in []SupportContact) []internalflows.DispatchContact {
	out := make([]internalflows.DispatchContact, 0, len(in))
	for _, c := range in {
		out = append(out, internalflows.DispatchContact{
			ID:     c.ID,
			Name:   c.Name,
			Phone:  c.PhoneNumber,
			Email:  c.Email,
			Active: c.IsActive,
		})
	}
	return out
}

func fromFlowResult(in internalflows.DispatchResult) DeliveryResult {
	out := DeliveryResult{
		Success:          in.Success,
		ContactsNotified: in.ContactsNotified,
		TotalContacts:    in.TotalContacts,
		Results:          make([]DeliveryOutcome, 0, len(in.Results)),
	}
	for _, r := range in.Results {
		out.Results = append(out.Results, DeliveryOutcome{
			ContactID:         r.ContactID,
			Channel:           Channel(r.Channel),
			Success:           r.Success,
			ProviderReference: r.ProviderReference,
			ErrorReason:       r.ErrorReason,
		})
	}
	return out
}
