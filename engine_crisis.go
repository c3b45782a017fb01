package goAlert

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/notify"
)

// SendCrisisAlert notifies the caller's whole active support network.
//
// The network is loaded fresh for every call. An empty network returns
// ErrNoRecipients without touching any gateway. The attempt produces a
// PENDING audit entry at start and one summary entry at the end, and each
// successfully notified contact gets one in-app notification. Repeated
// alerts are never deduplicated.
func (e *Engine) SendCrisisAlert(ctx context.Context, req CrisisAlertRequest) (DeliveryResult, error) {
	if err := e.ready(); err != nil {
		return DeliveryResult{}, err
	}
	e.metricInc(MetricCrisisAlertAttempt)

	if req.SenderUserID == "" {
		e.metricInc(MetricCrisisAlertFailed)
		e.emitAudit(ctx, auditEventCrisisAlert, "send", OutcomeFailure, RiskHigh, "", ErrUnauthorized, nil)
		return DeliveryResult{}, ErrUnauthorized
	}

	e.emitAudit(ctx, auditEventCrisisAlert, "initiated", OutcomePending, RiskCritical, req.SenderUserID, nil, nil)

	res, err := e.sendCrisisAlert(ctx, req)
	switch {
	case err != nil:
		e.metricInc(MetricCrisisAlertFailed)
	case res.Delivered():
		e.metricInc(MetricCrisisAlertDelivered)
	default:
		e.metricInc(MetricCrisisAlertFailed)
	}

	e.auditDispatch(ctx, auditEventCrisisAlert, "send", req.SenderUserID, res, err)
	return res, err
}

func (e *Engine) sendCrisisAlert(ctx context.Context, req CrisisAlertRequest) (DeliveryResult, error) {
	lctx, cancel := context.WithTimeout(ctx, e.config.Alert.StepTimeout)
	contacts, err := e.contacts.ListActiveContacts(lctx, req.SenderUserID)
	cancel()
	if err != nil {
		e.log.Error("load support network failed", zap.String("user_id", req.SenderUserID), zap.Error(err))
		return DeliveryResult{}, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}

	active := ownedActive(contacts, req.SenderUserID)
	if len(active) == 0 {
		e.metricInc(MetricCrisisAlertNoRecipients)
		return DeliveryResult{}, ErrNoRecipients
	}

	message := req.Message
	if message == "" {
		message = e.config.Alert.DefaultMessage
	}

	res, err := e.dispatch(ctx, OperationCrisisAlert, req.SenderUserID, req.SenderName, message, active, active)
	if err != nil {
		return res, err
	}

	e.notifyCrisisRecipients(ctx, req, active, res)
	return res, nil
}

// notifyCrisisRecipients stores one notification per contact with at least
// one successful channel. Failures are logged; delivery already happened.
func (e *Engine) notifyCrisisRecipients(ctx context.Context, req CrisisAlertRequest, contacts []SupportContact, res DeliveryResult) {
	if e.notifier == nil {
		return
	}

	notified := make(map[string]bool, len(res.Results))
	for _, o := range res.Results {
		if o.Success {
			notified[o.ContactID] = true
		}
	}

	title := "Crisis alert"
	if name := e.validator.ValidateLabel(req.SenderName, maxSenderNameLength); name.Valid && name.SanitizedMessage != "" {
		title = "Crisis alert from " + name.SanitizedMessage
	}

	nctx := context.WithoutCancel(ctx)
	for _, c := range contacts {
		if !notified[c.ID] {
			continue
		}
		_, err := e.notifier.Create(nctx, notify.Notification{
			RecipientID: c.ID,
			SenderID:    req.SenderUserID,
			Type:        notify.TypeCrisisAlert,
			Title:       title,
			Message:     "Someone in your support network needs help now.",
			Priority:    notify.PriorityUrgent,
			Data:        map[string]any{"sender_user_id": req.SenderUserID},
		})
		if err != nil {
			e.log.Error("crisis notification failed", zap.String("contact_id", c.ID), zap.Error(err))
			continue
		}
		e.metricInc(MetricNotificationCreated)
	}
}
