package goAlert

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goAlert/notify"
)

const maxNotificationTitleLength = 200

// SendSupportNotification stores an in-app notification from senderID to
// recipientID. Title and message are sanitized like an outbound alert.
func (e *Engine) SendSupportNotification(ctx context.Context, senderID, recipientID, title, message string, priority NotificationPriority) (Notification, error) {
	if e == nil || e.notifier == nil {
		return Notification{}, ErrNotificationsDisabled
	}
	if senderID == "" {
		return Notification{}, ErrUnauthorized
	}

	head := e.validator.ValidateLabel(title, maxNotificationTitleLength)
	res := e.validator.Validate(message, "")
	if head.Suspicious || res.Suspicious {
		e.metricInc(MetricSuspiciousInput)
		reasons := res.Reasons
		for _, r := range head.Reasons {
			reasons = append(reasons, "title_"+r)
		}
		e.reportSuspicious(ctx, senderID, reasons)
	}
	if !head.Valid || head.SanitizedMessage == "" {
		e.metricInc(MetricValidationRejected)
		return Notification{}, fmt.Errorf("%w: notification title", ErrValidation)
	}
	if !res.Valid || ((res.Suspicious || head.Suspicious) && e.config.Alert.RejectSuspicious) {
		e.metricInc(MetricValidationRejected)
		return Notification{}, fmt.Errorf("%w: notification message", ErrValidation)
	}

	n, err := e.notifier.Create(ctx, notify.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notify.TypeSupportMessage,
		Title:       head.SanitizedMessage,
		Message:     res.SanitizedMessage,
		Priority:    priority,
	})
	if err != nil {
		e.emitAudit(ctx, auditEventNotificationSent, "create", OutcomeFailure, RiskLow, senderID, err, nil)
		return Notification{}, err
	}

	e.metricInc(MetricNotificationCreated)
	e.emitAudit(ctx, auditEventNotificationSent, "create", OutcomeSuccess, RiskLow, senderID, nil, func() map[string]string {
		return map[string]string{"notification_id": n.ID, "recipient_id": recipientID}
	})
	return n, nil
}

// MarkNotificationRead marks recipientID's notification read. Only the
// recipient may do so; anyone else gets ErrNotificationNotFound.
func (e *Engine) MarkNotificationRead(ctx context.Context, recipientID, notificationID string) (Notification, error) {
	if e == nil || e.notifier == nil {
		return Notification{}, ErrNotificationsDisabled
	}
	if recipientID == "" {
		return Notification{}, ErrUnauthorized
	}

	n, err := e.notifier.MarkRead(ctx, recipientID, notificationID)
	if err != nil {
		return Notification{}, err
	}
	e.metricInc(MetricNotificationRead)
	e.emitAudit(ctx, auditEventNotificationRead, "read", OutcomeSuccess, RiskLow, recipientID, nil, func() map[string]string {
		return map[string]string{"notification_id": n.ID}
	})
	return n, nil
}

// ListNotifications returns recipientID's notifications, newest first.
func (e *Engine) ListNotifications(ctx context.Context, recipientID string, opts notify.ListOptions) ([]Notification, error) {
	if e == nil || e.notifier == nil {
		return nil, ErrNotificationsDisabled
	}
	if recipientID == "" {
		return nil, ErrUnauthorized
	}
	return e.notifier.List(ctx, recipientID, opts)
}

// Subscribe returns a live feed of recipientID's notification events.
// The caller must Close the subscription.
func (e *Engine) Subscribe(recipientID string) (*notify.Subscription, error) {
	if e == nil || e.hub == nil {
		return nil, ErrNotificationsDisabled
	}
	if recipientID == "" {
		return nil, ErrUnauthorized
	}
	return e.hub.Subscribe(recipientID), nil
}
