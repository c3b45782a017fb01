package goAlert

import (
	"context"
	"time"

	"github.com/MrEthical07/goAlert/internal/audit"
	"github.com/MrEthical07/goAlert/internal/device"
	"github.com/MrEthical07/goAlert/notify"
)

// SupportContact is a member of a user's support network. It is owned
// exclusively by OwnerUserID; inactive contacts are kept for history but
// never dispatched to.
type SupportContact struct {
	ID           string `json:"id"`
	OwnerUserID  string `json:"ownerUserId"`
	Name         string `json:"name"`
	PhoneNumber  string `json:"phoneNumber"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	IsActive     bool   `json:"isActive"`
}

// CrisisAlertRequest is the ephemeral input of [Engine.SendCrisisAlert].
// An empty Message uses the configured default.
type CrisisAlertRequest struct {
	SenderUserID string
	SenderName   string
	Message      string
}

// SupportMessageRequest is the input of [Engine.SendSupportMessage]: an
// explicit list of contacts, each re-verified at send time.
type SupportMessageRequest struct {
	SenderUserID string
	SenderName   string
	Message      string
	Contacts     []SupportContact
}

// Channel identifies an external delivery channel.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// DeliveryOutcome is the immutable result of one (contact, channel) attempt.
type DeliveryOutcome struct {
	ContactID         string  `json:"contactId"`
	Channel           Channel `json:"channel"`
	Success           bool    `json:"success"`
	ProviderReference string  `json:"providerReference,omitempty"`
	ErrorReason       string  `json:"errorReason,omitempty"`
}

// DeliveryResult aggregates a dispatched batch. Success means the batch was
// attempted; individual failures are in Results.
type DeliveryResult struct {
	Success          bool              `json:"success"`
	ContactsNotified int               `json:"contactsNotified"`
	TotalContacts    int               `json:"totalContacts"`
	Results          []DeliveryOutcome `json:"results"`
}

// Delivered reports whether at least one contact was reached. Callers must
// never present a result with zero notified contacts as a success.
func (r DeliveryResult) Delivered() bool {
	return r.Success && r.ContactsNotified > 0
}

// Partial reports whether some but not all attempted contacts were reached.
func (r DeliveryResult) Partial() bool {
	return r.ContactsNotified > 0 && r.ContactsNotified < r.TotalContacts
}

// InputValidation is the authoritative verdict of validate_input.
type InputValidation struct {
	IsValid          bool     `json:"isValid"`
	Suspicious       bool     `json:"suspicious,omitempty"`
	SanitizedMessage string   `json:"sanitizedMessage"`
	CleanPhone       string   `json:"cleanPhone,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

type (
	// AuditLogEntry is an append-only audit record.
	AuditLogEntry = audit.Entry
	// AuditOutcome is SUCCESS, FAILURE or PENDING.
	AuditOutcome = audit.Outcome
	// RiskLevel grades audit entries and security events.
	RiskLevel = audit.RiskLevel
	// SecurityEvent is a batched abuse signal, separate from the audit trail.
	SecurityEvent = audit.SecurityEvent
	// DeviceInfo is the header-derived device fingerprint.
	DeviceInfo = device.Info
	// Notification is a stored in-app message.
	Notification = notify.Notification
	// NotificationPriority orders notifications for display.
	NotificationPriority = notify.Priority
)

const (
	OutcomeSuccess = audit.OutcomeSuccess
	OutcomeFailure = audit.OutcomeFailure
	OutcomePending = audit.OutcomePending

	RiskLow      = audit.RiskLow
	RiskMedium   = audit.RiskMedium
	RiskHigh     = audit.RiskHigh
	RiskCritical = audit.RiskCritical
)

// AuditSink receives audit entries from the async dispatcher.
type AuditSink = audit.Sink

// SecurityEventWriter persists flushed security-event batches.
type SecurityEventWriter = audit.BatchWriter

// ContactProvider is the system of record for support networks.
type ContactProvider interface {
	// ListActiveContacts returns userID's active contacts, read fresh.
	ListActiveContacts(ctx context.Context, userID string) ([]SupportContact, error)
	// VerifyOwnership reports whether phone belongs to one of userID's
	// active contacts. It must not reveal contacts of other users.
	VerifyOwnership(ctx context.Context, userID, phone string) (bool, error)
}

// Authority is the trusted backend consulted before any send. Its answers
// are authoritative; in-process checks are defense in depth only.
type Authority interface {
	CheckRateLimit(ctx context.Context, userID, operation string, maxOps int, window time.Duration) (bool, error)
	ValidateInput(ctx context.Context, userID, phone, message string) (InputValidation, error)
	VerifyContactOwnership(ctx context.Context, userID, phone string) (bool, error)
}

// SMSSender delivers a text message and returns the provider's message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// EmailSender delivers an email and returns the provider's message id.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

// Rate-limited operations.
const (
	OperationCrisisAlert    = "crisis_alert"
	OperationSupportMessage = "support_message"
)
