package internaldefs

import (
	goalert "github.com/MrEthical07/goAlert"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goalert.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goalert.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goalert.MetricCrisisAlertAttempt, Name: "goalert_crisis_alert_attempt_total", Help: "Crisis alert requests."},
	{ID: goalert.MetricCrisisAlertDelivered, Name: "goalert_crisis_alert_delivered_total", Help: "Crisis alerts that reached at least one contact."},
	{ID: goalert.MetricCrisisAlertFailed, Name: "goalert_crisis_alert_failed_total", Help: "Crisis alerts that reached nobody or were rejected."},
	{ID: goalert.MetricCrisisAlertNoRecipients, Name: "goalert_crisis_alert_no_recipients_total", Help: "Crisis alerts sent with an empty support network."},
	{ID: goalert.MetricSupportMessageAttempt, Name: "goalert_support_message_attempt_total", Help: "Support message requests."},
	{ID: goalert.MetricValidationRejected, Name: "goalert_validation_rejected_total", Help: "Batches rejected by input validation."},
	{ID: goalert.MetricSuspiciousInput, Name: "goalert_suspicious_input_total", Help: "Messages with dangerous content stripped."},
	{ID: goalert.MetricRateLimited, Name: "goalert_rate_limited_total", Help: "Batches denied by a rate limit."},
	{ID: goalert.MetricRateLimitUnavailable, Name: "goalert_rate_limit_unavailable_total", Help: "Batches denied because the rate limiter was unreachable."},
	{ID: goalert.MetricOwnershipRejected, Name: "goalert_ownership_rejected_total", Help: "Contacts dropped by the ownership re-check."},
	{ID: goalert.MetricDeliverySuccess, Name: "goalert_delivery_success_total", Help: "Successful per-contact channel sends."},
	{ID: goalert.MetricDeliveryFailure, Name: "goalert_delivery_failure_total", Help: "Failed per-contact channel sends."},
	{ID: goalert.MetricNotificationCreated, Name: "goalert_notification_created_total", Help: "Stored in-app notifications."},
	{ID: goalert.MetricNotificationRead, Name: "goalert_notification_read_total", Help: "Notifications marked read."},
	{ID: goalert.MetricSecurityEvent, Name: "goalert_security_event_total", Help: "Reported security events."},
	{ID: goalert.MetricAuthEvent, Name: "goalert_auth_event_total", Help: "Recorded authentication transitions."},
	{ID: goalert.MetricPHISessionOpened, Name: "goalert_phi_session_opened_total", Help: "Opened PHI key sessions."},
	{ID: goalert.MetricPHISessionClosed, Name: "goalert_phi_session_closed_total", Help: "PHI key sessions closed by logout or timeout."},
	{ID: goalert.MetricCryptoFailure, Name: "goalert_crypto_failure_total", Help: "PHI encrypt or decrypt failures."},
}

var HistogramDefs = []HistogramDef{
	{ID: goalert.MetricDispatchLatency, Name: "goalert_dispatch_latency_seconds", Help: "Whole-batch dispatch latency."},
}

// HistogramBounds are the upper bounds of the engine's latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"10",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for instrument names.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"10",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
