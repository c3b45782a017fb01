package security

import "time"

// RateLimitReport is the effective policy of one rate-limited operation.
type RateLimitReport struct {
	CrisisAlertMax       int
	CrisisAlertWindow    time.Duration
	SupportMessageMax    int
	SupportMessageWindow time.Duration
	ClientMirror         bool
}

// Report summarizes the protections an engine runs with.
type Report struct {
	AuthorityMode        string
	RateLimits           RateLimitReport
	RateLimitingActive   bool
	OwnershipRecheck     bool
	SuspiciousRejected   bool
	MaxContactsPerAlert  int
	PBKDF2Iterations     int
	PHISessionTimeout    time.Duration
	AuditEnabled         bool
	AuditMayDrop         bool
	SecurityEventsStored bool
	EmailChannelEnabled  bool
	SMSChannelEnabled    bool
	NotificationsEnabled bool
}

// ReportInput is the configuration BuildReport reads.
type ReportInput struct {
	RemoteAuthority      bool
	RateLimits           RateLimitReport
	RejectSuspicious     bool
	MaxContactsPerAlert  int
	PBKDF2Iterations     int
	PHISessionTimeout    time.Duration
	AuditEnabled         bool
	AuditDropIfFull      bool
	SecurityWriter       bool
	SMSConfigured        bool
	EmailConfigured      bool
	NotifierConfigured   bool
	OwnershipVerifierSet bool
}

// BuildReport derives a Report from input.
func BuildReport(input ReportInput) Report {
	mode := "local"
	if input.RemoteAuthority {
		mode = "remote"
	}

	rateLimiting := input.RateLimits.CrisisAlertMax > 0 &&
		input.RateLimits.CrisisAlertWindow > 0 &&
		input.RateLimits.SupportMessageMax > 0 &&
		input.RateLimits.SupportMessageWindow > 0

	return Report{
		AuthorityMode:        mode,
		RateLimits:           input.RateLimits,
		RateLimitingActive:   rateLimiting,
		OwnershipRecheck:     input.OwnershipVerifierSet,
		SuspiciousRejected:   input.RejectSuspicious,
		MaxContactsPerAlert:  input.MaxContactsPerAlert,
		PBKDF2Iterations:     input.PBKDF2Iterations,
		PHISessionTimeout:    input.PHISessionTimeout,
		AuditEnabled:         input.AuditEnabled,
		AuditMayDrop:         input.AuditEnabled && input.AuditDropIfFull,
		SecurityEventsStored: input.SecurityWriter,
		SMSChannelEnabled:    input.SMSConfigured,
		EmailChannelEnabled:  input.EmailConfigured,
		NotificationsEnabled: input.NotifierConfigured,
	}
}
