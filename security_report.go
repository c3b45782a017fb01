package goAlert

import "github.com/MrEthical07/goAlert/internal/security"

// SecurityReport summarizes the protections the running engine enforces.
type SecurityReport = security.Report

// RateLimitReport is the effective rate-limit policy.
type RateLimitReport = security.RateLimitReport

// SecurityReport returns the effective protections of e.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	_, local := e.authority.(*LocalAuthority)
	return security.BuildReport(security.ReportInput{
		RemoteAuthority: !local,
		RateLimits: security.RateLimitReport{
			CrisisAlertMax:       e.config.RateLimit.CrisisAlertMax,
			CrisisAlertWindow:    e.config.RateLimit.CrisisAlertWindow,
			SupportMessageMax:    e.config.RateLimit.SupportMessageMax,
			SupportMessageWindow: e.config.RateLimit.SupportMessageWindow,
			ClientMirror:         e.mirror != nil,
		},
		RejectSuspicious:     e.config.Alert.RejectSuspicious,
		MaxContactsPerAlert:  e.config.Alert.MaxContactsPerAlert,
		PBKDF2Iterations:     e.cipher.Iterations(),
		PHISessionTimeout:    e.config.PHI.SessionTimeout,
		AuditEnabled:         e.audit != nil,
		AuditDropIfFull:      e.config.Audit.DropIfFull,
		SecurityWriter:       e.security != nil,
		SMSConfigured:        e.sms != nil,
		EmailConfigured:      e.email != nil,
		NotifierConfigured:   e.notifier != nil,
		OwnershipVerifierSet: e.authority != nil,
	})
}
