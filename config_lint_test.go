package goAlert

import (
	"testing"
	"time"
)

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

func TestLint_DefaultConfigHasNoHighWarnings(t *testing.T) {
	cfg := defaultConfig()
	ws := cfg.Lint()

	if high := ws.AtLeast(LintHigh); len(high) != 0 {
		t.Fatalf("default config should not have high warnings, got %v", high.Codes())
	}
	// Defaults drop audit entries under pressure and sanitize rather than reject.
	codes := ws.Codes()
	if !containsCode(codes, "audit_drop_if_full") || !containsCode(codes, "suspicious_input_sanitized") {
		t.Fatalf("expected informational warnings, got %v", codes)
	}
}

func TestLint_HighSecurityConfigMinimalWarnings(t *testing.T) {
	cfg := HighSecurityConfig()
	codes := cfg.Lint().Codes()

	unwanted := []string{
		"crisis_limit_loose",
		"audit_disabled",
		"audit_drop_if_full",
		"suspicious_input_sanitized",
		"phi_session_long",
	}
	for _, code := range unwanted {
		if containsCode(codes, code) {
			t.Errorf("HighSecurityConfig should not produce warning %q", code)
		}
	}
}

func TestLint_WeakSettings(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimit.CrisisAlertMax = 50
	cfg.RateLimit.CrisisAlertWindow = 10 * time.Second
	cfg.Alert.MaxContactsPerAlert = 500
	cfg.Audit.Enabled = false
	cfg.PHI.SessionTimeout = 2 * time.Hour

	codes := cfg.Lint().Codes()
	for _, want := range []string{"crisis_limit_loose", "crisis_window_short", "batch_cap_large", "audit_disabled", "phi_session_long"} {
		if !containsCode(codes, want) {
			t.Errorf("expected warning %q in %v", want, codes)
		}
	}
}
