package goAlert

import "time"

// LintSeverity grades a lint warning.
type LintSeverity string

const (
	LintInfo LintSeverity = "info"
	LintWarn LintSeverity = "warn"
	LintHigh LintSeverity = "high"
)

// LintWarning is a valid but questionable setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintWarnings is the result of [Config.Lint].
type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast returns warnings of severity s or higher.
func (ws LintWarnings) AtLeast(s LintSeverity) LintWarnings {
	rank := map[LintSeverity]int{LintInfo: 0, LintWarn: 1, LintHigh: 2}
	var out LintWarnings
	for _, w := range ws {
		if rank[w.Severity] >= rank[s] {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports settings that pass Validate but weaken protections.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.RateLimit.CrisisAlertMax > 10 {
		add("crisis_limit_loose", LintHigh, "more than 10 crisis alerts per window allows contact harassment")
	}
	if c.RateLimit.CrisisAlertWindow < time.Minute {
		add("crisis_window_short", LintWarn, "crisis alert window under one minute")
	}
	if c.Alert.MaxContactsPerAlert > 100 {
		add("batch_cap_large", LintWarn, "batches over 100 contacts amplify abuse")
	}
	if c.Alert.StepTimeout > 30*time.Second {
		add("step_timeout_long", LintInfo, "step timeout over 30s delays crisis delivery")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintHigh, "audit trail disabled")
	} else if c.Audit.DropIfFull {
		add("audit_drop_if_full", LintInfo, "audit entries are dropped when the buffer is full")
	}
	if c.PHI.SessionTimeout > time.Hour {
		add("phi_session_long", LintWarn, "PHI key sessions idle for over an hour")
	}
	if !c.Alert.RejectSuspicious {
		add("suspicious_input_sanitized", LintInfo, "suspicious input is sanitized and sent")
	}
	if !c.Metrics.Enabled {
		add("metrics_disabled", LintInfo, "metrics disabled")
	}
	return ws
}
