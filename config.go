package goAlert

import (
	"errors"
	"time"

	"github.com/MrEthical07/goAlert/phi"
)

// Config is the complete engine configuration.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	Alert      AlertConfig
	RateLimit  RateLimitConfig
	Validation ValidationConfig
	PHI        PHIConfig
	Audit      AuditConfig
	Security   SecurityConfig
	Notify     NotifyConfig
	Metrics    MetricsConfig
}

/*
====================================
ALERT CONFIG
====================================
*/

// AlertConfig bounds a single dispatch batch.
type AlertConfig struct {
	// MaxContactsPerAlert caps the contacts of one batch; larger batches are rejected.
	MaxContactsPerAlert int
	// Workers is the per-batch send concurrency.
	Workers int
	// StepTimeout bounds every external call (authority, gateway).
	StepTimeout time.Duration
	// RequestTimeout bounds the whole batch. Sends keep running on a
	// detached context up to this deadline even if the caller goes away.
	RequestTimeout time.Duration
	// DefaultMessage is used by SendCrisisAlert when the request has none.
	DefaultMessage string
	// EmailSubject is the subject of alert emails.
	EmailSubject string
	// RejectSuspicious rejects messages that needed sanitizing instead of
	// sending the sanitized text.
	RejectSuspicious bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig holds the per-user sliding-window policies.
type RateLimitConfig struct {
	CrisisAlertMax       int
	CrisisAlertWindow    time.Duration
	SupportMessageMax    int
	SupportMessageWindow time.Duration
	// RedisPrefix namespaces every limiter key.
	RedisPrefix string
	// ClientMirror enables an in-process window checked before the
	// authoritative limiter. It only ever denies earlier, never allows more.
	ClientMirror bool
}

/*
====================================
VALIDATION CONFIG
====================================
*/

// ValidationConfig holds message validator limits.
type ValidationConfig struct {
	MaxMessageLength int
	MaxRepeatedRun   int
}

/*
====================================
PHI CONFIG
====================================
*/

// PHIConfig configures field encryption and key sessions.
type PHIConfig struct {
	// Iterations is the PBKDF2 work factor; never below phi.MinIterations.
	Iterations int
	// SessionTimeout is the inactivity timeout of a key session.
	SessionTimeout time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig configures the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops at once on a full buffer. When false, emits wait up
	// to EnqueueWait for space and then drop.
	DropIfFull  bool
	EnqueueWait time.Duration
	// WriteTimeout bounds each write to the audit sink.
	WriteTimeout time.Duration
}

// SecurityConfig configures the security-event batcher.
type SecurityConfig struct {
	QueueCapacity int
	FlushInterval time.Duration
	FlushTimeout  time.Duration
}

// NotifyConfig configures in-app notification fan-out.
type NotifyConfig struct {
	SubscriberBuffer int
}

// MetricsConfig toggles in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig tightens the defaults: suspicious input is rejected,
// the in-process rate mirror is on, and audit entries wait briefly for buffer
// space rather than drop at once.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Alert.RejectSuspicious = true
	cfg.Alert.MaxContactsPerAlert = 25
	cfg.RateLimit.ClientMirror = true
	cfg.Audit.DropIfFull = false
	cfg.PHI.Iterations = 310000
	cfg.PHI.SessionTimeout = 10 * time.Minute
	return cfg
}

func defaultConfig() Config {
	return Config{
		Alert: AlertConfig{
			MaxContactsPerAlert: 50,
			Workers:             4,
			StepTimeout:         10 * time.Second,
			RequestTimeout:      30 * time.Second,
			DefaultMessage:      "I need support right now. Please reach out to me as soon as you can.",
			EmailSubject:        "Crisis alert",
		},
		RateLimit: RateLimitConfig{
			CrisisAlertMax:       3,
			CrisisAlertWindow:    5 * time.Minute,
			SupportMessageMax:    10,
			SupportMessageWindow: 15 * time.Minute,
			RedisPrefix:          "rl:",
		},
		Validation: ValidationConfig{
			MaxMessageLength: 10000,
			MaxRepeatedRun:   100,
		},
		PHI: PHIConfig{
			Iterations:     phi.MinIterations,
			SessionTimeout: phi.DefaultSessionTimeout,
		},
		Audit: AuditConfig{
			Enabled:      true,
			BufferSize:   1024,
			DropIfFull:   true,
			EnqueueWait:  100 * time.Millisecond,
			WriteTimeout: 5 * time.Second,
		},
		Security: SecurityConfig{
			QueueCapacity: 100,
			FlushInterval: 30 * time.Second,
			FlushTimeout:  5 * time.Second,
		},
		Notify: NotifyConfig{
			SubscriberBuffer: 16,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c *Config) Validate() error {
	// Alert
	if c.Alert.MaxContactsPerAlert <= 0 {
		return errors.New("Alert MaxContactsPerAlert must be > 0")
	}
	if c.Alert.Workers <= 0 {
		return errors.New("Alert Workers must be > 0")
	}
	if c.Alert.StepTimeout <= 0 {
		return errors.New("Alert StepTimeout must be > 0")
	}
	if c.Alert.RequestTimeout < c.Alert.StepTimeout {
		return errors.New("Alert RequestTimeout must be >= StepTimeout")
	}
	if c.Alert.DefaultMessage == "" {
		return errors.New("Alert DefaultMessage must not be empty")
	}

	// Rate limits
	if c.RateLimit.CrisisAlertMax <= 0 || c.RateLimit.CrisisAlertWindow <= 0 {
		return errors.New("RateLimit crisis alert policy must be > 0")
	}
	if c.RateLimit.SupportMessageMax <= 0 || c.RateLimit.SupportMessageWindow <= 0 {
		return errors.New("RateLimit support message policy must be > 0")
	}
	if c.RateLimit.RedisPrefix == "" {
		return errors.New("RateLimit RedisPrefix must not be empty")
	}

	// Validation
	if c.Validation.MaxMessageLength <= 0 {
		return errors.New("Validation MaxMessageLength must be > 0")
	}
	if c.Validation.MaxRepeatedRun < 2 {
		return errors.New("Validation MaxRepeatedRun must be >= 2")
	}

	// PHI
	if c.PHI.Iterations < phi.MinIterations {
		return errors.New("PHI Iterations must be >= 100000")
	}
	if c.PHI.SessionTimeout <= 0 {
		return errors.New("PHI SessionTimeout must be > 0")
	}

	// Audit and security events
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}
	if c.Audit.Enabled && (c.Audit.EnqueueWait <= 0 || c.Audit.WriteTimeout <= 0) {
		return errors.New("Audit EnqueueWait and WriteTimeout must be > 0 when enabled")
	}
	if c.Audit.EnqueueWait >= c.Alert.StepTimeout {
		return errors.New("Audit EnqueueWait must be < Alert StepTimeout")
	}
	if c.Security.QueueCapacity <= 0 {
		return errors.New("Security QueueCapacity must be > 0")
	}
	if c.Security.FlushInterval <= 0 || c.Security.FlushTimeout <= 0 {
		return errors.New("Security FlushInterval and FlushTimeout must be > 0")
	}

	if c.Notify.SubscriberBuffer <= 0 {
		return errors.New("Notify SubscriberBuffer must be > 0")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}
	return nil
}
