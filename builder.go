package goAlert

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/internal/audit"
	"github.com/MrEthical07/goAlert/internal/rate"
	"github.com/MrEthical07/goAlert/internal/validate"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

// Builder assembles an [Engine]. A Builder is single use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	contacts  ContactProvider
	authority Authority
	sms       SMSSender
	email     EmailSender

	notifier *notify.Service
	hub      *notify.Hub

	auditSink      AuditSink
	securityWriter SecurityEventWriter

	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	built bool
}

// New returns a Builder holding the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the client backing the local authority's rate limits.
// It is ignored when an explicit Authority is configured.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithContactProvider sets the support-network system of record. Required.
func (b *Builder) WithContactProvider(p ContactProvider) *Builder {
	b.contacts = p
	return b
}

// WithAuthority replaces the local authority with a remote one.
func (b *Builder) WithAuthority(a Authority) *Builder {
	b.authority = a
	return b
}

// WithSMSSender sets the SMS gateway. Without one every dispatch fails
// with ErrNotConfigured.
func (b *Builder) WithSMSSender(s SMSSender) *Builder {
	b.sms = s
	return b
}

// WithEmailSender enables the optional email channel.
func (b *Builder) WithEmailSender(s EmailSender) *Builder {
	b.email = s
	return b
}

// WithNotifier enables in-app notifications.
func (b *Builder) WithNotifier(svc *notify.Service) *Builder {
	b.notifier = svc
	return b
}

// WithHub enables live subscriptions. The hub should also be one of the
// notifier's publishers, directly or through a relay.
func (b *Builder) WithHub(h *notify.Hub) *Builder {
	b.hub = h
	return b
}

// WithAuditSink sets the audit destination.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithSecurityEventWriter sets the security-event destination.
func (b *Builder) WithSecurityEventWriter(w SecurityEventWriter) *Builder {
	b.securityWriter = w
	return b
}

// WithLogger sets the engine logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(log *zap.Logger) *Builder {
	b.logger = log
	return b
}

// WithTracer sets the tracer used for per-contact dispatch spans.
func (b *Builder) WithTracer(t trace.Tracer) *Builder {
	b.tracer = t
	return b
}

// WithClock overrides time.Now for limiters, sessions and timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and starts the engine's background
// workers. Call [Engine.Close] to stop them.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.contacts == nil {
		return nil, errors.New("contact provider required")
	}
	if b.authority == nil && b.redis == nil {
		return nil, errors.New("redis client or authority required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.logger
	if log == nil {
		log = zap.NewNop()
	}
	tracer := b.tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("goalert")
	}

	authority := b.authority
	if authority == nil {
		authority = NewLocalAuthority(b.redis, b.contacts, LocalAuthorityConfig{
			RateLimit:  cfg.RateLimit,
			Validation: cfg.Validation,
			Now:        now,
		})
	}

	// -------- PHI --------
	cipher := phi.NewCipher(phi.CipherConfig{Iterations: cfg.PHI.Iterations})
	sessions := phi.NewSessions(cipher, phi.SessionConfig{
		Timeout: cfg.PHI.SessionTimeout,
		Now:     now,
	})

	e := &Engine{
		config:    cfg,
		log:       log,
		tracer:    tracer,
		now:       now,
		contacts:  b.contacts,
		authority: authority,
		sms:       b.sms,
		email:     b.email,
		notifier:  b.notifier,
		hub:       b.hub,
		validator: validate.New(validate.Config{
			MaxMessageLength: cfg.Validation.MaxMessageLength,
			MaxRepeatedRun:   cfg.Validation.MaxRepeatedRun,
		}),
		cipher:      cipher,
		phiSessions: sessions,
		metrics:     NewMetrics(cfg.Metrics),
		stop:        make(chan struct{}),
	}
	if cfg.RateLimit.ClientMirror {
		e.mirror = rate.NewWindow(now)
	}

	// -------- AUDIT --------
	e.audit = audit.NewDispatcher(audit.Config{
		Enabled:      cfg.Audit.Enabled,
		BufferSize:   cfg.Audit.BufferSize,
		DropIfFull:   cfg.Audit.DropIfFull,
		EnqueueWait:  cfg.Audit.EnqueueWait,
		WriteTimeout: cfg.Audit.WriteTimeout,
		OnDrop: func(entry audit.Entry) {
			log.Warn("audit entry dropped",
				zap.String("audit_id", entry.ID),
				zap.String("event_type", entry.EventType),
				zap.String("outcome", string(entry.Outcome)),
			)
		},
	}, b.auditSink)

	if b.securityWriter != nil {
		e.security = audit.NewBatcher(audit.BatchConfig{
			Capacity:      cfg.Security.QueueCapacity,
			FlushInterval: cfg.Security.FlushInterval,
			FlushTimeout:  cfg.Security.FlushTimeout,
			OnFlushError: func(err error, batch, requeued int) {
				log.Error("security event flush failed",
					zap.Error(err),
					zap.Int("batch", batch),
					zap.Int("requeued", requeued),
				)
			},
		}, b.securityWriter)
	}

	e.wg.Add(1)
	go e.sweepPHISessions(cfg.PHI.SessionTimeout)

	b.built = true
	return e, nil
}
