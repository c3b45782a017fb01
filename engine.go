package goAlert

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/internal/audit"
	"github.com/MrEthical07/goAlert/internal/rate"
	"github.com/MrEthical07/goAlert/internal/validate"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

// Engine runs the alert pipeline. All methods are safe for concurrent use.
type Engine struct {
	config Config
	log    *zap.Logger
	tracer trace.Tracer
	now    func() time.Time

	contacts  ContactProvider
	authority Authority
	sms       SMSSender
	email     EmailSender
	mirror    *rate.Window
	validator *validate.Validator

	notifier *notify.Service
	hub      *notify.Hub

	cipher      *phi.Cipher
	phiSessions *phi.Sessions

	audit    *audit.Dispatcher
	security *audit.Batcher
	metrics  *Metrics

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Close flushes pending security events and stops background workers.
// Pending audit entries are drained before Close returns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.closeOnce.Do(func() {
		close(e.stop)
		e.wg.Wait()
		if e.security != nil {
			e.security.Close()
		}
		if e.audit != nil {
			e.audit.Close()
		}
	})
}

// AuditDropped returns how many audit entries were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// SecurityEventsDropped returns how many security events were dropped
// because the queue was full or a failed flush could not requeue them.
func (e *Engine) SecurityEventsDropped() uint64 {
	if e == nil || e.security == nil {
		return 0
	}
	return e.security.Dropped()
}

// FlushSecurityEvents requests an immediate security-event flush.
func (e *Engine) FlushSecurityEvents() {
	if e == nil || e.security == nil {
		return
	}
	e.security.Flush()
}

// MetricsSnapshot returns a copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return e.config
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() error {
	if e == nil || e.authority == nil || e.contacts == nil {
		return ErrEngineNotReady
	}
	return nil
}

// sweepPHISessions clears expired key sessions so idle keys do not outlive
// their timeout in memory.
func (e *Engine) sweepPHISessions(timeout time.Duration) {
	defer e.wg.Done()

	interval := timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n := e.phiSessions.Sweep()
			for i := 0; i < n; i++ {
				e.metrics.Inc(MetricPHISessionClosed)
			}
			if n > 0 {
				e.log.Debug("phi sessions expired", zap.Int("count", n))
			}
		case <-e.stop:
			return
		}
	}
}
