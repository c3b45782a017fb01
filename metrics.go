package goAlert

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
//
// MetricID values are stable for the lifetime of a process; exporters map them to names.
type MetricID uint16

const (
	// MetricCrisisAlertAttempt counts SendCrisisAlert calls.
	MetricCrisisAlertAttempt MetricID = iota
	// MetricCrisisAlertDelivered counts alerts that reached at least one contact.
	MetricCrisisAlertDelivered
	// MetricCrisisAlertFailed counts alerts that reached nobody or were rejected.
	MetricCrisisAlertFailed
	// MetricCrisisAlertNoRecipients counts alerts with an empty support network.
	MetricCrisisAlertNoRecipients
	// MetricSupportMessageAttempt counts SendSupportMessage calls.
	MetricSupportMessageAttempt
	// MetricValidationRejected counts batches rejected by the validator.
	MetricValidationRejected
	// MetricSuspiciousInput counts messages with stripped dangerous content.
	MetricSuspiciousInput
	// MetricRateLimited counts batches denied by a rate limit.
	MetricRateLimited
	// MetricRateLimitUnavailable counts batches denied because the limiter was unreachable.
	MetricRateLimitUnavailable
	// MetricOwnershipRejected counts contacts dropped by the ownership re-check.
	MetricOwnershipRejected
	// MetricDeliverySuccess counts successful (contact, channel) attempts.
	MetricDeliverySuccess
	// MetricDeliveryFailure counts failed (contact, channel) attempts.
	MetricDeliveryFailure
	// MetricNotificationCreated counts stored notifications.
	MetricNotificationCreated
	// MetricNotificationRead counts notifications marked read.
	MetricNotificationRead
	// MetricSecurityEvent counts reported security events.
	MetricSecurityEvent
	// MetricAuthEvent counts recorded authentication transitions.
	MetricAuthEvent
	// MetricPHISessionOpened counts opened PHI key sessions.
	MetricPHISessionOpened
	// MetricPHISessionClosed counts PHI key sessions closed by logout or timeout.
	MetricPHISessionClosed
	// MetricCryptoFailure counts encrypt or decrypt failures.
	MetricCryptoFailure
	// MetricDispatchLatency is the histogram of whole-batch dispatch time.
	MetricDispatchLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the dispatch histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only MetricDispatchLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricDispatchLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the dispatch histogram.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricDispatchLatency].buckets[i])
		}
		s.Histograms[MetricDispatchLatency] = buckets
	}

	return s
}

// Dispatch spans external calls, so buckets run from 50ms to 10s.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 10000:
		return 6
	default:
		return 7
	}
}
