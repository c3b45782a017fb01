package goAlert

import (
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricCrisisAlertAttempt)

	if got := m.Value(MetricCrisisAlertAttempt); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricCrisisAlertAttempt)
	m.Inc(MetricCrisisAlertAttempt)
	m.Inc(MetricCrisisAlertAttempt)

	if got := m.Value(MetricCrisisAlertAttempt); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricDeliverySuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricDeliverySuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		time.Second,
		2500 * time.Millisecond,
		10 * time.Second,
		30 * time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricDispatchLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricDispatchLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsObserveIgnoresCounters(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricCrisisAlertAttempt, time.Second)

	if _, ok := m.Snapshot().Histograms[MetricCrisisAlertAttempt]; ok {
		t.Fatalf("counters must not carry histograms")
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricCrisisAlertDelivered)
	m.Inc(MetricCrisisAlertFailed)
	m.Inc(MetricCrisisAlertFailed)
	m.Observe(MetricDispatchLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricCrisisAlertDelivered] != 1 {
		t.Fatalf("expected MetricCrisisAlertDelivered=1 got %d", snap.Counters[MetricCrisisAlertDelivered])
	}
	if snap.Counters[MetricCrisisAlertFailed] != 2 {
		t.Fatalf("expected MetricCrisisAlertFailed=2 got %d", snap.Counters[MetricCrisisAlertFailed])
	}
	if snap.Histograms[MetricDispatchLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricDispatchLatency][0])
	}
}
