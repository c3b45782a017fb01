package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultBatchCapacity = 100
	defaultFlushInterval = 30 * time.Second
	defaultFlushTimeout  = 5 * time.Second
)

// SecurityEvent is a signal of possible abuse, kept apart from the audit trail.
type SecurityEvent struct {
	Type      string            `json:"event_type"`
	Severity  RiskLevel         `json:"severity"`
	UserID    string            `json:"user_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// BatchWriter persists a batch of security events. A non-nil error means
// none of the batch is assumed durable.
type BatchWriter interface {
	WriteBatch(ctx context.Context, events []SecurityEvent) error
}

// BatchConfig controls the security-event queue.
type BatchConfig struct {
	Capacity      int
	FlushInterval time.Duration
	FlushTimeout  time.Duration
	// OnFlushError is called from the flush goroutine with the failed batch
	// size and how many events were requeued.
	OnFlushError func(err error, batch, requeued int)
}

// Batcher queues security events in memory and flushes them to a
// [BatchWriter] on a timer, when the queue fills, or immediately for
// critical events.
//
// The queue holds at most Capacity events; when full, the oldest event is
// dropped. On flush failure at most half of the failed batch is requeued,
// the rest is dropped. Both paths increment [Batcher.Dropped].
type Batcher struct {
	cfg    BatchConfig
	writer BatchWriter

	mu    sync.Mutex
	queue []SecurityEvent

	flushNow  chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	flushed   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewBatcher starts the flush loop. Zero-value fields of cfg fall back to
// defaults (100 events, 30s interval, 5s flush timeout).
func NewBatcher(cfg BatchConfig, writer BatchWriter) *Batcher {
	if cfg.Capacity <= 0 {
		cfg.Capacity = defaultBatchCapacity
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = defaultFlushTimeout
	}

	b := &Batcher{
		cfg:      cfg,
		writer:   writer,
		queue:    make([]SecurityEvent, 0, cfg.Capacity),
		flushNow: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Add enqueues ev. It never blocks on the writer.
func (b *Batcher) Add(ev SecurityEvent) {
	if b == nil || b.closed.Load() {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	if len(b.queue) >= b.cfg.Capacity {
		b.queue = b.queue[1:]
		b.dropped.Add(1)
	}
	b.queue = append(b.queue, ev)
	full := len(b.queue) >= b.cfg.Capacity
	b.mu.Unlock()

	if ev.Severity == RiskCritical || full {
		b.signal()
	}
}

func (b *Batcher) signal() {
	select {
	case b.flushNow <- struct{}{}:
	default:
	}
}

func (b *Batcher) run() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flush()
		case <-b.flushNow:
			b.flush()
		case <-b.done:
			b.flush()
			return
		}
	}
}

// Flush synchronously writes the current queue. It is safe to call
// concurrently with the background loop.
func (b *Batcher) Flush() {
	if b == nil {
		return
	}
	b.flush()
}

func (b *Batcher) flush() {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.queue
	b.queue = make([]SecurityEvent, 0, b.cfg.Capacity)
	b.mu.Unlock()

	if b.writer == nil {
		b.dropped.Add(uint64(len(batch)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.FlushTimeout)
	err := b.writer.WriteBatch(ctx, batch)
	cancel()
	if err == nil {
		b.flushed.Add(uint64(len(batch)))
		return
	}

	requeued := b.requeue(batch[:len(batch)/2])
	b.dropped.Add(uint64(len(batch) - requeued))
	if b.cfg.OnFlushError != nil {
		b.cfg.OnFlushError(err, len(batch), requeued)
	}
}

// requeue puts events back ahead of anything queued since the flush began,
// without exceeding capacity.
func (b *Batcher) requeue(events []SecurityEvent) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.cfg.Capacity - len(b.queue)
	if room <= 0 {
		return 0
	}
	if len(events) > room {
		events = events[len(events)-room:]
	}
	merged := make([]SecurityEvent, 0, b.cfg.Capacity)
	merged = append(merged, events...)
	merged = append(merged, b.queue...)
	b.queue = merged
	return len(events)
}

// Close stops the background loop after a final flush attempt.
func (b *Batcher) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.closed.Store(true)
		close(b.done)
		b.wg.Wait()
	})
}

// Len returns the number of queued events.
func (b *Batcher) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Dropped reports events evicted from a full queue.
func (b *Batcher) Dropped() uint64 {
	if b == nil {
		return 0
	}
	return b.dropped.Load()
}

// Flushed reports events written successfully.
func (b *Batcher) Flushed() uint64 {
	if b == nil {
		return 0
	}
	return b.flushed.Load()
}
