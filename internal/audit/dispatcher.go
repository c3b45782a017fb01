package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultEnqueueWait  = 100 * time.Millisecond
	defaultWriteTimeout = 5 * time.Second
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops an entry as soon as the buffer is full. Otherwise
	// Emit waits up to EnqueueWait for space before dropping it.
	DropIfFull  bool
	EnqueueWait time.Duration
	// WriteTimeout bounds the context handed to each sink write.
	WriteTimeout time.Duration
	// OnDrop, when set, sees every entry that was not buffered.
	OnDrop func(Entry)
}

// Dispatcher forwards audit entries to a sink on one background goroutine.
// Emit never waits longer than EnqueueWait, so a slow or stalled sink costs
// dropped entries, counted by [Dispatcher.Dropped], and never stalls the
// operation being audited.
type Dispatcher struct {
	cfg       Config
	sink      Sink
	ch        chan Entry
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewDispatcher starts a dispatcher, or returns nil when cfg is disabled.
// A nil Dispatcher is safe to use and discards everything.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.EnqueueWait <= 0 {
		cfg.EnqueueWait = defaultEnqueueWait
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Entry, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case entry := <-d.ch:
			d.write(entry)
		case <-d.done:
			for {
				select {
				case entry := <-d.ch:
					d.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.WriteTimeout)
	defer cancel()
	d.sink.Emit(ctx, entry)
}

// Emit queues entry for the sink. It returns once the entry is buffered or
// dropped; the wait is bounded by EnqueueWait and by ctx.
func (d *Dispatcher) Emit(ctx context.Context, entry Entry) {
	if d == nil || d.closed.Load() {
		return
	}

	select {
	case d.ch <- entry:
		return
	case <-d.done:
		return
	default:
	}

	if d.cfg.DropIfFull {
		d.drop(entry)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timer := time.NewTimer(d.cfg.EnqueueWait)
	defer timer.Stop()

	select {
	case d.ch <- entry:
	case <-d.done:
	case <-ctx.Done():
		d.drop(entry)
	case <-timer.C:
		d.drop(entry)
	}
}

func (d *Dispatcher) drop(entry Entry) {
	d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(entry)
	}
}

// Close stops accepting entries and waits for the buffer to drain.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports how many entries never reached the buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
