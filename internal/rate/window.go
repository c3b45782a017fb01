package rate

import (
	"sync"
	"time"
)

// Window is an in-memory sliding-window limiter keyed by arbitrary strings.
// State is lost on restart; the Redis [Limiter] is authoritative.
type Window struct {
	mu      sync.Mutex
	entries map[string][]time.Time
	now     func() time.Time
}

// NewWindow creates an empty [Window]. A nil now defaults to time.Now.
func NewWindow(now func() time.Time) *Window {
	if now == nil {
		now = time.Now
	}
	return &Window{
		entries: make(map[string][]time.Time),
		now:     now,
	}
}

// IsAllowed prunes timestamps older than window for key and admits the
// attempt iff fewer than maxAttempts remain. Admitted attempts are recorded.
func (w *Window) IsAllowed(key string, maxAttempts int, window time.Duration) bool {
	if maxAttempts <= 0 {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	kept := prune(w.entries[key], now, window)
	if len(kept) >= maxAttempts {
		w.entries[key] = kept
		return false
	}
	w.entries[key] = append(kept, now)
	return true
}

// Remaining returns how many attempts key may still make in the current window.
func (w *Window) Remaining(key string, maxAttempts int, window time.Duration) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	kept := prune(w.entries[key], w.now(), window)
	if len(kept) == 0 {
		delete(w.entries, key)
	} else {
		w.entries[key] = kept
	}
	if left := maxAttempts - len(kept); left > 0 {
		return left
	}
	return 0
}

// Reset forgets all attempts for key.
func (w *Window) Reset(key string) {
	w.mu.Lock()
	delete(w.entries, key)
	w.mu.Unlock()
}

// prune drops timestamps at or beyond window age. ts is ordered oldest first.
func prune(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	kept := make([]time.Time, len(ts)-i)
	copy(kept, ts[i:])
	return kept
}
