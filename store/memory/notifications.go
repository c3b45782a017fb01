package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/goAlert/notify"
)

// Notifications is an in-memory notify.Store.
type Notifications struct {
	mu   sync.RWMutex
	rows map[string]notify.Notification
}

var _ notify.Store = (*Notifications)(nil)

// NewNotifications returns an empty store.
func NewNotifications() *Notifications {
	return &Notifications{rows: map[string]notify.Notification{}}
}

// Insert implements notify.Store.
func (s *Notifications) Insert(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.rows[n.ID]; dup {
		return notify.ErrInvalid
	}
	s.rows[n.ID] = n
	return nil
}

// Get implements notify.Store.
func (s *Notifications) Get(_ context.Context, id string) (notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.rows[id]
	if !ok {
		return notify.Notification{}, notify.ErrNotFound
	}
	return n, nil
}

// List returns newest first, honoring opts.Limit when positive.
func (s *Notifications) List(_ context.Context, recipientID string, opts notify.ListOptions) ([]notify.Notification, error) {
	s.mu.RLock()
	out := make([]notify.Notification, 0)
	for _, n := range s.rows {
		if n.RecipientID != recipientID || (opts.UnreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// MarkRead implements notify.Store.
func (s *Notifications) MarkRead(_ context.Context, id, recipientID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok || n.RecipientID != recipientID {
		return false, notify.ErrNotFound
	}
	if n.ReadAt != nil {
		return false, nil
	}
	n.ReadAt = &at
	s.rows[id] = n
	return true, nil
}
