package memory

import (
	"context"
	"sync"

	goalert "github.com/MrEthical07/goAlert"
)

// AuditLog is an append-only in-memory audit table.
type AuditLog struct {
	mu      sync.Mutex
	entries []goalert.AuditLogEntry
}

var _ goalert.AuditStore = (*AuditLog)(nil)

// NewAuditLog returns an empty log.
func NewAuditLog() *AuditLog { return &AuditLog{} }

// AppendAudit implements goalert.AuditStore.
func (s *AuditLog) AppendAudit(_ context.Context, e goalert.AuditLogEntry) error {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()
	return nil
}

// Entries returns a copy of the appended entries, optionally filtered by user.
func (s *AuditLog) Entries(userID string) []goalert.AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]goalert.AuditLogEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if userID == "" || e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// SecurityEvents keeps flushed security events in memory.
type SecurityEvents struct {
	mu     sync.Mutex
	events []goalert.SecurityEvent
}

var _ goalert.SecurityEventWriter = (*SecurityEvents)(nil)

// NewSecurityEvents returns an empty event table.
func NewSecurityEvents() *SecurityEvents { return &SecurityEvents{} }

// WriteBatch implements goalert.SecurityEventWriter.
func (s *SecurityEvents) WriteBatch(_ context.Context, events []goalert.SecurityEvent) error {
	s.mu.Lock()
	s.events = append(s.events, events...)
	s.mu.Unlock()
	return nil
}

// Events returns a copy of every stored event.
func (s *SecurityEvents) Events() []goalert.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]goalert.SecurityEvent(nil), s.events...)
}
