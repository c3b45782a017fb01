package goAlert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAlert/internal/validate"
	"github.com/MrEthical07/goAlert/notify"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memContacts is a ContactProvider keyed by owner.
type memContacts struct {
	mu       sync.Mutex
	byOwner  map[string][]SupportContact
	denied   map[string]bool
	listErr  error
	verified int
}

func newMemContacts(contacts ...SupportContact) *memContacts {
	m := &memContacts{byOwner: map[string][]SupportContact{}, denied: map[string]bool{}}
	for _, c := range contacts {
		m.byOwner[c.OwnerUserID] = append(m.byOwner[c.OwnerUserID], c)
	}
	return m
}

func (m *memContacts) ListActiveContacts(_ context.Context, userID string) ([]SupportContact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []SupportContact
	for _, c := range m.byOwner[userID] {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memContacts) VerifyOwnership(_ context.Context, userID, phone string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verified++
	if m.denied[phone] {
		return false, nil
	}
	for _, c := range m.byOwner[userID] {
		clean, ok := validate.NormalizePhone(c.PhoneNumber)
		if ok && clean == phone && c.IsActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *memContacts) deny(phone string) {
	m.mu.Lock()
	m.denied[phone] = true
	m.mu.Unlock()
}

// recordingSMS records every send and fails for listed numbers.
type recordingSMS struct {
	mu    sync.Mutex
	sent  []string
	fail  map[string]bool
	count int
}

func newRecordingSMS() *recordingSMS {
	return &recordingSMS{fail: map[string]bool{}}
}

func (s *recordingSMS) SendSMS(_ context.Context, to, body string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if s.fail[to] {
		return "", errors.New("gateway rejected")
	}
	s.sent = append(s.sent, to+"|"+body)
	return fmt.Sprintf("SM%04d", s.count), nil
}

func (s *recordingSMS) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *recordingSMS) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

type recordingSink struct {
	mu      sync.Mutex
	entries []AuditLogEntry
}

func (s *recordingSink) Emit(_ context.Context, entry AuditLogEntry) {
	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
}

func (s *recordingSink) Entries() []AuditLogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditLogEntry(nil), s.entries...)
}

func (s *recordingSink) byType(eventType string) []AuditLogEntry {
	var out []AuditLogEntry
	for _, e := range s.Entries() {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingWriter struct {
	mu     sync.Mutex
	events []SecurityEvent
}

func (w *recordingWriter) WriteBatch(_ context.Context, events []SecurityEvent) error {
	w.mu.Lock()
	w.events = append(w.events, events...)
	w.mu.Unlock()
	return nil
}

func (w *recordingWriter) Events() []SecurityEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]SecurityEvent(nil), w.events...)
}

// memNotifications is a notify.Store for engine tests.
type memNotifications struct {
	mu   sync.Mutex
	rows map[string]notify.Notification
}

func newMemNotifications() *memNotifications {
	return &memNotifications{rows: map[string]notify.Notification{}}
}

func (s *memNotifications) Insert(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	s.rows[n.ID] = n
	s.mu.Unlock()
	return nil
}

func (s *memNotifications) Get(_ context.Context, id string) (notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.rows[id]
	if !ok {
		return notify.Notification{}, notify.ErrNotFound
	}
	return n, nil
}

func (s *memNotifications) List(_ context.Context, recipientID string, opts notify.ListOptions) ([]notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Notification
	for _, n := range s.rows {
		if n.RecipientID != recipientID || (opts.UnreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *memNotifications) MarkRead(_ context.Context, id, recipientID string, at time.Time) (bool, error) {
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

func (s *memNotifications) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type testEngine struct {
	*Engine
	clock    *testClock
	mr       *miniredis.Miniredis
	contacts *memContacts
	sms      *recordingSMS
	sink     *recordingSink
	writer   *recordingWriter
	store    *memNotifications
	hub      *notify.Hub
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Alert.StepTimeout = 2 * time.Second
	cfg.Alert.RequestTimeout = 5 * time.Second
	cfg.Audit.DropIfFull = false
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

func buildTestEngine(t *testing.T, cfg Config, contacts ...SupportContact) *testEngine {
	t.Helper()

	mr, rdb := newTestRedis(t)
	te := &testEngine{
		clock:    newTestClock(),
		mr:       mr,
		contacts: newMemContacts(contacts...),
		sms:      newRecordingSMS(),
		sink:     &recordingSink{},
		writer:   &recordingWriter{},
		store:    newMemNotifications(),
		hub:      notify.NewHub(cfg.Notify.SubscriberBuffer),
	}
	svc := notify.NewService(te.store, notify.ServiceConfig{Now: te.clock.Now}, te.hub)

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(te.clock.Now).
		WithContactProvider(te.contacts).
		WithSMSSender(te.sms).
		WithNotifier(svc).
		WithHub(te.hub).
		WithAuditSink(te.sink).
		WithSecurityEventWriter(te.writer).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}
	te.Engine = engine

	t.Cleanup(func() {
		engine.Close()
		te.hub.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return te
}

func contact(id, owner, phone string) SupportContact {
	return SupportContact{ID: id, OwnerUserID: owner, Name: id, PhoneNumber: phone, IsActive: true}
}
