package notify

import (
	"context"
	"errors"
	"time"
)

// Priority orders notifications for display.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Notification types created by the core.
const (
	TypeCrisisAlert    = "crisis_alert"
	TypeSupportMessage = "support_message"
	TypeSystem         = "system"
)

var (
	ErrNotFound = errors.New("notification not found")
	ErrInvalid  = errors.New("invalid notification")
)

// Notification is shared by sender and recipient; only the recipient may
// set ReadAt, exactly once, never before CreatedAt.
type Notification struct {
	ID          string         `json:"id"`
	RecipientID string         `json:"recipient_id"`
	SenderID    string         `json:"sender_id,omitempty"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Priority    Priority       `json:"priority"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
}

// Read reports whether the recipient has read n.
func (n Notification) Read() bool { return n.ReadAt != nil }

// ListOptions filters List results. Results are newest first.
type ListOptions struct {
	UnreadOnly bool
	Limit      int
}

// Store persists notifications. MarkRead must set read_at only when it is
// still null and only for the given recipient, returning ErrNotFound
// otherwise.
type Store interface {
	Insert(ctx context.Context, n Notification) error
	Get(ctx context.Context, id string) (Notification, error)
	List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (bool, error)
}

// EventKind distinguishes inserts from updates.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventRead    EventKind = "read"
)

// Event is what subscribers receive.
type Event struct {
	Kind         EventKind    `json:"kind"`
	Notification Notification `json:"notification"`
}

// Publisher pushes events to subscribers of the event's recipient.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}
