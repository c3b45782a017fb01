package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ServiceConfig wires optional collaborators.
type ServiceConfig struct {
	Logger *zap.Logger
	Now    func() time.Time
	// OnPublishError is invoked after a successful write whose publish failed.
	OnPublishError func(n Notification, err error)
}

// Service is the write path for notifications.
type Service struct {
	store          Store
	publishers     []Publisher
	log            *zap.Logger
	now            func() time.Time
	onPublishError func(Notification, error)
}

// NewService returns a Service writing to store and publishing to pubs in order.
func NewService(store Store, cfg ServiceConfig, pubs ...Publisher) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:          store,
		publishers:     pubs,
		log:            log,
		now:            now,
		onPublishError: cfg.OnPublishError,
	}
}

// Create validates n, assigns ID and CreatedAt, persists it, then publishes.
func (s *Service) Create(ctx context.Context, n Notification) (Notification, error) {
	if strings.TrimSpace(n.RecipientID) == "" || n.Type == "" || strings.TrimSpace(n.Title) == "" {
		return Notification{}, fmt.Errorf("%w: recipient, type and title are required", ErrInvalid)
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if !n.Priority.Valid() {
		return Notification{}, fmt.Errorf("%w: priority %q", ErrInvalid, n.Priority)
	}

	n.ID = uuid.NewString()
	n.CreatedAt = s.now().UTC()
	n.ReadAt = nil

	if err := s.store.Insert(ctx, n); err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}

	s.publish(ctx, Event{Kind: EventCreated, Notification: n})
	return n, nil
}

// MarkRead sets ReadAt for recipientID's notification. The first call wins;
// later calls return the stored value unchanged. Notifications owned by
// another recipient report ErrNotFound.
func (s *Service) MarkRead(ctx context.Context, recipientID, id string) (Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.RecipientID != recipientID {
		return Notification{}, ErrNotFound
	}
	if n.ReadAt != nil {
		return n, nil
	}

	at := s.now().UTC()
	if at.Before(n.CreatedAt) {
		at = n.CreatedAt
	}

	updated, err := s.store.MarkRead(ctx, id, recipientID, at)
	if err != nil {
		return Notification{}, err
	}
	if !updated {
		// Lost a race with another reader; return what was stored.
		return s.store.Get(ctx, id)
	}

	n.ReadAt = &at
	s.publish(ctx, Event{Kind: EventRead, Notification: n})
	return n, nil
}

// List returns recipientID's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, opts ListOptions) ([]Notification, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	return s.store.List(ctx, recipientID, opts)
}

func (s *Service) publish(ctx context.Context, ev Event) {
	var errs []error
	for _, p := range s.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		s.log.Warn("notification publish failed",
			zap.String("notification_id", ev.Notification.ID),
			zap.String("kind", string(ev.Kind)),
			zap.Error(err),
		)
		if s.onPublishError != nil {
			s.onPublishError(ev.Notification, err)
		}
	}
}
