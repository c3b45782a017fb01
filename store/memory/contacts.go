package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/store"
)

// Contacts is an in-memory support-contact table.
type Contacts struct {
	mu   sync.RWMutex
	rows map[string]goalert.SupportContact
	seq  map[string]int
	next int
}

var _ goalert.ContactProvider = (*Contacts)(nil)

// NewContacts returns an empty table.
func NewContacts() *Contacts {
	return &Contacts{rows: map[string]goalert.SupportContact{}, seq: map[string]int{}}
}

// Create adds a contact owned by owner. New contacts are active.
func (s *Contacts) Create(_ context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error) {
	c, err := store.PrepareContact(owner, c)
	if err != nil {
		return goalert.SupportContact{}, err
	}
	c.ID = uuid.NewString()
	c.IsActive = true

	s.mu.Lock()
	s.rows[c.ID] = c
	s.seq[c.ID] = s.next
	s.next++
	s.mu.Unlock()
	return c, nil
}

// Update replaces the editable fields of owner's contact c.ID. The active
// flag is left unchanged.
func (s *Contacts) Update(_ context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error) {
	c, err := store.PrepareContact(owner, c)
	if err != nil {
		return goalert.SupportContact{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[c.ID]
	if !ok || cur.OwnerUserID != owner {
		return goalert.SupportContact{}, store.ErrContactNotFound
	}
	c.IsActive = cur.IsActive
	s.rows[c.ID] = c
	return c, nil
}

// Deactivate marks owner's contact id inactive.
func (s *Contacts) Deactivate(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.rows[id]
	if !ok || owner == "" || cur.OwnerUserID != owner {
		return store.ErrContactNotFound
	}
	cur.IsActive = false
	s.rows[id] = cur
	return nil
}

// ListActiveContacts implements goalert.ContactProvider, in creation order.
func (s *Contacts) ListActiveContacts(_ context.Context, userID string) ([]goalert.SupportContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []goalert.SupportContact
	for _, c := range s.rows {
		if c.OwnerUserID == userID && c.IsActive {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// VerifyOwnership implements goalert.ContactProvider.
func (s *Contacts) VerifyOwnership(_ context.Context, userID, phone string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.rows {
		if c.OwnerUserID == userID && c.IsActive && c.PhoneNumber == phone {
			return true, nil
		}
	}
	return false, nil
}
