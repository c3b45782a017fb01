// Package store holds what the memory and postgres backends share: the
// contact errors and the contact write rules.
package store

import (
	"errors"
	"fmt"
	"strings"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/internal/validate"
)

var (
	// ErrContactNotFound is returned when a contact does not exist or is
	// not owned by the caller. The two cases are indistinguishable.
	ErrContactNotFound = errors.New("support contact not found")
	// ErrInvalidContact wraps goalert.ErrValidation for rejected contact writes.
	ErrInvalidContact = fmt.Errorf("%w: invalid support contact", goalert.ErrValidation)
)

// PrepareContact validates c for a write by owner and returns it with a
// normalized phone number and trimmed text fields.
func PrepareContact(owner string, c goalert.SupportContact) (goalert.SupportContact, error) {
	if owner == "" {
		return goalert.SupportContact{}, goalert.ErrUnauthorized
	}
	if c.OwnerUserID != "" && c.OwnerUserID != owner {
		return goalert.SupportContact{}, ErrContactNotFound
	}
	c.OwnerUserID = owner
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Relationship = strings.TrimSpace(c.Relationship)
	if c.Name == "" {
		return goalert.SupportContact{}, fmt.Errorf("%w: name required", ErrInvalidContact)
	}
	phone, ok := validate.NormalizePhone(c.PhoneNumber)
	if !ok {
		return goalert.SupportContact{}, fmt.Errorf("%w: phone number", ErrInvalidContact)
	}
	c.PhoneNumber = phone
	if c.Email != "" && !strings.Contains(c.Email, "@") {
		return goalert.SupportContact{}, fmt.Errorf("%w: email", ErrInvalidContact)
	}
	return c, nil
}
