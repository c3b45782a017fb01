package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/store"
)

const contactsTable = "support_contacts"

var contactColumns = []string{
	"id",
	"owner_user_id",
	"name",
	"phone_number",
	"COALESCE(email, '')",
	"COALESCE(relationship, '')",
	"is_active",
}

// Contacts is the support_contacts repository.
type Contacts struct {
	q   Querier
	now func() time.Time
}

var _ goalert.ContactProvider = (*Contacts)(nil)

// NewContacts returns a repository over q.
func NewContacts(q Querier) *Contacts {
	return &Contacts{q: q, now: time.Now}
}

// ListActiveContacts implements goalert.ContactProvider.
func (r *Contacts) ListActiveContacts(ctx context.Context, userID string) ([]goalert.SupportContact, error) {
	query, args, err := psql.Select(contactColumns...).
		From(contactsTable).
		Where(sq.And{sq.Eq{"owner_user_id": userID}, sq.Eq{"is_active": true}}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list contacts: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []goalert.SupportContact
	for rows.Next() {
		var c goalert.SupportContact
		if err := rows.Scan(&c.ID, &c.OwnerUserID, &c.Name, &c.PhoneNumber, &c.Email, &c.Relationship, &c.IsActive); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

// VerifyOwnership implements goalert.ContactProvider.
func (r *Contacts) VerifyOwnership(ctx context.Context, userID, phone string) (bool, error) {
	query, args, err := psql.Select("1").
		From(contactsTable).
		Where(sq.And{
			sq.Eq{"owner_user_id": userID},
			sq.Eq{"phone_number": phone},
			sq.Eq{"is_active": true},
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build verify ownership: %w", err)
	}

	var owned bool
	if err := r.q.QueryRow(ctx, query, args...).Scan(&owned); err != nil {
		return false, fmt.Errorf("verify ownership: %w", err)
	}
	return owned, nil
}

// Create inserts an active contact owned by owner.
func (r *Contacts) Create(ctx context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error) {
	c, err := store.PrepareContact(owner, c)
	if err != nil {
		return goalert.SupportContact{}, err
	}
	c.ID = uuid.NewString()
	c.IsActive = true
	now := r.now().UTC()

	query, args, err := psql.Insert(contactsTable).
		Columns("id", "owner_user_id", "name", "phone_number", "email", "relationship", "is_active", "created_at", "updated_at").
		Values(c.ID, c.OwnerUserID, c.Name, c.PhoneNumber, nullable(c.Email), nullable(c.Relationship), true, now, now).
		ToSql()
	if err != nil {
		return goalert.SupportContact{}, fmt.Errorf("build create contact: %w", err)
	}
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return goalert.SupportContact{}, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// Update rewrites the editable fields of owner's contact c.ID.
func (r *Contacts) Update(ctx context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error) {
	c, err := store.PrepareContact(owner, c)
	if err != nil {
		return goalert.SupportContact{}, err
	}

	query, args, err := psql.Update(contactsTable).
		Set("name", c.Name).
		Set("phone_number", c.PhoneNumber).
		Set("email", nullable(c.Email)).
		Set("relationship", nullable(c.Relationship)).
		Set("updated_at", r.now().UTC()).
		Where(sq.And{sq.Eq{"id": c.ID}, sq.Eq{"owner_user_id": owner}}).
		Suffix("RETURNING is_active").
		ToSql()
	if err != nil {
		return goalert.SupportContact{}, fmt.Errorf("build update contact: %w", err)
	}

	if err := r.q.QueryRow(ctx, query, args...).Scan(&c.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goalert.SupportContact{}, store.ErrContactNotFound
		}
		return goalert.SupportContact{}, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Deactivate marks owner's contact id inactive. Rows are never deleted.
func (r *Contacts) Deactivate(ctx context.Context, owner, id string) error {
	if owner == "" {
		return store.ErrContactNotFound
	}
	query, args, err := psql.Update(contactsTable).
		Set("is_active", false).
		Set("updated_at", r.now().UTC()).
		Where(sq.And{sq.Eq{"id": id}, sq.Eq{"owner_user_id": owner}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build deactivate contact: %w", err)
	}

	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deactivate contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrContactNotFound
	}
	return nil
}
