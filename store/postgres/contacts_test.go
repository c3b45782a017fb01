package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/store"
)

func TestContactsListActive(t *testing.T) {
	mock := newMock(t)
	rows := pgxmock.NewRows([]string{"id", "owner_user_id", "name", "phone_number", "email", "relationship", "is_active"}).
		AddRow("c1", "u1", "Ana", "+15550100001", "ana@example.com", "sister", true).
		AddRow("c2", "u1", "Ben", "+15550100002", "", "", true)
	mock.ExpectQuery(`SELECT .+ FROM support_contacts WHERE \(owner_user_id = \$1 AND is_active = \$2\) ORDER BY created_at ASC`).
		WithArgs("u1", true).
		WillReturnRows(rows)

	got, err := NewContacts(mock).ListActiveContacts(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, goalert.SupportContact{
		ID: "c1", OwnerUserID: "u1", Name: "Ana", PhoneNumber: "+15550100001",
		Email: "ana@example.com", Relationship: "sister", IsActive: true,
	}, got[0])
	assert.Empty(t, got[1].Email)
}

func TestContactsListQueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT .+ FROM support_contacts`).
		WithArgs("u1", true).
		WillReturnError(errors.New("connection reset"))

	_, err := NewContacts(mock).ListActiveContacts(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list contacts")
}

func TestContactsVerifyOwnership(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT EXISTS \(\s*SELECT 1 FROM support_contacts WHERE`).
		WithArgs("u1", "+15550100001", true).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	owned, err := NewContacts(mock).VerifyOwnership(context.Background(), "u1", "+15550100001")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestContactsCreateNormalizesPhone(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO support_contacts`).
		WithArgs(pgxmock.AnyArg(), "u1", "Ana", "+15550100001", pgxmock.AnyArg(), pgxmock.AnyArg(), true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	c, err := NewContacts(mock).Create(context.Background(), "u1", goalert.SupportContact{Name: "Ana", PhoneNumber: "(555) 010-0001"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.True(t, c.IsActive)
	assert.Equal(t, "+15550100001", c.PhoneNumber)
}

func TestContactsCreateInvalidSkipsDatabase(t *testing.T) {
	mock := newMock(t)
	_, err := NewContacts(mock).Create(context.Background(), "u1", goalert.SupportContact{Name: "Ana", PhoneNumber: "12"})
	require.ErrorIs(t, err, goalert.ErrValidation)
}

func TestContactsUpdateOwnerScoped(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE support_contacts SET .+ WHERE \(id = \$6 AND owner_user_id = \$7\) RETURNING is_active`).
		WithArgs("Ana B", "+15550100001", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "c1", "u2").
		WillReturnError(pgx.ErrNoRows)

	_, err := NewContacts(mock).Update(context.Background(), "u2", goalert.SupportContact{ID: "c1", Name: "Ana B", PhoneNumber: "5550100001"})
	require.ErrorIs(t, err, store.ErrContactNotFound)
}

func TestContactsUpdateReturnsActiveFlag(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE support_contacts SET`).
		WithArgs("Ana B", "+15550100001", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "c1", "u1").
		WillReturnRows(pgxmock.NewRows([]string{"is_active"}).AddRow(false))

	c, err := NewContacts(mock).Update(context.Background(), "u1", goalert.SupportContact{ID: "c1", Name: "Ana B", PhoneNumber: "5550100001"})
	require.NoError(t, err)
	assert.False(t, c.IsActive)
}

func TestContactsDeactivate(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{name: "owned", affected: 1},
		{name: "not owned", affected: 0, wantErr: store.ErrContactNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			mock.ExpectExec(`UPDATE support_contacts SET is_active = \$1, updated_at = \$2 WHERE \(id = \$3 AND owner_user_id = \$4\)`).
				WithArgs(false, pgxmock.AnyArg(), "c1", "u1").
				WillReturnResult(pgxmock.NewResult("UPDATE", tt.affected))

			err := NewContacts(mock).Deactivate(context.Background(), "u1", "c1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}
