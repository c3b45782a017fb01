package store

import (
	"errors"
	"testing"

	goalert "github.com/MrEthical07/goAlert"
)

func TestPrepareContactNormalizes(t *testing.T) {
	c, err := PrepareContact("u1", goalert.SupportContact{Name: "  Sam ", PhoneNumber: "(555) 010-0001"})
	if err != nil {
		t.Fatalf("PrepareContact: %v", err)
	}
	if c.OwnerUserID != "u1" || c.Name != "Sam" || c.PhoneNumber != "+15550100001" {
		t.Fatalf("unexpected contact: %+v", c)
	}
}

func TestPrepareContactRejects(t *testing.T) {
	cases := []struct {
		name  string
		owner string
		in    goalert.SupportContact
		want  error
	}{
		{"no owner", "", goalert.SupportContact{Name: "a", PhoneNumber: "5550100001"}, goalert.ErrUnauthorized},
		{"foreign owner", "u1", goalert.SupportContact{OwnerUserID: "u2", Name: "a", PhoneNumber: "5550100001"}, ErrContactNotFound},
		{"no name", "u1", goalert.SupportContact{PhoneNumber: "5550100001"}, goalert.ErrValidation},
		{"bad phone", "u1", goalert.SupportContact{Name: "a", PhoneNumber: "12"}, goalert.ErrValidation},
		{"bad email", "u1", goalert.SupportContact{Name: "a", PhoneNumber: "5550100001", Email: "nope"}, ErrInvalidContact},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := PrepareContact(tc.owner, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
