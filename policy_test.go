package goAlert

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

func TestClassifyCoversEverySentinel(t *testing.T) {
	cases := []struct {
		err    error
		class  ErrorClass
		status int
	}{
		{nil, ClassNone, http.StatusOK},
		{ErrValidation, ClassValidation, http.StatusBadRequest},
		{ErrSuspiciousInput, ClassValidation, http.StatusBadRequest},
		{ErrBatchTooLarge, ClassValidation, http.StatusBadRequest},
		{ErrRateLimited, ClassRateLimit, http.StatusTooManyRequests},
		{ErrRateLimitUnavailable, ClassRateLimit, http.StatusTooManyRequests},
		{ErrUnauthorized, ClassAuthorization, http.StatusUnauthorized},
		{ErrNotConfigured, ClassConfiguration, http.StatusInternalServerError},
		{ErrNoRecipients, ClassNoRecipients, http.StatusBadRequest},
		{phi.ErrDecryption, ClassCrypto, http.StatusInternalServerError},
		{notify.ErrNotFound, ClassNotFound, http.StatusNotFound},
		{ErrAuthorityUnavailable, ClassUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), ClassInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		wrapped := tc.err
		if tc.err != nil {
			wrapped = fmt.Errorf("ctx: %w", tc.err)
		}
		if got := Classify(wrapped); got != tc.class {
			t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.class)
		}
		if got := PolicyForError(wrapped).HTTPStatus; got != tc.status {
			t.Fatalf("status(%v) = %d, want %d", tc.err, got, tc.status)
		}
	}
}

func TestPerRecipientClassesNeverShortCircuit(t *testing.T) {
	for _, c := range []ErrorClass{ClassOwnership, ClassTransport} {
		p := PolicyFor(c)
		if !p.PerRecipient || p.ShortCircuit {
			t.Fatalf("%s must be per-recipient only, got %+v", c, p)
		}
	}
}

func TestPublicMessageDistinguishesLimiterOutage(t *testing.T) {
	if PublicMessage(ErrRateLimitUnavailable) == PublicMessage(ErrRateLimited) {
		t.Fatalf("limiter outage must be reported distinctly")
	}
	if PublicMessage(fmt.Errorf("wrap: %w", errors.New("db password=hunter2"))) != "internal error" {
		t.Fatalf("internal errors must not leak detail")
	}
}

func TestDeliveryResultDelivered(t *testing.T) {
	if (DeliveryResult{Success: true, TotalContacts: 2}).Delivered() {
		t.Fatalf("zero notified contacts must never read as delivered")
	}
	r := DeliveryResult{Success: true, ContactsNotified: 1, TotalContacts: 2}
	if !r.Delivered() || !r.Partial() {
		t.Fatalf("expected delivered partial result")
	}
}
