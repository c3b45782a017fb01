package goAlert

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

// ErrorClass is the taxonomy every error maps into.
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassValidation
	ClassRateLimit
	ClassAuthorization
	ClassOwnership
	ClassTransport
	ClassConfiguration
	ClassCrypto
	ClassNoRecipients
	ClassNotFound
	ClassUnavailable
	ClassInternal
)

// String returns the snake_case class name used in logs and events.
func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "none"
	case ClassValidation:
		return "validation"
	case ClassRateLimit:
		return "rate_limit"
	case ClassAuthorization:
		return "authorization"
	case ClassOwnership:
		return "ownership"
	case ClassTransport:
		return "transport"
	case ClassConfiguration:
		return "configuration"
	case ClassCrypto:
		return "crypto"
	case ClassNoRecipients:
		return "no_recipients"
	case ClassNotFound:
		return "not_found"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Policy is the single answer for how an error class behaves.
type Policy struct {
	Class ErrorClass
	// HTTPStatus is the status returned when the error reaches the caller.
	HTTPStatus int
	// ShortCircuit means the whole batch stops before any external side effect.
	ShortCircuit bool
	// PerRecipient means the error is reported inside DeliveryResult, never returned.
	PerRecipient bool
	// PublicMessage is safe to show to the caller.
	PublicMessage string
}

var policies = map[ErrorClass]Policy{
	ClassNone:          {Class: ClassNone, HTTPStatus: http.StatusOK},
	ClassValidation:    {Class: ClassValidation, HTTPStatus: http.StatusBadRequest, ShortCircuit: true, PublicMessage: "invalid request"},
	ClassRateLimit:     {Class: ClassRateLimit, HTTPStatus: http.StatusTooManyRequests, ShortCircuit: true, PublicMessage: "rate limit exceeded, please wait before trying again"},
	ClassAuthorization: {Class: ClassAuthorization, HTTPStatus: http.StatusUnauthorized, ShortCircuit: true, PublicMessage: "unauthorized"},
	ClassOwnership:     {Class: ClassOwnership, HTTPStatus: http.StatusOK, PerRecipient: true, PublicMessage: "unauthorized"},
	ClassTransport:     {Class: ClassTransport, HTTPStatus: http.StatusOK, PerRecipient: true, PublicMessage: "delivery failed"},
	ClassConfiguration: {Class: ClassConfiguration, HTTPStatus: http.StatusInternalServerError, ShortCircuit: true, PublicMessage: "delivery service is not configured"},
	ClassCrypto:        {Class: ClassCrypto, HTTPStatus: http.StatusInternalServerError, PublicMessage: "protected data unavailable"},
	ClassNoRecipients:  {Class: ClassNoRecipients, HTTPStatus: http.StatusBadRequest, ShortCircuit: true, PublicMessage: "no support contacts configured"},
	ClassNotFound:      {Class: ClassNotFound, HTTPStatus: http.StatusNotFound, PublicMessage: "not found"},
	ClassUnavailable:   {Class: ClassUnavailable, HTTPStatus: http.StatusServiceUnavailable, ShortCircuit: true, PublicMessage: "service temporarily unavailable"},
	ClassInternal:      {Class: ClassInternal, HTTPStatus: http.StatusInternalServerError, ShortCircuit: true, PublicMessage: "internal error"},
}

// Classify maps err to its class. Unknown errors are ClassInternal.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrSuspiciousInput),
		errors.Is(err, ErrBatchTooLarge),
		errors.Is(err, notify.ErrInvalid):
		return ClassValidation
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrRateLimitUnavailable):
		return ClassRateLimit
	case errors.Is(err, ErrUnauthorized):
		return ClassAuthorization
	case errors.Is(err, ErrContactNotOwned):
		return ClassOwnership
	case errors.Is(err, ErrTransport):
		return ClassTransport
	case errors.Is(err, ErrNotConfigured),
		errors.Is(err, ErrNotificationsDisabled):
		return ClassConfiguration
	case errors.Is(err, phi.ErrCrypto),
		errors.Is(err, ErrPHISessionRequired):
		return ClassCrypto
	case errors.Is(err, ErrNoRecipients):
		return ClassNoRecipients
	case errors.Is(err, notify.ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrAuthorityUnavailable):
		return ClassUnavailable
	default:
		return ClassInternal
	}
}

// PolicyFor returns the policy of class.
func PolicyFor(class ErrorClass) Policy {
	if p, ok := policies[class]; ok {
		return p
	}
	return policies[ClassInternal]
}

// PolicyForError is PolicyFor(Classify(err)).
func PolicyForError(err error) Policy {
	return PolicyFor(Classify(err))
}

// PublicMessage returns the caller-safe message for err. Rate-limit
// unavailability is reported distinctly so operators can tell it apart.
func PublicMessage(err error) string {
	if errors.Is(err, ErrRateLimitUnavailable) {
		return "rate limit unavailable, please try again shortly"
	}
	if errors.Is(err, ErrBatchTooLarge) {
		return ErrBatchTooLarge.Error()
	}
	return PolicyForError(err).PublicMessage
}
