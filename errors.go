package goAlert

import (
	"errors"

	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

var (
	// ErrValidation reports unsafe or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrSuspiciousInput reports input rejected because it matched a dangerous pattern.
	ErrSuspiciousInput = errors.New("suspicious input")
	// ErrBatchTooLarge reports more contacts than Alert.MaxContactsPerAlert.
	ErrBatchTooLarge = errors.New("too many contacts in one alert")
	// ErrRateLimited reports an exhausted sliding window.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrRateLimitUnavailable reports an unreachable rate-limit backend. The
	// operation is denied.
	ErrRateLimitUnavailable = errors.New("rate limit unavailable")
	// ErrUnauthorized reports a missing or invalid caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrContactNotOwned reports a destination outside the caller's support network.
	ErrContactNotOwned = errors.New("contact not owned by caller")
	// ErrTransport reports a gateway that was unreachable or rejected the message.
	ErrTransport = errors.New("transport failure")
	// ErrNotConfigured reports missing channel-provider configuration.
	ErrNotConfigured = errors.New("delivery provider not configured")
	// ErrNoRecipients reports an empty active support network.
	ErrNoRecipients = errors.New("no recipients configured")
	// ErrAuthorityUnavailable reports an unreachable validation or ownership backend.
	ErrAuthorityUnavailable = errors.New("authority unavailable")
	// ErrEngineNotReady reports a nil or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNotificationsDisabled reports an engine built without a notifier.
	ErrNotificationsDisabled = errors.New("notifications not configured")
	// ErrPHISessionRequired reports a PHI operation without a live key session.
	ErrPHISessionRequired = errors.New("phi session required")
)

var (
	// ErrNotificationNotFound aliases [notify.ErrNotFound].
	ErrNotificationNotFound = notify.ErrNotFound
	// ErrCrypto aliases [phi.ErrCrypto].
	ErrCrypto = phi.ErrCrypto
)
