package goAlert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goAlert/internal/limiters"
	"github.com/MrEthical07/goAlert/internal/rate"
	"github.com/MrEthical07/goAlert/internal/validate"
)

// LocalAuthorityConfig configures [NewLocalAuthority].
type LocalAuthorityConfig struct {
	RateLimit  RateLimitConfig
	Validation ValidationConfig
	// Now overrides the limiter clock.
	Now func() time.Time
}

// LocalAuthority answers authority RPCs in-process: Redis sliding windows
// for rate limits, the message validator, and the ContactProvider for
// ownership. It is the implementation used when the engine itself is the
// trusted backend.
type LocalAuthority struct {
	limiter   *rate.Limiter
	crisis    *limiters.CrisisAlertLimiter
	support   *limiters.SupportMessageLimiter
	validator *validate.Validator
	contacts  ContactProvider
}

// NewLocalAuthority wires a LocalAuthority. A nil redis client leaves every
// rate limit unavailable, which denies the operation.
func NewLocalAuthority(client redis.UniversalClient, contacts ContactProvider, cfg LocalAuthorityConfig) *LocalAuthority {
	a := &LocalAuthority{
		validator: validate.New(validate.Config{
			MaxMessageLength: cfg.Validation.MaxMessageLength,
			MaxRepeatedRun:   cfg.Validation.MaxRepeatedRun,
		}),
		contacts: contacts,
	}
	if client != nil {
		a.limiter = rate.New(client, rate.Config{KeyPrefix: cfg.RateLimit.RedisPrefix, Now: cfg.Now})
		a.crisis = limiters.NewCrisisAlertLimiter(a.limiter, limiters.CrisisAlertLimiterConfig{
			MaxAlerts: cfg.RateLimit.CrisisAlertMax,
			Window:    cfg.RateLimit.CrisisAlertWindow,
		})
		a.support = limiters.NewSupportMessageLimiter(a.limiter, limiters.SupportMessageLimiterConfig{
			MaxMessages: cfg.RateLimit.SupportMessageMax,
			Window:      cfg.RateLimit.SupportMessageWindow,
		})
	}
	return a
}

// CheckRateLimit consumes one unit of operation for userID. Known
// operations use the server-side policy and ignore maxOps and window.
func (a *LocalAuthority) CheckRateLimit(ctx context.Context, userID, operation string, maxOps int, window time.Duration) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}

	var err error
	switch operation {
	case OperationCrisisAlert:
		err = a.crisis.Allow(ctx, userID)
	case OperationSupportMessage:
		if a.support == nil {
			err = limiters.ErrSupportMessageUnavailable
		} else {
			err = a.support.Allow(ctx, userID)
		}
	default:
		if a.limiter == nil {
			err = rate.ErrRedisUnavailable
		} else {
			err = a.limiter.Allow(ctx, operation+":"+userID, maxOps, window)
		}
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, limiters.ErrCrisisAlertRateLimited),
		errors.Is(err, limiters.ErrSupportMessageRateLimited),
		errors.Is(err, rate.ErrRateLimited):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}
}

// ResetRateLimit clears the crisis alert window of userID.
func (a *LocalAuthority) ResetRateLimit(ctx context.Context, userID string) error {
	if err := a.crisis.Reset(ctx, userID); err != nil {
		return fmt.Errorf("%w: %v", ErrRateLimitUnavailable, err)
	}
	return nil
}

// ValidateInput runs the message validator. It never fails.
func (a *LocalAuthority) ValidateInput(_ context.Context, _ string, phone, message string) (InputValidation, error) {
	res := a.validator.Validate(message, phone)
	return InputValidation{
		IsValid:          res.Valid,
		Suspicious:       res.Suspicious,
		SanitizedMessage: res.SanitizedMessage,
		CleanPhone:       res.CleanPhone,
		Errors:           res.Reasons,
	}, nil
}

// VerifyContactOwnership delegates to the ContactProvider.
func (a *LocalAuthority) VerifyContactOwnership(ctx context.Context, userID, phone string) (bool, error) {
	if a.contacts == nil {
		return false, ErrNotConfigured
	}
	if userID == "" {
		return false, ErrUnauthorized
	}
	owned, err := a.contacts.VerifyOwnership(ctx, userID, phone)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrAuthorityUnavailable, err)
	}
	return owned, nil
}
