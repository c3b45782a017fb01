package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAlert/internal/rate"
)

const (
	defaultCrisisMaxAlerts = 3
	defaultCrisisWindow    = 5 * time.Minute
)

var (
	ErrCrisisAlertRateLimited = errors.New("crisis alert rate limited")
	ErrCrisisAlertUnavailable = errors.New("crisis alert limiter unavailable")
)

// CrisisAlertLimiterConfig holds configurable thresholds for the crisis alert limiter.
type CrisisAlertLimiterConfig struct {
	MaxAlerts int
	Window    time.Duration
}

// CrisisAlertLimiter caps crisis alerts per user in a sliding window.
type CrisisAlertLimiter struct {
	limiter   *rate.Limiter
	maxAlerts int
	window    time.Duration
}

// NewCrisisAlertLimiter creates a crisis alert limiter. Zero-value fields in
// cfg fall back to defaults (3 alerts / 5 min).
func NewCrisisAlertLimiter(limiter *rate.Limiter, cfg CrisisAlertLimiterConfig) *CrisisAlertLimiter {
	max := cfg.MaxAlerts
	if max <= 0 {
		max = defaultCrisisMaxAlerts
	}
	w := cfg.Window
	if w <= 0 {
		w = defaultCrisisWindow
	}
	return &CrisisAlertLimiter{limiter: limiter, maxAlerts: max, window: w}
}

func (l *CrisisAlertLimiter) key(userID string) string {
	return "ca:" + userID
}

// Allow consumes one alert unit for userID.
func (l *CrisisAlertLimiter) Allow(ctx context.Context, userID string) error {
	if l == nil || l.limiter == nil {
		return ErrCrisisAlertUnavailable
	}
	return mapRateErr(l.limiter.Allow(ctx, l.key(userID), l.maxAlerts, l.window),
		ErrCrisisAlertRateLimited, ErrCrisisAlertUnavailable)
}

// Reset clears userID's window.
func (l *CrisisAlertLimiter) Reset(ctx context.Context, userID string) error {
	if l == nil || l.limiter == nil {
		return ErrCrisisAlertUnavailable
	}
	if err := l.limiter.Reset(ctx, l.key(userID)); err != nil {
		return fmt.Errorf("%w: %v", ErrCrisisAlertUnavailable, err)
	}
	return nil
}

// Policy reports the effective thresholds.
func (l *CrisisAlertLimiter) Policy() (int, time.Duration) {
	if l == nil {
		return defaultCrisisMaxAlerts, defaultCrisisWindow
	}
	return l.maxAlerts, l.window
}

func mapRateErr(err, limited, unavailable error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, rate.ErrRateLimited):
		return limited
	default:
		return fmt.Errorf("%w: %v", unavailable, err)
	}
}
