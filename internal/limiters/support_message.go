package limiters

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goAlert/internal/rate"
)

const (
	defaultSupportMaxMessages = 10
	defaultSupportWindow      = 15 * time.Minute
)

var (
	ErrSupportMessageRateLimited = errors.New("support message rate limited")
	ErrSupportMessageUnavailable = errors.New("support message limiter unavailable")
)

// SupportMessageLimiterConfig holds thresholds for peer-support messages.
type SupportMessageLimiterConfig struct {
	MaxMessages int
	Window      time.Duration
}

// SupportMessageLimiter caps support messages per user in a sliding window.
type SupportMessageLimiter struct {
	limiter     *rate.Limiter
	maxMessages int
	window      time.Duration
}

// NewSupportMessageLimiter creates a support message limiter. Zero-value
// fields in cfg fall back to defaults (10 messages / 15 min).
func NewSupportMessageLimiter(limiter *rate.Limiter, cfg SupportMessageLimiterConfig) *SupportMessageLimiter {
	max := cfg.MaxMessages
	if max <= 0 {
		max = defaultSupportMaxMessages
	}
	w := cfg.Window
	if w <= 0 {
		w = defaultSupportWindow
	}
	return &SupportMessageLimiter{limiter: limiter, maxMessages: max, window: w}
}

func (l *SupportMessageLimiter) key(userID string) string {
	return "sm:" + userID
}

// Allow consumes one unit for userID.
func (l *SupportMessageLimiter) Allow(ctx context.Context, userID string) error {
	if l == nil || l.limiter == nil {
		return ErrSupportMessageUnavailable
	}
	return mapRateErr(l.limiter.Allow(ctx, l.key(userID), l.maxMessages, l.window),
		ErrSupportMessageRateLimited, ErrSupportMessageUnavailable)
}
