package rate

import "errors"

var (
	// ErrRateLimited is returned when the attempt exceeds the window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable wraps backend failures. Callers must fail closed.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
