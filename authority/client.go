package authority

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	goalert "github.com/MrEthical07/goAlert"
)

var (
	// ErrNotConfigured is returned by New when BaseURL or ServiceKey is missing.
	ErrNotConfigured = fmt.Errorf("%w: authority endpoint missing", goalert.ErrNotConfigured)
	// ErrUnavailable wraps every failure to obtain an answer from the backend.
	ErrUnavailable = fmt.Errorf("%w: remote authority", goalert.ErrAuthorityUnavailable)
)

const (
	rpcCheckRateLimit  = "/rpc/check_rate_limit"
	rpcValidateInput   = "/rpc/validate_input"
	rpcVerifyOwnership = "/rpc/verify_contact_ownership"
)

// Config configures the RPC client.
type Config struct {
	BaseURL    string
	ServiceKey string
	Timeout    time.Duration
	RetryCount int
}

// Client calls the trusted backend's RPC endpoints.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

var _ goalert.Authority = (*Client)(nil)

type rateLimitArgs struct {
	UserID        string `json:"p_user_id"`
	Operation     string `json:"p_operation"`
	MaxOperations int    `json:"p_max_operations"`
	WindowMinutes int    `json:"p_window_minutes"`
}

type validateArgs struct {
	Phone   string `json:"p_phone"`
	Message string `json:"p_message"`
	UserID  string `json:"p_user_id"`
}

type ownershipArgs struct {
	UserID string `json:"p_user_id"`
	Phone  string `json:"p_phone"`
}

type rpcError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// New returns a Client for cfg.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.ServiceKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetHeader("apikey", cfg.ServiceKey).
		SetAuthToken(cfg.ServiceKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}, nil
}

// CheckRateLimit asks the backend whether userID may perform operation.
// The window is sent in whole minutes, rounded up.
func (c *Client) CheckRateLimit(ctx context.Context, userID, operation string, maxOps int, window time.Duration) (bool, error) {
	if userID == "" {
		return false, goalert.ErrUnauthorized
	}
	args := rateLimitArgs{
		UserID:        userID,
		Operation:     operation,
		MaxOperations: maxOps,
		WindowMinutes: int(math.Ceil(window.Minutes())),
	}
	var allowed bool
	if err := c.call(ctx, rpcCheckRateLimit, args, &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// ValidateInput asks the backend to validate and sanitize message and phone.
func (c *Client) ValidateInput(ctx context.Context, userID, phone, message string) (goalert.InputValidation, error) {
	var out goalert.InputValidation
	if err := c.call(ctx, rpcValidateInput, validateArgs{Phone: phone, Message: message, UserID: userID}, &out); err != nil {
		return goalert.InputValidation{}, err
	}
	return out, nil
}

// VerifyContactOwnership asks the backend whether phone is an active
// contact of userID.
func (c *Client) VerifyContactOwnership(ctx context.Context, userID, phone string) (bool, error) {
	if userID == "" {
		return false, goalert.ErrUnauthorized
	}
	var owned bool
	if err := c.call(ctx, rpcVerifyOwnership, ownershipArgs{UserID: userID, Phone: phone}, &owned); err != nil {
		return false, err
	}
	return owned, nil
}

func (c *Client) call(ctx context.Context, path string, args, result any) error {
	var apiErr rpcError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(args).
		SetResult(result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, ctx.Err())
		}
		c.logger.Warn("authority rpc failed", zap.String("rpc", path), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", goalert.ErrUnauthorized, path)
	default:
		c.logger.Warn("authority rpc rejected",
			zap.String("rpc", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", apiErr.Code),
		)
		return fmt.Errorf("%w: %s: status %d", ErrUnavailable, path, resp.StatusCode())
	}
}
