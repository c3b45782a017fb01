package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/MrEthical07/goAlert/phi"
)

const defaultTwilioBaseURL = "https://api.twilio.com"

// SMSConfig holds Twilio-compatible gateway credentials.
type SMSConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
	RetryCount int
}

type twilioMessage struct {
	SID          string `json:"sid"`
	Status       string `json:"status"`
	ErrorCode    *int   `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// SMS sends text messages through the Messages endpoint.
type SMS struct {
	http   *resty.Client
	cfg    SMSConfig
	logger *zap.Logger
}

// NewSMS returns an SMS gateway, or ErrNotConfigured when credentials are missing.
func NewSMS(cfg SMSConfig, logger *zap.Logger) (*SMS, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultTwilioBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetHeader("Accept", "application/json")

	return &SMS{http: client, cfg: cfg, logger: logger}, nil
}

// SendSMS posts one message and returns the provider's message SID.
func (s *SMS) SendSMS(ctx context.Context, to, body string) (string, error) {
	var (
		msg    twilioMessage
		apiErr twilioError
	)
	resp, err := s.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"To":   to,
			"From": s.cfg.From,
			"Body": body,
		}).
		SetResult(&msg).
		SetError(&apiErr).
		Post("/2010-04-01/Accounts/" + s.cfg.AccountSID + "/Messages.json")
	if err != nil {
		s.logger.Warn("sms gateway unreachable", zap.String("to", phi.MaskPhone(to)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		s.logger.Warn("sms gateway rejected message",
			zap.String("to", phi.MaskPhone(to)),
			zap.Int("status_code", resp.StatusCode()),
			zap.Int("provider_code", apiErr.Code),
		)
		return "", fmt.Errorf("%w: status %d code %d", ErrRejected, resp.StatusCode(), apiErr.Code)
	}
	if msg.ErrorCode != nil || msg.Status == "failed" || msg.Status == "undelivered" {
		return "", fmt.Errorf("%w: message status %s", ErrRejected, msg.Status)
	}
	if msg.SID == "" {
		return "", fmt.Errorf("%w: missing message sid", ErrRejected)
	}

	s.logger.Debug("sms accepted", zap.String("to", phi.MaskPhone(to)), zap.String("sid", msg.SID))
	return msg.SID, nil
}
