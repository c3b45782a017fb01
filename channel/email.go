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

const defaultSendGridBaseURL = "https://api.sendgrid.com"

// EmailConfig holds SendGrid-compatible gateway credentials.
type EmailConfig struct {
	BaseURL   string
	APIKey    string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

type mailError struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// Email sends plain-text mail through the v3 mail/send endpoint.
type Email struct {
	http   *resty.Client
	cfg    EmailConfig
	logger *zap.Logger
}

// NewEmail returns an Email gateway, or ErrNotConfigured when credentials are missing.
func NewEmail(cfg EmailConfig, logger *zap.Logger) (*Email, error) {
	if cfg.APIKey == "" || cfg.FromEmail == "" {
		return nil, ErrNotConfigured
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultSendGridBaseURL
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
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Email{http: client, cfg: cfg, logger: logger}, nil
}

// SendEmail sends one message and returns the provider's message id.
func (e *Email) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	req := mailRequest{
		Personalizations: []mailPersonalization{{To: []mailAddress{{Email: to}}}},
		From:             mailAddress{Email: e.cfg.FromEmail, Name: e.cfg.FromName},
		Subject:          subject,
		Content:          []mailContent{{Type: "text/plain", Value: body}},
	}

	var apiErr mailError
	resp, err := e.http.R().
		SetContext(ctx).
		SetBody(req).
		SetError(&apiErr).
		Post("/v3/mail/send")
	if err != nil {
		e.logger.Warn("email gateway unreachable", zap.String("to", phi.MaskEmail(to)), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if resp.StatusCode() != http.StatusAccepted {
		msg := ""
		if len(apiErr.Errors) > 0 {
			msg = apiErr.Errors[0].Message
		}
		e.logger.Warn("email gateway rejected message",
			zap.String("to", phi.MaskEmail(to)),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("provider_message", msg),
		)
		return "", fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
	}

	id := resp.Header().Get("X-Message-Id")
	if id == "" {
		return "", fmt.Errorf("%w: missing message id", ErrRejected)
	}
	return id, nil
}
