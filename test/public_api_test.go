package test

import (
	"context"
	"net/http"
	"testing"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/httpapi"
	"github.com/MrEthical07/goAlert/middleware"
	"github.com/MrEthical07/goAlert/notify"
	"github.com/MrEthical07/goAlert/phi"
)

// This test guards public API compile-compat for consumers.
func TestPublicAPISurfaceCompile(t *testing.T) {
	_ = goalert.New

	var _ *goalert.Engine
	var _ goalert.Config
	var _ goalert.DeliveryResult
	var _ goalert.DeliveryOutcome
	var _ goalert.SupportContact
	var _ goalert.ContactProvider
	var _ goalert.Authority
	var _ goalert.SMSSender
	var _ goalert.EmailSender
	var _ goalert.AuditSink
	var _ goalert.SecurityEventWriter

	var _ error = goalert.ErrValidation
	var _ error = goalert.ErrRateLimited
	var _ error = goalert.ErrUnauthorized
	var _ error = goalert.ErrNoRecipients
	var _ error = goalert.ErrNotificationNotFound
	var _ error = goalert.ErrCrypto

	var _ goalert.Authority = (*goalert.LocalAuthority)(nil)
	var _ httpapi.Service = (*goalert.Engine)(nil)

	var _ func(middleware.TokenVerifier) func(http.Handler) http.Handler = middleware.Guard
	var _ func(httpapi.Config) http.Handler = httpapi.NewRouter

	var _ func(*goalert.Engine, context.Context, goalert.CrisisAlertRequest) (goalert.DeliveryResult, error) = (*goalert.Engine).SendCrisisAlert
	var _ func(*goalert.Engine, context.Context, goalert.SupportMessageRequest) (goalert.DeliveryResult, error) = (*goalert.Engine).SendSupportMessage
	var _ func(*goalert.Engine, context.Context, string, string) (goalert.Notification, error) = (*goalert.Engine).MarkNotificationRead
	var _ func(*goalert.Engine, context.Context, string, notify.ListOptions) ([]goalert.Notification, error) = (*goalert.Engine).ListNotifications
	var _ func(*goalert.Engine, context.Context, string, phi.Secret) (string, error) = (*goalert.Engine).StartPHISession
	var _ func(*goalert.Engine, context.Context, string, string) (string, error) = (*goalert.Engine).EncryptPHI
}
