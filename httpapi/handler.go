package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/middleware"
	"github.com/MrEthical07/goAlert/notify"
)

// Service is the engine surface used by the handlers. *goalert.Engine
// satisfies it.
type Service interface {
	SendSupportMessage(ctx context.Context, req goalert.SupportMessageRequest) (goalert.DeliveryResult, error)
	SendCrisisAlert(ctx context.Context, req goalert.CrisisAlertRequest) (goalert.DeliveryResult, error)
	SendSupportNotification(ctx context.Context, senderID, recipientID, title, message string, priority goalert.NotificationPriority) (goalert.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, opts notify.ListOptions) ([]goalert.Notification, error)
	MarkNotificationRead(ctx context.Context, recipientID, notificationID string) (goalert.Notification, error)
	Subscribe(recipientID string) (*notify.Subscription, error)
}

// ContactManager is the owner-scoped contact store used by /contacts.
type ContactManager interface {
	goalert.ContactProvider
	Create(ctx context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error)
	Update(ctx context.Context, owner string, c goalert.SupportContact) (goalert.SupportContact, error)
	Deactivate(ctx context.Context, owner, id string) error
}

// Config wires the router. Contacts, Metrics and Health are optional.
type Config struct {
	Service    Service
	Verifier   middleware.TokenVerifier
	Contacts   ContactManager
	Metrics    http.Handler
	Health     func(ctx context.Context) error
	Logger     *zap.Logger
	CORS       middleware.CORSConfig
	TrustProxy bool
}

// Handler serves the API.
type Handler struct {
	svc      Service
	contacts ContactManager
	log      *zap.Logger
}

// NewRouter returns the full middleware-wrapped API.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{svc: cfg.Service, contacts: cfg.Contacts, log: log}
	guard := middleware.Guard(cfg.Verifier)

	mux := http.NewServeMux()
	mux.Handle("POST /send-support-message", guard(http.HandlerFunc(h.sendSupportMessage)))
	mux.Handle("POST /crisis-alert", guard(http.HandlerFunc(h.crisisAlert)))
	mux.Handle("GET /notifications", guard(http.HandlerFunc(h.listNotifications)))
	mux.Handle("POST /notifications", guard(http.HandlerFunc(h.createNotification)))
	mux.Handle("POST /notifications/{id}/read", guard(http.HandlerFunc(h.markRead)))
	mux.Handle("GET /notifications/stream", guard(http.HandlerFunc(h.stream)))
	if cfg.Contacts != nil {
		mux.Handle("GET /contacts", guard(http.HandlerFunc(h.listContacts)))
		mux.Handle("POST /contacts", guard(http.HandlerFunc(h.createContact)))
		mux.Handle("PUT /contacts/{id}", guard(http.HandlerFunc(h.updateContact)))
		mux.Handle("DELETE /contacts/{id}", guard(http.HandlerFunc(h.deactivateContact)))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				log.Warn("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", cfg.Metrics)
	}

	corsCfg := cfg.CORS
	if len(corsCfg.AllowedOrigins) == 0 {
		corsCfg = middleware.DefaultCORSConfig()
	}
	return middleware.Chain(mux,
		middleware.Recover(log),
		middleware.RequestLogger(log),
		middleware.CORS(corsCfg),
		middleware.ClientInfo(cfg.TrustProxy),
	)
}

func userID(r *http.Request) string {
	id, _ := goalert.UserIDFromContext(r.Context())
	return id
}

func senderName(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	if c, ok := middleware.ClaimsFromContext(r.Context()); ok && c.Name != "" {
		return c.Name
	}
	return ""
}
