package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/notify"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var heartbeatInterval = 25 * time.Second

type createNotificationRequest struct {
	RecipientID string `json:"recipientId"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Priority    string `json:"priority,omitempty"`
}

type notificationResponse struct {
	Success      bool                 `json:"success"`
	Notification goalert.Notification `json:"notification"`
}

type notificationListResponse struct {
	Success       bool                   `json:"success"`
	Notifications []goalert.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

func (h *Handler) listNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := notify.ListOptions{Limit: defaultListLimit}
	if v := q.Get("unread"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: unread", goalert.ErrValidation))
			return
		}
		opts.UnreadOnly = b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.writeError(w, r, fmt.Errorf("%w: limit", goalert.ErrValidation))
			return
		}
		opts.Limit = min(n, maxListLimit)
	}

	list, err := h.svc.ListNotifications(r.Context(), userID(r), opts)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []goalert.Notification{}
	}
	unread := 0
	for _, n := range list {
		if !n.Read() {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, notificationListResponse{Success: true, Notifications: list, UnreadCount: unread})
}

func (h *Handler) createNotification(w http.ResponseWriter, r *http.Request) {
	var body createNotificationRequest
	if err := decodeBody(w, r, &body); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.SendSupportNotification(r.Context(), userID(r), body.RecipientID, body.Title, body.Message, goalert.NotificationPriority(body.Priority))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, notificationResponse{Success: true, Notification: n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkNotificationRead(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationResponse{Success: true, Notification: n})
}

// stream writes the caller's notification events as server-sent events
// until the client disconnects or the hub closes the subscription.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Subscribe(userID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	if err := rc.Flush(); err != nil {
		h.log.Warn("notification stream not flushable", zap.Error(err))
		return
	}

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				h.log.Warn("encode notification event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", ev.Kind, ev.Notification.ID, payload)
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
