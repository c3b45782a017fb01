package middleware

import (
	"net"
	"net/http"
	"strings"

	goalert "github.com/MrEthical07/goAlert"
	"github.com/MrEthical07/goAlert/internal/device"
)

// ClientInfo attaches the client IP, User-Agent and parsed device to the
// request context for audit entries. X-Forwarded-For is honored only when
// trustProxy is set.
func ClientInfo(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			ctx := goalert.WithClientIP(r.Context(), ip)
			ctx = goalert.WithUserAgent(ctx, r.UserAgent())
			ctx = goalert.WithDeviceInfo(ctx, device.FromRequest(r, ip))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
