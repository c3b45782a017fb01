package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig lists allowed origins; "*" allows any.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods string
	AllowedHeaders string
	MaxAge         int
}

// DefaultCORSConfig is the permissive policy browser clients use for the
// send endpoints.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: "GET, POST, PUT, DELETE, OPTIONS",
		AllowedHeaders: "authorization, x-client-info, apikey, content-type",
		MaxAge:         86400,
	}
}

// CORS sets origin headers and answers OPTIONS preflight with 204.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if allowed, wildcard := isAllowedOrigin(origin, cfg.AllowedOrigins); allowed {
				if wildcard {
					w.Header().Set("Access-Control-Allow-Origin", "*")
				} else {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", cfg.AllowedMethods)
				w.Header().Set("Access-Control-Allow-Headers", cfg.AllowedHeaders)
				if cfg.MaxAge > 0 {
					w.Header().Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAge))
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAllowedOrigin(origin string, allowed []string) (ok, wildcard bool) {
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "*" {
			return true, true
		}
		if origin != "" && a == origin {
			return true, false
		}
	}
	return false, false
}
