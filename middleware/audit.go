package middleware

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/blogem/fyers-login/flowctx"
)

// CallbackAudit records every request reaching the callback listener at
// debug level. Parameter values are never logged; the auth code is a credential.
func CallbackAudit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		slog.DebugContext(r.Context(), "Callback request",
			"flow_id", flowctx.GetFlowID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"params", captureQueryKeys(r),
			"status", ww.Status(),
			"ip", getIPAddress(r),
			"user_agent", r.UserAgent(),
			"duration", time.Since(start))
	})
}

// getIPAddress extracts IP address from request, checking X-Forwarded-For first
func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header (proxy/load balancer)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// Take first IP if multiple
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	// Check X-Real-IP header
	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	// Remove port if present
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// captureQueryKeys returns the sorted query parameter names
func captureQueryKeys(r *http.Request) []string {
	query := r.URL.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
