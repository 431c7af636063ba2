package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/blogem/fyers-login/flowctx"
)

// QuietRecoverer turns a handler panic into a 500 without writing a stack
// trace to stderr. Like chi's Recoverer it re-panics http.ErrAbortHandler.
func QuietRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			slog.DebugContext(r.Context(), "Recovered callback handler panic",
				"flow_id", flowctx.GetFlowID(r.Context()),
				"panic", rvr,
				"stack", string(debug.Stack()))

			if r.Header.Get("Connection") != "Upgrade" {
				w.WriteHeader(http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
