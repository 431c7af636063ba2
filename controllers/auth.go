package controllers

import (
	"log/slog"
	"net/http"

	"github.com/blogem/fyers-login/flowctx"
	"github.com/blogem/fyers-login/models"
)

const (
	// SuccessBody is served once a valid callback has been received
	SuccessBody = "<h2>Authorization successful. You may close this tab.</h2>"
	// InvalidParamsBody is served for a missing code or a state mismatch
	InvalidParamsBody = "Error: Invalid or missing authorization parameters."
)

type AuthController struct {
	state   string
	session *models.Session
}

func NewAuthController(state string, session *models.Session) *AuthController {
	return &AuthController{
		state:   state,
		session: session,
	}
}

// Callback handles the redirect from the broker login page. onSuccess runs
// after the success response has been written.
func (ac *AuthController) Callback(onSuccess func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		authCode := query.Get("auth_code")
		state := query.Get("state")

		// Verify code and state
		if authCode == "" || state != ac.state {
			slog.DebugContext(r.Context(), "Rejected authorization callback",
				"flow_id", flowctx.GetFlowID(r.Context()),
				"has_code", authCode != "",
				"state_match", state == ac.state)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(InvalidParamsBody))
			return
		}

		if !ac.session.SetAuthCode(authCode) {
			slog.DebugContext(r.Context(), "Authorization code already received, ignoring duplicate",
				"flow_id", flowctx.GetFlowID(r.Context()))
		}

		w.Header().Set("Content-type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(SuccessBody))

		if onSuccess != nil {
			onSuccess()
		}
	}
}
