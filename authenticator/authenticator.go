package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMissingAccessToken is returned when the exchange response has no access_token
var ErrMissingAccessToken = errors.New("response has no access_token field")

// Token represents an authentication token
type Token struct {
	AccessToken  string
	RefreshToken string
	// Raw is the full response payload
	Raw json.RawMessage
}

// Provider interface abstracts the broker's session model
type Provider interface {
	GetAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*Token, error)
}

// HTTPDoer is the subset of *http.Client used for the token exchange
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExchangeError describes a failed authorization code exchange
type ExchangeError struct {
	// Status is the HTTP status, 0 when no response was received
	Status int
	// Response is the raw body, nil when no response was received
	Response []byte
	Err      error
}

func (e *ExchangeError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed (HTTP %d): %v", e.Status, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}

// HasResponse reports whether a response body was received
func (e *ExchangeError) HasResponse() bool {
	return e.Response != nil
}
