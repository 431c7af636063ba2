package authenticator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	authCodePath       = "/generate-authcode"
	validateCodePath   = "/validate-authcode"
	defaultHTTPTimeout = 30 * time.Second
)

// FyersProvider implements the Provider interface for the Fyers v3 API
type FyersProvider struct {
	config     oauth2.Config
	httpClient HTTPDoer
	grantType  string
}

// FyersConfig holds Fyers-specific configuration
type FyersConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	APIBaseURL   string
	GrantType    string
	HTTPClient   HTTPDoer
}

// fyersTokenRequest is the validate-authcode request body
type fyersTokenRequest struct {
	GrantType string `json:"grant_type"`
	AppIDHash string `json:"appIdHash"`
	Code      string `json:"code"`
}

// fyersTokenResponse is the validate-authcode response body
type fyersTokenResponse struct {
	S            string `json:"s"`
	Code         int    `json:"code"`
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// NewFyersProvider creates a new Fyers provider with the given configuration
func NewFyersProvider(cfg FyersConfig) (*FyersProvider, error) {
	// Validate required configuration
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.CallbackURL == "" {
		return nil, errors.New("callback URL is required")
	}
	if cfg.APIBaseURL == "" {
		return nil, errors.New("API base URL is required")
	}
	if cfg.GrantType == "" {
		cfg.GrantType = "authorization_code"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	base := strings.TrimSuffix(cfg.APIBaseURL, "/")
	conf := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.CallbackURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  base + authCodePath,
			TokenURL: base + validateCodePath,
		},
	}

	return &FyersProvider{
		config:     conf,
		httpClient: cfg.HTTPClient,
		grantType:  cfg.GrantType,
	}, nil
}

// GetAuthURL returns the broker login URL; response_type is always "code"
func (p *FyersProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ExchangeCode exchanges an authorization code for tokens
func (p *FyersProvider) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	body, err := json.Marshal(fyersTokenRequest{
		GrantType: p.grantType,
		AppIDHash: appIDHash(p.config.ClientID, p.config.ClientSecret),
		Code:      code,
	})
	if err != nil {
		return nil, &ExchangeError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, &ExchangeError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ExchangeError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExchangeError{Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	var parsed fyersTokenResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ExchangeError{Status: resp.StatusCode, Response: raw, Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK || parsed.S == "error" {
		msg := parsed.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ExchangeError{Status: resp.StatusCode, Response: raw, Err: fmt.Errorf("broker rejected code: %s", msg)}
	}

	if parsed.AccessToken == "" {
		return nil, &ExchangeError{Status: resp.StatusCode, Response: raw, Err: ErrMissingAccessToken}
	}

	return &Token{
		AccessToken:  parsed.AccessToken,
		RefreshToken: parsed.RefreshToken,
		Raw:          raw,
	}, nil
}

// appIDHash is the hex SHA-256 of "client_id:secret" the broker expects
func appIDHash(clientID, secret string) string {
	sum := sha256.Sum256([]byte(clientID + ":" + secret))
	return hex.EncodeToString(sum[:])
}
