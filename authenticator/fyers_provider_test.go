package authenticator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDoer struct {
	err error
}

func (f *failingDoer) Do(req *http.Request) (*http.Response, error) {
	return nil, f.err
}

func newTestProvider(t *testing.T, baseURL string, doer HTTPDoer) *FyersProvider {
	t.Helper()
	p, err := NewFyersProvider(FyersConfig{
		ClientID:     "ABCD1234-100",
		ClientSecret: "s3cret",
		CallbackURL:  "http://127.0.0.1:8080/",
		APIBaseURL:   baseURL,
		HTTPClient:   doer,
	})
	require.NoError(t, err)
	return p
}

func TestNewFyersProvider_Validation(t *testing.T) {
	valid := FyersConfig{
		ClientID:     "ABCD1234-100",
		ClientSecret: "s3cret",
		CallbackURL:  "http://127.0.0.1:8080/",
		APIBaseURL:   "https://api-t1.fyers.in/api/v3",
	}

	tests := []struct {
		name    string
		mutate  func(c *FyersConfig)
		wantErr string
	}{
		{"missing client id", func(c *FyersConfig) { c.ClientID = "" }, "client ID is required"},
		{"missing secret", func(c *FyersConfig) { c.ClientSecret = "" }, "client secret is required"},
		{"missing callback", func(c *FyersConfig) { c.CallbackURL = "" }, "callback URL is required"},
		{"missing base url", func(c *FyersConfig) { c.APIBaseURL = "" }, "API base URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewFyersProvider(cfg)
			assert.EqualError(t, err, tt.wantErr)
		})
	}

	p, err := NewFyersProvider(valid)
	require.NoError(t, err)
	assert.Equal(t, "authorization_code", p.grantType)
	assert.NotNil(t, p.httpClient)
}

func TestFyersProvider_GetAuthURL(t *testing.T) {
	p := newTestProvider(t, "https://api-t1.fyers.in/api/v3/", nil)

	raw := p.GetAuthURL("authorize")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "api-t1.fyers.in", u.Host)
	assert.Equal(t, "/api/v3/generate-authcode", u.Path)

	q := u.Query()
	assert.Equal(t, "ABCD1234-100", q.Get("client_id"))
	assert.Equal(t, "http://127.0.0.1:8080/", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "authorize", q.Get("state"))
	assert.False(t, q.Has("client_secret"), "secret must not leak into the login URL")
}

func TestFyersProvider_ExchangeCode_Success(t *testing.T) {
	var got fyersTokenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/validate-authcode", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"s":"ok","code":200,"message":"","access_token":"tok_xyz","refresh_token":"ref_abc"}`))
	}))
	defer server.Close()

	p := newTestProvider(t, server.URL, server.Client())

	token, err := p.ExchangeCode(context.Background(), "ABC123")
	require.NoError(t, err)

	assert.Equal(t, "tok_xyz", token.AccessToken)
	assert.Equal(t, "ref_abc", token.RefreshToken)
	assert.JSONEq(t, `{"s":"ok","code":200,"message":"","access_token":"tok_xyz","refresh_token":"ref_abc"}`, string(token.Raw))

	assert.Equal(t, "authorization_code", got.GrantType)
	assert.Equal(t, "ABC123", got.Code)
	assert.Equal(t, appIDHash("ABCD1234-100", "s3cret"), got.AppIDHash)
	assert.Len(t, got.AppIDHash, 64)
}

func TestFyersProvider_ExchangeCode_Failures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantErrIs  error
		wantMsg    string
	}{
		{
			name:       "missing access token",
			status:     http.StatusOK,
			body:       `{"s":"ok","code":200,"message":""}`,
			wantStatus: http.StatusOK,
			wantErrIs:  ErrMissingAccessToken,
		},
		{
			name:       "broker error payload",
			status:     http.StatusOK,
			body:       `{"s":"error","code":-413,"message":"invalid auth code"}`,
			wantStatus: http.StatusOK,
			wantMsg:    "invalid auth code",
		},
		{
			name:       "http error status",
			status:     http.StatusUnauthorized,
			body:       `{"s":"error","code":-16,"message":"could not authenticate"}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "could not authenticate",
		},
		{
			name:       "non json body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p := newTestProvider(t, server.URL, server.Client())

			token, err := p.ExchangeCode(context.Background(), "ABC123")
			assert.Nil(t, token)
			require.Error(t, err)

			var exErr *ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, tt.wantStatus, exErr.Status)
			assert.True(t, exErr.HasResponse())
			assert.Equal(t, tt.body, string(exErr.Response))
			if tt.wantErrIs != nil {
				assert.ErrorIs(t, err, tt.wantErrIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestFyersProvider_ExchangeCode_NoResponse(t *testing.T) {
	networkErr := errors.New("connection refused")
	p := newTestProvider(t, "http://127.0.0.1:1", &failingDoer{err: networkErr})

	token, err := p.ExchangeCode(context.Background(), "ABC123")
	assert.Nil(t, token)

	var exErr *ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Zero(t, exErr.Status)
	assert.False(t, exErr.HasResponse())
	assert.ErrorIs(t, err, networkErr)
	assert.Equal(t, "token exchange failed: connection refused", err.Error())
}
