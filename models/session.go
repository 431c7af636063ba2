package models

import (
	"sync"
)

// Session holds the mutable slots shared by the login flow and the callback
// listener. The auth code is written at most once; readers either poll
// AuthCode or wait on AuthCodeReady.
type Session struct {
	mu          sync.RWMutex
	authCode    string
	accessToken string

	codeOnce  sync.Once
	codeReady chan struct{}
}

// NewSession creates a session, optionally seeded with an existing access token
func NewSession(accessToken string) *Session {
	return &Session{
		accessToken: accessToken,
		codeReady:   make(chan struct{}),
	}
}

// AuthCode returns the received authorization code, or "" while pending
func (s *Session) AuthCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authCode
}

// SetAuthCode stores the authorization code. Only the first non-empty write
// wins; it reports whether this call stored the value.
func (s *Session) SetAuthCode(code string) bool {
	if code == "" {
		return false
	}

	stored := false
	s.codeOnce.Do(func() {
		s.mu.Lock()
		s.authCode = code
		s.mu.Unlock()
		close(s.codeReady)
		stored = true
	})
	return stored
}

// AuthCodeReady is closed once an authorization code has been stored
func (s *Session) AuthCodeReady() <-chan struct{} {
	return s.codeReady
}

// AccessToken returns the current access token, or "" when absent
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// HasAccessToken reports whether an access token is present
func (s *Session) HasAccessToken() bool {
	return s.AccessToken() != ""
}

// SetAccessToken publishes a newly issued access token
func (s *Session) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
}
