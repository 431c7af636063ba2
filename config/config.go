package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
)

// GrantType is sent with every authorization-code exchange
const GrantType = "authorization_code"

// Settings holds the per-run session configuration
type Settings struct {
	ClientID     string        `env:"FYERS_CLIENT_ID"`
	SecretID     string        `env:"FYERS_SECRET_ID"`
	RedirectURI  string        `env:"FYERS_REDIRECT_URI" envDefault:"http://127.0.0.1:8080/"`
	State        string        `env:"FYERS_STATE" envDefault:"authorize"`
	APIBaseURL   string        `env:"FYERS_API_BASE_URL" envDefault:"https://api-t1.fyers.in/api/v3"`
	AccessToken  string        `env:"FYERS_ACCESS_TOKEN"`
	ForceLogin   bool          `env:"FYERS_FORCE_LOGIN" envDefault:"false"`
	PollInterval time.Duration `env:"AUTH_POLL_INTERVAL" envDefault:"1s"`
	WaitTimeout  time.Duration `env:"AUTH_WAIT_TIMEOUT" envDefault:"0s"`
	HTTPTimeout  time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"30s"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads envFile (when present) into the process environment and decodes
// the settings from it. Variables already set in the environment win.
func Load(envFile string) (Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse env: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}

	return s, nil
}

// Validate reports every configuration problem at once
func (s Settings) Validate() error {
	var result *multierror.Error

	if strings.TrimSpace(s.ClientID) == "" {
		result = multierror.Append(result, errors.New("FYERS_CLIENT_ID is required"))
	}
	if strings.TrimSpace(s.SecretID) == "" {
		result = multierror.Append(result, errors.New("FYERS_SECRET_ID is required"))
	}
	if s.State == "" {
		result = multierror.Append(result, errors.New("FYERS_STATE must not be empty"))
	}
	if err := validateRedirectURI(s.RedirectURI); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := url.ParseRequestURI(s.APIBaseURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("FYERS_API_BASE_URL is invalid: %w", err))
	}
	if s.PollInterval <= 0 {
		result = multierror.Append(result, errors.New("AUTH_POLL_INTERVAL must be positive"))
	}
	if s.WaitTimeout < 0 {
		result = multierror.Append(result, errors.New("AUTH_WAIT_TIMEOUT must not be negative"))
	}
	if s.HTTPTimeout < 0 {
		result = multierror.Append(result, errors.New("AUTH_HTTP_TIMEOUT must not be negative"))
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}

// ListenAddr returns the host:port the callback listener binds to
func (s Settings) ListenAddr() string {
	u, err := url.Parse(s.RedirectURI)
	if err != nil {
		return ""
	}
	return net.JoinHostPort(u.Hostname(), u.Port())
}

// CallbackPath returns the path the broker redirects to
func (s Settings) CallbackPath() string {
	u, err := url.Parse(s.RedirectURI)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// SlogLevel returns the configured log level, falling back to info
func (s Settings) SlogLevel() slog.Level {
	level, err := parseLevel(s.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q is not a known level", raw)
	}
	return level, nil
}

// validateRedirectURI requires an http URL on a loopback host with an explicit port
func validateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("FYERS_REDIRECT_URI is invalid: %w", err)
	}
	if u.Scheme != "http" {
		return fmt.Errorf("FYERS_REDIRECT_URI must use http, got %q", u.Scheme)
	}
	if u.Port() == "" {
		return errors.New("FYERS_REDIRECT_URI must include a port")
	}

	host := u.Hostname()
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("FYERS_REDIRECT_URI host %q is not a loopback address", host)
	}
	return nil
}
