package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blogem/fyers-login/authenticator"
	"github.com/blogem/fyers-login/flowctx"
	"github.com/blogem/fyers-login/models"
)

const (
	defaultPollInterval = time.Second
	defaultState        = "authorize"
)

// ErrWaitTimeout is returned when no callback arrives within the configured wait timeout
var ErrWaitTimeout = errors.New("timed out waiting for authorization callback")

// CallbackListener is the loopback server the broker redirects to
type CallbackListener interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// AuthService defines the interface for the login flow
type AuthService interface {
	GenerateAuthCode(ctx context.Context) error
	GenerateAccessToken(ctx context.Context) (*models.TokenResult, error)
}

// AuthOptions tunes the login flow
type AuthOptions struct {
	State      string
	ForceLogin bool
	// PollInterval is how often the wait loop re-checks the code slot
	PollInterval time.Duration
	// WaitTimeout bounds the wait for the callback; zero blocks indefinitely
	WaitTimeout time.Duration
	OpenBrowser func(url string) error
	// Out receives user-facing progress lines
	Out io.Writer
}

// authService implements AuthService
type authService struct {
	session  *models.Session
	provider authenticator.Provider
	listener CallbackListener
	opts     AuthOptions
}

// NewAuthService creates a new auth service
func NewAuthService(session *models.Session, provider authenticator.Provider, listener CallbackListener, opts AuthOptions) AuthService {
	if opts.State == "" {
		opts.State = defaultState
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &authService{
		session:  session,
		provider: provider,
		listener: listener,
		opts:     opts,
	}
}

// GenerateAuthCode runs the browser login and blocks until the callback
// listener has stored an authorization code in the session.
func (s *authService) GenerateAuthCode(ctx context.Context) error {
	return s.acquireAuthCode(withFlowID(ctx), &models.TokenResult{State: models.StateNoToken})
}

// GenerateAccessToken obtains an access token unless one is already set.
// Exchange failures are reported in the result, not as an error; errors are
// reserved for startup failures, cancellation and the wait timeout.
func (s *authService) GenerateAccessToken(ctx context.Context) (*models.TokenResult, error) {
	ctx = withFlowID(ctx)
	result := &models.TokenResult{
		State:       models.StateNoToken,
		Transitions: []models.FlowState{models.StateNoToken},
	}

	if s.session.HasAccessToken() && !s.opts.ForceLogin {
		result.Transition(models.StateAlreadyHasToken)
		result.Message = "Access token already set. Skipping generation."
		fmt.Fprintln(s.opts.Out, "⚠️  "+result.Message)
		s.logState(ctx, result)
		return result, nil
	}

	if err := s.acquireAuthCode(ctx, result); err != nil {
		return result, err
	}

	result.Transition(models.StateExchanging)
	s.logState(ctx, result)

	token, err := s.provider.ExchangeCode(ctx, s.session.AuthCode())
	if err == nil && (token == nil || token.AccessToken == "") {
		exErr := &authenticator.ExchangeError{Err: authenticator.ErrMissingAccessToken}
		if token != nil {
			exErr.Response = token.Raw
		}
		err = exErr
	}
	if err != nil {
		s.reportFailure(ctx, result, err)
		return result, nil
	}

	s.session.SetAccessToken(token.AccessToken)
	result.Transition(models.StateTokenAcquired)
	result.Message = "Access token generated successfully."
	fmt.Fprintln(s.opts.Out, "✅ "+result.Message)
	s.logState(ctx, result)

	return result, nil
}

// acquireAuthCode starts the listener, opens the login page and waits for the code
func (s *authService) acquireAuthCode(ctx context.Context, result *models.TokenResult) error {
	loginURL := s.provider.GetAuthURL(s.opts.State)
	result.Transition(models.StateAwaitingLogin)
	s.logState(ctx, result)

	if err := s.listener.Start(ctx); err != nil {
		return fmt.Errorf("failed to start callback listener: %w", err)
	}
	defer func() {
		// Idempotent; the listener has usually shut itself down already
		if err := s.listener.Shutdown(context.Background()); err != nil {
			slog.DebugContext(ctx, "Callback listener shutdown error", "flow_id", flowctx.GetFlowID(ctx), "err", err)
		}
	}()
	fmt.Fprintln(s.opts.Out, "→ OAuth local server started (waiting for redirect)...")

	fmt.Fprintln(s.opts.Out, "🌐 Opening browser for Fyers login...")
	fmt.Fprintf(s.opts.Out, "→ If the browser does not open, visit: %s\n", loginURL)
	if s.opts.OpenBrowser != nil {
		if err := s.opts.OpenBrowser(loginURL); err != nil {
			// Not fatal, the URL has been printed
			slog.InfoContext(ctx, "Failed to automatically open browser", "flow_id", flowctx.GetFlowID(ctx), "err", err)
		}
	}

	result.Transition(models.StateAwaitingCallback)
	s.logState(ctx, result)

	if err := s.waitForCode(ctx); err != nil {
		return err
	}

	result.Transition(models.StateCodeReceived)
	s.logState(ctx, result)
	fmt.Fprintln(s.opts.Out, "✅ Authorization complete.")
	return nil
}

// waitForCode blocks until the session holds an authorization code. The
// ready signal wakes it immediately; the ticker keeps a once-per-interval
// check of the slot itself.
func (s *authService) waitForCode(ctx context.Context) error {
	var timeout <-chan time.Time
	if s.opts.WaitTimeout > 0 {
		timer := time.NewTimer(s.opts.WaitTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		if s.session.AuthCode() != "" {
			return nil
		}

		select {
		case <-s.session.AuthCodeReady():
			return nil
		case <-ticker.C:
			slog.DebugContext(ctx, "Waiting for authorization callback", "flow_id", flowctx.GetFlowID(ctx))
		case <-timeout:
			return fmt.Errorf("%w after %s", ErrWaitTimeout, s.opts.WaitTimeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reportFailure records an exchange failure and prints it. The raw payload
// is only shown when the broker actually answered.
func (s *authService) reportFailure(ctx context.Context, result *models.TokenResult, err error) {
	result.Transition(models.StateExchangeFailed)
	result.Err = err
	result.Message = "Failed to generate token."

	var exErr *authenticator.ExchangeError
	if errors.As(err, &exErr) && exErr.HasResponse() {
		result.RawResponse = exErr.Response
	}

	fmt.Fprintln(s.opts.Out, "❌ "+result.Message)
	fmt.Fprintln(s.opts.Out, "→ Error:", err)
	if result.RawResponse != nil {
		fmt.Fprintln(s.opts.Out, "→ Response:", string(result.RawResponse))
	}

	slog.ErrorContext(ctx, "Token exchange failed",
		"flow_id", flowctx.GetFlowID(ctx),
		"err", err,
		"has_response", result.RawResponse != nil)
}

func (s *authService) logState(ctx context.Context, result *models.TokenResult) {
	slog.DebugContext(ctx, "Login flow state", "flow_id", flowctx.GetFlowID(ctx), "state", result.State.String())
}

// withFlowID tags ctx with a fresh flow id unless it already carries one
func withFlowID(ctx context.Context) context.Context {
	if flowctx.GetFlowID(ctx) != "" {
		return ctx
	}
	return flowctx.SetFlowID(ctx, uuid.NewString())
}
