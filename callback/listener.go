package callback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/blogem/fyers-login/controllers"
	"github.com/blogem/fyers-login/flowctx"
	authmiddleware "github.com/blogem/fyers-login/middleware"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// ErrBind is wrapped by Start when the listen address cannot be bound
var ErrBind = errors.New("callback listener bind failed")

// Listener is a one-shot loopback HTTP server that receives the broker
// redirect and shuts itself down after the first valid callback.
type Listener struct {
	addr string
	path string
	ctrl *controllers.Controllers

	mu       sync.Mutex
	server   *http.Server
	ln       net.Listener
	started  bool
	stopping bool

	shutdownOnce sync.Once
	shutdownErr  error
	done         chan struct{}
}

// NewListener creates a listener for addr (host:port) serving the callback on path
func NewListener(addr, path string, ctrl *controllers.Controllers) *Listener {
	if path == "" {
		path = "/"
	}
	return &Listener{
		addr: addr,
		path: path,
		ctrl: ctrl,
		done: make(chan struct{}),
	}
}

// Start binds the address and serves in a background goroutine. It returns
// only after the bind succeeded, so the callback cannot arrive too early.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started || l.stopping {
		return errors.New("callback listener already used")
	}

	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("%w on %s: %w", ErrBind, l.addr, err)
	}

	l.ln = ln
	l.started = true
	l.server = &http.Server{
		Handler:           l.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          log.New(io.Discard, "", 0),
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	server := l.server
	go func() {
		defer close(l.done)
		slog.DebugContext(ctx, "Starting OAuth callback server", "flow_id", flowctx.GetFlowID(ctx), "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.DebugContext(ctx, "OAuth callback server error", "flow_id", flowctx.GetFlowID(ctx), "err", err)
		}
		slog.DebugContext(ctx, "OAuth callback server stopped", "flow_id", flowctx.GetFlowID(ctx))
	}()

	return nil
}

// routes wires the callback handler. No request logger is mounted.
func (l *Listener) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(authmiddleware.QuietRecoverer)
	r.Use(authmiddleware.CallbackAudit)
	r.Get(l.path, l.ctrl.Auth.Callback(l.triggerShutdown))
	return r
}

// triggerShutdown stops the server without blocking the response in flight
func (l *Listener) triggerShutdown() {
	go func() {
		_ = l.Shutdown(context.Background())
	}()
}

// Addr returns the bound address, or the configured one before Start
func (l *Listener) Addr() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}

// Done is closed once the server goroutine has exited
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Shutdown stops the listener and releases the socket. It is safe to call
// more than once and from several goroutines.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() {
		l.mu.Lock()
		l.stopping = true
		server := l.server
		l.mu.Unlock()

		if server == nil {
			close(l.done)
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Debug("Error during OAuth server graceful shutdown", "err", err)
			// Force close if a graceful shutdown fails
			l.shutdownErr = server.Close()
		}
		<-l.done
	})
	return l.shutdownErr
}
