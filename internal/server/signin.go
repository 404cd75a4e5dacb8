package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/botanica/internal/services"
	"github.com/desertthunder/botanica/internal/shared"
)

// DefaultSignInTimeout bounds how long [SignIn] waits for the browser callback.
const DefaultSignInTimeout = 2 * time.Minute

// CallbackServer is a temporary local HTTP server serving one [CallbackHandler].
type CallbackServer struct {
	handler  *CallbackHandler
	listener net.Listener
	srv      *http.Server
	errs     chan error
	logger   *log.Logger
}

// Listen binds addr and starts serving handler in the background.
func Listen(addr string, handler *CallbackHandler, logger *log.Logger) (*CallbackServer, error) {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	router := NewBasicRouter()
	router.Use(RequestLogger(logger))
	router.Handler(handler)

	s := &CallbackServer{
		handler:  handler,
		listener: ln,
		srv:      &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:     make(chan error, 1),
		logger:   logger,
	}

	go func() {
		logger.Debug("starting sign-in callback server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return s, nil
}

// Addr returns the bound listen address.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Wait blocks until the callback delivers a result, the server fails, timeout elapses or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultSignInTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result CallbackResult
	select {
	case result = <-s.handler.Result():
	case err := <-s.errs:
		return "", fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return "", fmt.Errorf("%w: sign-in timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", fmt.Errorf("%w: %w", shared.ErrCancelled, ctx.Err())
	}

	if result.Error() != nil {
		return "", fmt.Errorf("sign-in failed: %w", result.Error())
	}
	if result.IDToken == "" {
		return "", fmt.Errorf("%w: no id_token received", shared.ErrInvalidCredential)
	}
	return result.IDToken, nil
}

// Close shuts the server down, waiting up to five seconds for in-flight requests.
func (s *CallbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

// SignInOptions configures [SignIn].
type SignInOptions struct {
	Addr     string
	Identity services.IdentityProvider
	// Open presents the authorization URL to the user. A failing Open is logged, not fatal,
	// since OnURL can still show the URL.
	Open    func(url string) error
	OnURL   func(url string)
	Timeout time.Duration
	Logger  *log.Logger
}

// SignIn runs the browser sign-in flow and returns the Google id_token.
func SignIn(ctx context.Context, opts SignInOptions) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	state := shared.GenerateID()
	handler := NewCallbackHandler(opts.Identity, state)

	srv, err := Listen(opts.Addr, handler, logger)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := opts.Identity.AuthURL(state)
	if opts.OnURL != nil {
		opts.OnURL(authURL)
	}
	if opts.Open != nil {
		if err := opts.Open(authURL); err != nil {
			logger.Warn("failed to open browser automatically", "error", err)
		}
	}

	return srv.Wait(ctx, opts.Timeout)
}
