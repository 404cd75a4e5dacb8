// Session-bearing request layer for the sync backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/botanica/internal/shared"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "http://localhost:8000"

// TokenSource supplies the session credential attached to authenticated requests.
// An empty credential means no session.
type TokenSource interface {
	Credential() string
}

// StaticToken is a [TokenSource] with a fixed credential.
type StaticToken string

func (s StaticToken) Credential() string { return string(s) }

// APIOptions configures an [APIService]. Zero values disable the corresponding feature.
type APIOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	OnExpired  func()
	Limiter    *rate.Limiter
	Timeout    time.Duration
	Logger     *log.Logger
}

// APIService issues JSON requests against the backend, attaching the session credential as a bearer token.
//
// A 401 from an authenticated call invokes the expiry hook once and fails with [shared.ErrSessionExpired].
type APIService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *log.Logger

	mu        sync.RWMutex
	tokens    TokenSource
	onExpired func()
}

// NewAPIService creates a new API service instance.
func NewAPIService(opts APIOptions) *APIService {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	return &APIService{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    opts.Limiter,
		timeout:    opts.Timeout,
		logger:     logger,
		tokens:     opts.Tokens,
		onExpired:  opts.OnExpired,
	}
}

// NewAPIServiceFromConfig builds an [APIService] from backend config, enabling the rate limiter
// when requests_per_second is positive.
func NewAPIServiceFromConfig(cfg shared.BackendConfig, client *http.Client, logger *log.Logger) *APIService {
	opts := APIOptions{
		BaseURL:    cfg.URL,
		HTTPClient: client,
		Timeout:    cfg.Timeout(),
		Logger:     logger,
	}
	if cfg.RequestsPerSecond > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1))
	}
	return NewAPIService(opts)
}

// BaseURL returns the backend base URL without a trailing slash.
func (a *APIService) BaseURL() string { return a.baseURL }

// SetTokenSource replaces the credential source.
func (a *APIService) SetTokenSource(ts TokenSource) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens = ts
}

// SetLogger replaces the request logger. It must not be called while requests are in flight.
func (a *APIService) SetLogger(l *log.Logger) {
	if l != nil {
		a.logger = l
	}
}

// SetOnExpired replaces the hook invoked when an authenticated call receives a 401.
func (a *APIService) SetOnExpired(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onExpired = fn
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// OK reports whether the status code is 2xx.
func (r *APIResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Get performs an authenticated GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.raw(ctx, http.MethodGet, path, nil)
}

// Post performs an authenticated POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.raw(ctx, http.MethodPost, path, data)
}

func (a *APIService) raw(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	cred := a.credential()
	if cred == "" {
		return nil, shared.ErrNotAuthenticated
	}

	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	resp, err := a.send(ctx, method, path, body, cred)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		a.expire()
		return resp, shared.ErrSessionExpired
	}
	return resp, nil
}

// Do performs an authenticated JSON request. body is encoded when non-nil and a 2xx response is decoded
// into result when non-nil.
func (a *APIService) Do(ctx context.Context, method, path string, body, result any) error {
	cred := a.credential()
	if cred == "" {
		return shared.ErrNotAuthenticated
	}
	return a.do(ctx, method, path, body, result, cred, true)
}

// DoPublic performs a JSON request that does not require a session. bearer is attached when non-empty.
// A 401 is reported as a [shared.BackendError] and does not invoke the expiry hook.
func (a *APIService) DoPublic(ctx context.Context, method, path string, body, result any, bearer string) error {
	return a.do(ctx, method, path, body, result, bearer, false)
}

func (a *APIService) do(ctx context.Context, method, path string, body, result any, bearer string, authenticated bool) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := a.send(ctx, method, path, reader, bearer)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		a.expire()
		return shared.ErrSessionExpired
	}
	if !resp.OK() {
		return &shared.BackendError{StatusCode: resp.StatusCode, Message: errorMessage(resp)}
	}

	if result != nil && len(bytes.TrimSpace(resp.Body)) > 0 {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (a *APIService) send(ctx context.Context, method, path string, body io.Reader, bearer string) (*APIResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Debug("request failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %w", shared.ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}

	a.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}

	var jsonData any
	if err := json.Unmarshal(data, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

func (a *APIService) credential() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.tokens == nil {
		return ""
	}
	return a.tokens.Credential()
}

func (a *APIService) expire() {
	a.mu.RLock()
	fn := a.onExpired
	a.mu.RUnlock()

	a.logger.Warn("session expired")
	if fn != nil {
		fn()
	}
}

// errorMessage extracts a message or detail string from a JSON error body.
func errorMessage(resp *APIResponse) string {
	obj, ok := resp.JSONData.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// IsSessionError reports whether err means the caller no longer holds a usable session.
func IsSessionError(err error) bool {
	return errors.Is(err, shared.ErrSessionExpired) || errors.Is(err, shared.ErrNotAuthenticated)
}
