package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/botanica/internal/shared"
	tu "github.com/desertthunder/botanica/internal/testing"
	"golang.org/x/time/rate"
)

func newTestAPI(url string, client *http.Client, token string) *APIService {
	return NewAPIService(APIOptions{BaseURL: url, HTTPClient: client, Tokens: StaticToken(token)})
}

func TestAPIService(t *testing.T) {
	t.Run("New", func(t *testing.T) {
		t.Run("With Custom BaseURL and Client", func(t *testing.T) {
			customClient := &http.Client{}
			srv := NewAPIService(APIOptions{BaseURL: "http://example.com/", HTTPClient: customClient})

			if srv.baseURL != "http://example.com" {
				t.Errorf("expected trailing slash trimmed, got %s", srv.baseURL)
			}
			if srv.httpClient != customClient {
				t.Error("expected custom client to be used")
			}
		})

		t.Run("With Empty Options", func(t *testing.T) {
			srv := NewAPIService(APIOptions{})

			if srv.baseURL != defaultBaseURL {
				t.Errorf("expected default baseURL %s, got %s", defaultBaseURL, srv.baseURL)
			}
			if srv.httpClient != http.DefaultClient {
				t.Error("expected http.DefaultClient to be used")
			}
			if srv.logger == nil {
				t.Error("expected a discard logger")
			}
		})

		t.Run("From Config", func(t *testing.T) {
			cfg := shared.BackendConfig{URL: "http://example.com", TimeoutSeconds: 7, RequestsPerSecond: 2, Burst: 0}
			srv := NewAPIServiceFromConfig(cfg, nil, nil)

			if srv.timeout != 7*time.Second {
				t.Errorf("expected 7s timeout, got %v", srv.timeout)
			}
			if srv.limiter == nil {
				t.Fatal("expected limiter to be configured")
			}
			if srv.limiter.Burst() != 1 {
				t.Errorf("expected burst clamped to 1, got %d", srv.limiter.Burst())
			}

			srv = NewAPIServiceFromConfig(shared.BackendConfig{URL: "http://example.com"}, nil, nil)
			if srv.limiter != nil {
				t.Error("expected no limiter when rate is zero")
			}
		})
	})

	t.Run("Do", func(t *testing.T) {
		t.Run("Attaches Bearer And Headers", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
					t.Errorf("expected bearer header, got %q", got)
				}
				if r.Header.Get("Accept") != "application/json" {
					t.Errorf("expected Accept application/json, got %q", r.Header.Get("Accept"))
				}
				if r.Header.Get("Content-Type") != "application/json" {
					t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
				}
				if len(r.Header.Get("X-Request-ID")) != 36 {
					t.Errorf("expected uuid request id, got %q", r.Header.Get("X-Request-ID"))
				}

				var body map[string]string
				json.NewDecoder(r.Body).Decode(&body)
				if body["name"] != "Čišćenje" {
					t.Errorf("expected body name, got %v", body)
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok-1")
			var out StatusResponse
			err := srv.Do(context.Background(), http.MethodPost, "/x", map[string]string{"name": "Čišćenje"}, &out)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Status != "success" {
				t.Errorf("expected decoded status, got %q", out.Status)
			}
		})

		t.Run("No Body Omits Content-Type", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Content-Type") != "" {
					t.Errorf("expected no Content-Type, got %q", r.Header.Get("Content-Type"))
				}
				w.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			var out StatusResponse
			if err := srv.Do(context.Background(), http.MethodGet, "/x", nil, &out); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Without Credential Sends Nothing", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(nil, errors.New("should not be called"))
			srv := newTestAPI("http://example.com", &http.Client{Transport: rt}, "")

			err := srv.Do(context.Background(), http.MethodGet, "/load-data", nil, nil)

			if !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
			if rt.Calls() != 0 {
				t.Errorf("expected no requests, got %d", rt.Calls())
			}
		})

		t.Run("Nil TokenSource Is Unauthenticated", func(t *testing.T) {
			srv := NewAPIService(APIOptions{BaseURL: "http://example.com"})
			if err := srv.Do(context.Background(), http.MethodGet, "/x", nil, nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("401 Invokes Hook Once", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			calls := 0
			srv := NewAPIService(APIOptions{
				BaseURL:   server.URL,
				Tokens:    StaticToken("stale"),
				OnExpired: func() { calls++ },
			})

			err := srv.Do(context.Background(), http.MethodGet, "/x", nil, nil)

			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Errorf("expected ErrSessionExpired, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected hook to run once, ran %d times", calls)
			}
			if !IsSessionError(err) {
				t.Error("expected IsSessionError to be true")
			}
		})

		t.Run("Non-2xx Becomes BackendError", func(t *testing.T) {
			tc := []struct {
				name    string
				status  int
				body    string
				message string
			}{
				{name: "message field", status: http.StatusBadRequest, body: `{"message":"Name is required"}`, message: "Name is required"},
				{name: "detail field", status: http.StatusUnprocessableEntity, body: `{"detail":"bad payload"}`, message: "bad payload"},
				{name: "plain text", status: http.StatusInternalServerError, body: "boom", message: ""},
				{name: "not found", status: http.StatusNotFound, body: `{"status":"error","message":"missing"}`, message: "missing"},
			}

			for _, tt := range tc {
				t.Run(tt.name, func(t *testing.T) {
					server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
						w.WriteHeader(tt.status)
						w.Write([]byte(tt.body))
					}))
					defer server.Close()

					srv := newTestAPI(server.URL, nil, "tok")
					err := srv.Do(context.Background(), http.MethodGet, "/x", nil, nil)

					var be *shared.BackendError
					if !errors.As(err, &be) {
						t.Fatalf("expected BackendError, got %v", err)
					}
					if be.StatusCode != tt.status {
						t.Errorf("expected status %d, got %d", tt.status, be.StatusCode)
					}
					if be.Message != tt.message {
						t.Errorf("expected message %q, got %q", tt.message, be.Message)
					}
					if !errors.Is(err, shared.ErrAPIRequest) {
						t.Error("expected error to match ErrAPIRequest")
					}
				})
			}
		})

		t.Run("Transport Failure Wraps ErrNetwork", func(t *testing.T) {
			client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
			srv := newTestAPI("http://example.com", client, "tok")

			err := srv.Do(context.Background(), http.MethodGet, "/x", nil, nil)

			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
			if !strings.Contains(err.Error(), "connection refused") {
				t.Errorf("expected cause in message, got %v", err)
			}
		})

		t.Run("Failed Response Body Read", func(t *testing.T) {
			client := &http.Client{
				Transport: tu.NewMockRoundTripper(&http.Response{
					StatusCode: http.StatusOK,
					Body:       &tu.FCloser{},
					Header:     http.Header{},
				}, nil),
			}

			srv := newTestAPI("http://example.com", client, "tok")
			err := srv.Do(context.Background(), http.MethodGet, "/x", nil, nil)

			if !errors.Is(err, shared.ErrNetwork) {
				t.Errorf("expected ErrNetwork, got %v", err)
			}
			if !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected 'failed to read response' error, got %v", err)
			}
		})

		t.Run("Malformed JSON", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("{not json"))
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			var out StatusResponse
			err := srv.Do(context.Background(), http.MethodGet, "/x", nil, &out)

			if err == nil || !strings.Contains(err.Error(), "failed to decode response") {
				t.Errorf("expected decode error, got %v", err)
			}
		})

		t.Run("Unencodable Body", func(t *testing.T) {
			srv := newTestAPI("http://example.com", nil, "tok")
			err := srv.Do(context.Background(), http.MethodPost, "/x", map[string]any{"c": make(chan int)}, nil)

			if err == nil || !strings.Contains(err.Error(), "failed to encode request") {
				t.Errorf("expected encode error, got %v", err)
			}
		})

		t.Run("Timeout", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			}))
			defer server.Close()

			srv := NewAPIService(APIOptions{BaseURL: server.URL, Tokens: StaticToken("tok"), Timeout: 20 * time.Millisecond})
			err := srv.Do(context.Background(), http.MethodGet, "/slow", nil, nil)

			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("expected deadline exceeded, got %v", err)
			}
		})

		t.Run("Rate Limiter Honours Cancellation", func(t *testing.T) {
			limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
			limiter.Allow()

			rt := tu.NewMockRoundTripper(nil, errors.New("should not be called"))
			srv := NewAPIService(APIOptions{
				BaseURL:    "http://example.com",
				HTTPClient: &http.Client{Transport: rt},
				Tokens:     StaticToken("tok"),
				Limiter:    limiter,
			})

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			err := srv.Do(ctx, http.MethodGet, "/x", nil, nil)

			if err == nil || !strings.Contains(err.Error(), "rate limit wait") {
				t.Errorf("expected rate limit error, got %v", err)
			}
			if rt.Calls() != 0 {
				t.Errorf("expected no requests, got %d", rt.Calls())
			}
		})
	})

	t.Run("DoPublic", func(t *testing.T) {
		t.Run("401 Is A BackendError Without Hook", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "" {
					t.Errorf("expected no Authorization header, got %q", r.Header.Get("Authorization"))
				}
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"status":"error","message":"Invalid Google token"}`))
			}))
			defer server.Close()

			called := false
			srv := NewAPIService(APIOptions{BaseURL: server.URL, OnExpired: func() { called = true }})
			err := srv.DoPublic(context.Background(), http.MethodPost, "/login", map[string]string{"id_token": "x"}, nil, "")

			var be *shared.BackendError
			if !errors.As(err, &be) || be.Message != "Invalid Google token" {
				t.Errorf("expected BackendError with message, got %v", err)
			}
			if called {
				t.Error("expected expiry hook not to run for public calls")
			}
		})

		t.Run("Optional Bearer", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer held" {
					t.Errorf("expected bearer, got %q", r.Header.Get("Authorization"))
				}
				w.Write([]byte(`{"message":"bye"}`))
			}))
			defer server.Close()

			srv := NewAPIService(APIOptions{BaseURL: server.URL})
			var out StatusResponse
			if err := srv.DoPublic(context.Background(), http.MethodPost, "/logout", nil, &out, "held"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Message != "bye" {
				t.Errorf("expected message bye, got %q", out.Message)
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-Custom-Header", "test-value")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"status": "success"})
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !resp.OK() {
				t.Errorf("expected 2xx, got %d", resp.StatusCode)
			}
			if !resp.IsJSON {
				t.Error("expected response to be JSON")
			}
			if resp.Headers.Get("X-Custom-Header") != "test-value" {
				t.Errorf("expected custom header 'test-value', got %s", resp.Headers.Get("X-Custom-Header"))
			}
		})

		t.Run("Successful Request With Non-JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("plain text response"))
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.IsJSON || resp.JSONData != nil {
				t.Error("expected response to not be JSON")
			}
			if string(resp.Body) != "plain text response" {
				t.Errorf("expected body 'plain text response', got %s", string(resp.Body))
			}
		})

		t.Run("Error Status Is Returned Raw", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTeapot)
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			resp, err := srv.Get(context.Background(), "/test")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusTeapot || resp.OK() {
				t.Errorf("expected raw 418, got %d", resp.StatusCode)
			}
		})

		t.Run("401 Expires Session", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			calls := 0
			srv := newTestAPI(server.URL, nil, "tok")
			srv.SetOnExpired(func() { calls++ })

			_, err := srv.Get(context.Background(), "/test")

			if !errors.Is(err, shared.ErrSessionExpired) {
				t.Errorf("expected ErrSessionExpired, got %v", err)
			}
			if calls != 1 {
				t.Errorf("expected hook once, got %d", calls)
			}
		})

		t.Run("Failed Request Creation", func(t *testing.T) {
			srv := newTestAPI("http://example.com", nil, "tok")
			_, err := srv.Get(context.Background(), "/test\x00invalid")

			if err == nil || !strings.Contains(err.Error(), "failed to create request") {
				t.Errorf("expected 'failed to create request' error, got %v", err)
			}
		})

		t.Run("With Canceled Context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			srv := newTestAPI(server.URL, nil, "tok")
			_, err := srv.Get(ctx, "/test")

			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})
	})

	t.Run("Post", func(t *testing.T) {
		t.Run("Sends Body With Bearer", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST method, got %s", r.Method)
				}
				if r.Header.Get("Authorization") != "Bearer tok" {
					t.Errorf("expected bearer, got %q", r.Header.Get("Authorization"))
				}

				body, _ := io.ReadAll(r.Body)
				if string(body) != `{"test":"data"}` {
					t.Errorf("unexpected body %s", body)
				}

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"id": "123"})
			}))
			defer server.Close()

			srv := newTestAPI(server.URL, nil, "tok")
			resp, err := srv.Post(context.Background(), "/test", []byte(`{"test":"data"}`))

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if resp.StatusCode != http.StatusCreated {
				t.Errorf("expected status 201, got %d", resp.StatusCode)
			}
		})

		t.Run("Without Credential", func(t *testing.T) {
			srv := newTestAPI("http://example.com", nil, "")
			if _, err := srv.Post(context.Background(), "/test", nil); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("SetTokenSource", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.Header.Get("Authorization")))
		}))
		defer server.Close()

		srv := NewAPIService(APIOptions{BaseURL: server.URL})
		srv.SetTokenSource(StaticToken("swapped"))

		resp, err := srv.Get(context.Background(), "/")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(resp.Body) != "Bearer swapped" {
			t.Errorf("expected swapped bearer, got %s", resp.Body)
		}
	})
}
