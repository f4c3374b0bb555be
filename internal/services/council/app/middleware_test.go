package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		method string
		header string
		want   int
	}{
		{"no token configured", "", http.MethodPost, "", http.StatusOK},
		{"valid token", "secret", http.MethodPost, "secret", http.StatusOK},
		{"missing token", "secret", http.MethodPost, "", http.StatusUnauthorized},
		{"wrong token", "secret", http.MethodPost, "nope", http.StatusUnauthorized},
		{"get exempt", "secret", http.MethodGet, "", http.StatusOK},
		{"head exempt", "secret", http.MethodHead, "", http.StatusOK},
		{"options exempt", "secret", http.MethodOptions, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := authMiddleware(tt.token, okHandler())
			req := httptest.NewRequest(tt.method, "/api/conversations", nil)
			if tt.header != "" {
				req.Header.Set(sharedTokenHeader, tt.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, req)
			if recorder.Code != tt.want {
				t.Errorf("status = %d, want %d", recorder.Code, tt.want)
			}
		})
	}
}

func TestRateLimiterAllow(t *testing.T) {
	current := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	limiter := newRateLimiter(time.Minute, 2)
	limiter.now = func() time.Time { return current }

	allowed, remaining, _ := limiter.allow("a")
	if !allowed || remaining != 1 {
		t.Fatalf("first request: allowed = %v remaining = %d, want true 1", allowed, remaining)
	}
	allowed, remaining, _ = limiter.allow("a")
	if !allowed || remaining != 0 {
		t.Fatalf("second request: allowed = %v remaining = %d, want true 0", allowed, remaining)
	}
	allowed, _, resetAt := limiter.allow("a")
	if allowed {
		t.Fatal("third request in the window was allowed")
	}
	if want := current.Add(time.Minute); !resetAt.Equal(want) {
		t.Errorf("resetAt = %v, want %v", resetAt, want)
	}

	// A different key gets its own budget.
	if allowed, _, _ := limiter.allow("b"); !allowed {
		t.Fatal("independent key was throttled")
	}

	// The window rolls over and the count starts fresh.
	current = current.Add(time.Minute + time.Second)
	if allowed, remaining, _ := limiter.allow("a"); !allowed || remaining != 1 {
		t.Fatalf("after reset: allowed = %v remaining = %d, want true 1", allowed, remaining)
	}
}

func TestRateLimiterMiddlewareHeaders(t *testing.T) {
	limiter := newRateLimiter(time.Minute, 1)
	handler := limiter.middleware(okHandler())

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", recorder.Code)
	}
	if got := recorder.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Errorf("X-RateLimit-Limit = %q, want 1", got)
	}
	if got := recorder.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
	if recorder.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("X-RateLimit-Reset is missing")
	}

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", recorder.Code)
	}
	if recorder.Header().Get("Retry-After") == "" {
		t.Error("Retry-After is missing on the throttled response")
	}
}

func TestRateKey(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		forwarded string
		remote    string
		want      string
	}{
		{"token wins", "tok", "1.2.3.4", "5.6.7.8:1234", "token:tok"},
		{"forwarded first hop", "", "1.2.3.4, 9.9.9.9", "5.6.7.8:1234", "ip:1.2.3.4"},
		{"remote addr host", "", "", "5.6.7.8:1234", "ip:5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.token != "" {
				req.Header.Set(sharedTokenHeader, tt.token)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := rateKey(req); got != tt.want {
				t.Errorf("rateKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
