package server

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// sharedTokenHeader carries the write credential on mutating requests.
const sharedTokenHeader = "X-Shared-Token"

// authMiddleware enforces the shared write token on mutating methods. An
// empty configured token disables the check entirely.
func authMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get(sharedTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized: invalid or missing shared token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Rate limiter defaults.
const (
	defaultRateLimitWindow = time.Minute
	defaultRateLimitMax    = 60
)

type rateWindow struct {
	count   int
	resetAt time.Time
}

// rateLimiter is a fixed-window counter keyed by shared token when present,
// client IP otherwise.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	window  time.Duration
	max     int
	now     func() time.Time
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	if window <= 0 {
		window = defaultRateLimitWindow
	}
	if max <= 0 {
		max = defaultRateLimitMax
	}
	return &rateLimiter{
		windows: make(map[string]*rateWindow),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// allow counts one request against the key's current window. It reports
// whether the request may proceed, how many requests remain, and when the
// window resets.
func (l *rateLimiter) allow(key string) (allowed bool, remaining int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}

	if w.count >= l.max {
		return false, 0, w.resetAt
	}
	w.count++
	return true, l.max - w.count, w.resetAt
}

func (l *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, remaining, resetAt := l.allow(rateKey(r))

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateKey prefers the shared token so one caller behind many IPs shares a
// budget, falling back to the client address.
func rateKey(r *http.Request) string {
	if token := r.Header.Get(sharedTokenHeader); token != "" {
		return "token:" + token
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
