package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimiter is a sliding-window limiter keyed by caller identity (user id
// when authenticated, client IP otherwise).
type RateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewRateLimiter(limit, windowSeconds int) *RateLimiter {
	if limit <= 0 {
		limit = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	rl := &RateLimiter{
		limit:   limit,
		window:  time.Duration(windowSeconds) * time.Second,
		windows: make(map[string][]time.Time),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) cleanupLoop() {
	for range time.Tick(time.Minute) {
		rl.mu.Lock()
		cutoff := time.Now().Add(-2 * rl.window)
		for key, ts := range rl.windows {
			if len(ts) == 0 || ts[len(ts)-1].Before(cutoff) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow records a hit for key and reports whether it is within the limit,
// the remaining budget, and when the window resets.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.window)

	ts := rl.windows[key]
	for len(ts) > 0 && !ts[0].After(windowStart) {
		ts = ts[1:]
	}

	if len(ts) >= rl.limit {
		rl.windows[key] = ts
		return false, 0, ts[0].Add(rl.window)
	}

	ts = append(ts, now)
	rl.windows[key] = ts
	return true, rl.limit - len(ts), now.Add(rl.window)
}

// RateLimit applies the limiter to every request.
func RateLimit(limit, windowSeconds int) func(http.Handler) http.Handler {
	rl := NewRateLimiter(limit, windowSeconds)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if userID := GetUserID(r.Context()); userID != uuid.Nil {
				key = "user:" + userID.String()
			}

			allowed, remaining, reset := rl.Allow(key)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(reset).Seconds())+1, 10))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers proxy headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexByte(xff, ','); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host := r.RemoteAddr
	if idx := strings.LastIndexByte(host, ':'); idx >= 0 {
		return host[:idx]
	}
	return host
}
