package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultRateLimit is the per-IP request budget per minute
const DefaultRateLimit = 100

// RateLimiter implements sliding window rate limiting keyed by client
type RateLimiter struct {
	mu       sync.Mutex
	windows  map[string]*slidingWindow
	limit    int
	window   time.Duration
	keyFunc  func(r *http.Request) string
	cleanupT *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// slidingWindow holds request times inside the window, oldest first
type slidingWindow struct {
	timestamps []time.Time
}

// RateLimitConfig defines rate limit parameters
type RateLimitConfig struct {
	Limit   int           // Max requests per window
	Window  time.Duration // Time window
	KeyFunc func(r *http.Request) string
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = GetClientIP
	}

	rl := &RateLimiter{
		windows: make(map[string]*slidingWindow),
		limit:   cfg.Limit,
		window:  cfg.Window,
		keyFunc: cfg.KeyFunc,
		stopCh:  make(chan struct{}),
	}

	rl.cleanupT = time.NewTicker(cfg.Window)
	go rl.cleanup()

	return rl
}

// cleanup drops clients whose window emptied
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.cleanupT.C:
			now := time.Now()
			rl.mu.Lock()
			for key, sw := range rl.windows {
				sw.prune(now, rl.window)
				if len(sw.timestamps) == 0 {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCh:
			rl.cleanupT.Stop()
			return
		}
	}
}

// Stop stops the cleanup goroutine. Safe to call multiple times.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// Allow records a request and reports whether it fits the budget, along with
// the requests left and when the oldest one leaves the window.
func (rl *RateLimiter) Allow(r *http.Request) (ok bool, remaining int, reset time.Duration) {
	key := rl.keyFunc(r)
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	sw, exists := rl.windows[key]
	if !exists {
		sw = &slidingWindow{}
		rl.windows[key] = sw
	}
	sw.prune(now, rl.window)

	if len(sw.timestamps) >= rl.limit {
		return false, 0, sw.timestamps[0].Add(rl.window).Sub(now)
	}

	sw.timestamps = append(sw.timestamps, now)
	return true, rl.limit - len(sw.timestamps), sw.timestamps[0].Add(rl.window).Sub(now)
}

func (sw *slidingWindow) prune(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(sw.timestamps) && sw.timestamps[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		sw.timestamps = sw.timestamps[i:]
	}
}

// Middleware rejects requests over budget with 429 and advertises the budget
// in X-RateLimit-* headers
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, remaining, reset := rl.Allow(r)
		seconds := int(reset.Round(time.Second) / time.Second)
		if seconds < 1 {
			seconds = 1
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetClientIP extracts the client IP from a request.
// chi middleware.RealIP already sets r.RemoteAddr from X-Real-IP / X-Forwarded-For,
// so only the port is stripped here. Re-reading those headers would let clients
// spoof their way past per-IP limits.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimiters holds all rate limiters for the application
type RateLimiters struct {
	Global *RateLimiter
}

// NewRateLimiters creates the per-IP limiter allowing perMinute requests.
// A non-positive value uses DefaultRateLimit.
func NewRateLimiters(perMinute int) *RateLimiters {
	if perMinute <= 0 {
		perMinute = DefaultRateLimit
	}
	return &RateLimiters{
		Global: NewRateLimiter(RateLimitConfig{
			Limit:   perMinute,
			Window:  time.Minute,
			KeyFunc: GetClientIP,
		}),
	}
}

// Stop stops all rate limiter cleanup goroutines
func (rls *RateLimiters) Stop() {
	rls.Global.Stop()
}
