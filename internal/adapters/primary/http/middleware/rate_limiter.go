package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged against.
type KeyFunc func(r *http.Request) string

// RateLimiterConfig holds rate limiter configuration
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// IdleTTL evicts buckets not touched for this long. Zero keeps them for five minutes.
	IdleTTL time.Duration
	// Key defaults to the client IP.
	Key KeyFunc
}

// RateLimiter throttles requests with one token bucket per key.
// Idle buckets are evicted lazily on the request path, so no goroutine is
// left behind when a router is discarded.
type RateLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	key   KeyFunc
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a keyed limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	key := cfg.Key
	if key == nil {
		key = getClientIP
	}
	return &RateLimiter{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
		ttl:     ttl,
		key:     key,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// NewUserRateLimiter charges authenticated requests to the caller's user ID
// and anonymous ones to the client IP. Mount it after JWTMiddleware.
func NewUserRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		RequestsPerSecond: requestsPerSecond,
		BurstSize:         burst,
		Key:               userOrIPKey,
	})
}

// Allow reports whether one more request for key fits in its bucket.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) > rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Len returns the number of live buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rl.key(r)) {
			writeRateLimited(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userOrIPKey(r *http.Request) string {
	if claims, ok := GetClaims(r.Context()); ok {
		return "user:" + claims.UserID.String()
	}
	return "ip:" + getClientIP(r)
}

func writeRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", "1")
	writeJSONError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.", "RATE_LIMITED")
}

// getClientIP prefers proxy headers: the first X-Forwarded-For hop, then
// X-Real-IP, then the peer address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return stripPort(strings.TrimSpace(first))
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
