package middleware

import (
	"context"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"financeplanner/internal/auth"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second per client
// with the given burst. It returns nil when rps <= 0, which disables limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*clientLimiter),
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.RLock()
	cl, ok := rl.limiters[key]
	rl.mu.RUnlock()
	if ok {
		rl.mu.Lock()
		cl.lastSeen = now
		rl.mu.Unlock()
		return cl.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Another request may have created it while we waited for the lock.
	if cl, ok = rl.limiters[key]; ok {
		cl.lastSeen = now
		return cl.limiter
	}

	cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now}
	rl.limiters[key] = cl
	return cl.limiter
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}

// Sweep drops limiters idle for longer than maxIdle and returns how many were removed.
func (rl *RateLimiter) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, cl := range rl.limiters {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle limiters every interval until ctx is cancelled.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := rl.Sweep(interval); n > 0 {
				log.Printf("rate limiter: dropped %d idle clients", n)
			}
		}
	}
}

// RateLimit rejects requests over the per-client budget with 429.
// A nil limiter passes everything through.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rl == nil {
			return next
		}
		retryAfter := strconv.Itoa(int(math.Ceil(1 / float64(rl.limit))))
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.Allow(ip) {
				log.Printf("rate limit exceeded: ip=%s path=%s", ip, r.URL.Path)
				w.Header().Set("Retry-After", retryAfter)
				auth.WriteJSONError(w, http.StatusTooManyRequests, "too many requests", "rate_limited")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the connection's remote address. Forwarded headers are ignored
// because they are trivially spoofed without a trusted proxy list.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
