package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Buckets idle longer than this are dropped on the next sweep.
const bucketIdleTimeout = 10 * time.Minute

// RateLimiter throttles the public webhook per source IP with a token
// bucket. Meta retries aggressively when a webhook errors, so the limit
// answers 429 instead of dropping the connection.
type RateLimiter struct {
	rate  float64
	burst float64

	mu      sync.Mutex
	buckets map[string]*ipBucket
	sweepAt time.Time
}

type ipBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rate requests/sec with the
// given burst size per IP.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*ipBucket),
		sweepAt: time.Now().Add(bucketIdleTimeout),
	}
}

// Allow reports whether a request from ip is within the limit and
// consumes a token when it is.
func (rl *RateLimiter) Allow(ip string) bool {
	return rl.allowAt(ip, time.Now())
}

func (rl *RateLimiter) allowAt(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.After(rl.sweepAt) {
		rl.sweep(now)
	}

	b, ok := rl.buckets[ip]
	if !ok {
		b = &ipBucket{tokens: rl.burst, seen: now}
		rl.buckets[ip] = b
	} else {
		b.tokens += now.Sub(b.seen).Seconds() * rl.rate
		if b.tokens > rl.burst {
			b.tokens = rl.burst
		}
		b.seen = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets so one-off senders do not accumulate.
// Caller holds rl.mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for ip, b := range rl.buckets {
		if now.Sub(b.seen) > bucketIdleTimeout {
			delete(rl.buckets, ip)
		}
	}
	rl.sweepAt = now.Add(bucketIdleTimeout)
}

// RateLimit rejects requests beyond the configured per-IP rate with
// 429 Too Many Requests and a Retry-After hint.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	retryAfter := strconv.Itoa(int(1/rate) + 1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// chi's RealIP middleware rewrites this header upstream.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				w.Header().Set("Retry-After", retryAfter)
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
