package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ClientLimiter throttles chat traffic per client with a token bucket.
// Clients are keyed by the widget's X-Session-Id header when present and by
// IP otherwise, so one chatty visitor behind a shared NAT does not starve
// the rest.
type ClientLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	rate    float64 // tokens refilled per second
	burst   float64
	now     func() time.Time

	nextSweep time.Time
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

const (
	bucketStaleAfter = 10 * time.Minute
	bucketSweepEvery = 5 * time.Minute
)

// NewClientLimiter allows rate requests/sec per client with the given burst.
func NewClientLimiter(rate float64, burst int) *ClientLimiter {
	return &ClientLimiter{
		clients: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   float64(burst),
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed. When denied it also returns
// how long the client should wait before retrying.
func (cl *ClientLimiter) Allow(key string) (bool, time.Duration) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	cl.sweepLocked(now)

	b, ok := cl.clients[key]
	if !ok {
		b = &tokenBucket{tokens: cl.burst, seen: now}
		cl.clients[key] = b
	}
	b.tokens = math.Min(cl.burst, b.tokens+now.Sub(b.seen).Seconds()*cl.rate)
	b.seen = now

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / cl.rate * float64(time.Second))
		return false, wait
	}
	b.tokens--
	return true, 0
}

// sweepLocked evicts buckets idle past bucketStaleAfter. It runs at most
// once per bucketSweepEvery, piggybacked on Allow instead of a janitor
// goroutine.
func (cl *ClientLimiter) sweepLocked(now time.Time) {
	if now.Before(cl.nextSweep) {
		return
	}
	cl.nextSweep = now.Add(bucketSweepEvery)
	cutoff := now.Add(-bucketStaleAfter)
	for key, b := range cl.clients {
		if b.seen.Before(cutoff) {
			delete(cl.clients, key)
		}
	}
}

func clientKey(r *http.Request) string {
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return "session:" + sid
	}
	// X-Real-Ip is set by chi's RealIP middleware.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return "ip:" + xri
	}
	return "ip:" + r.RemoteAddr
}

// RateLimit returns an HTTP middleware that rejects clients exceeding the
// configured rate with 429 Too Many Requests and a Retry-After hint.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewClientLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Allow(clientKey(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, "too many requests, please slow down", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
