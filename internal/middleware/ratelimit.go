package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Default rate limiting values for the credential endpoints.
const (
	// DefaultRate is the sustained number of requests per second per client.
	DefaultRate = 1.0

	// DefaultBurst is how many requests a client may make back to back
	// before the limiter starts rejecting.
	DefaultBurst = 5

	// clientIdleTTL is how long a client's bucket is kept after its last request.
	clientIdleTTL = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-client-IP token bucket. It is meant for the signup and
// signin endpoints, where it slows down password guessing.
//
// Idle buckets are swept inline, at most once per clientIdleTTL, so the
// limiter needs no background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*client
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time

	metrics *Metrics
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter allowing perSecond sustained requests with
// the given burst. Non-positive values select the defaults. metrics may be nil.
func NewRateLimiter(perSecond float64, burst int, metrics *Metrics, logger *slog.Logger) *RateLimiter {
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
		metrics: metrics,
		logger:  logger,
	}
}

// Allow reports whether the client at key may proceed. When it may not, the
// returned duration is how long until it can.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now

	res := c.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		// Give the token back; a rejected request must not use up capacity.
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < clientIdleTTL {
		return
	}
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) > clientIdleTTL {
			delete(rl.clients, key)
		}
	}
	rl.lastSweep = now
}

// Handler rejects over-limit requests with 429 Too Many Requests and a
// Retry-After header.
//
// It keys on r.RemoteAddr, so mount it after chi's RealIP middleware when the
// server sits behind a proxy. Mount it per route (r.With) so the rejection
// metric carries the route pattern.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)

		ok, wait := rl.Allow(key)
		if !ok {
			if rl.metrics != nil {
				rl.metrics.RateLimited.WithLabelValues(routePattern(r)).Inc()
			}
			rl.logger.Warn("rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path),
			)

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate_limited","message":"too many requests, slow down"}` + "\n"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RealIP rewrites RemoteAddr to a bare IP.
		return r.RemoteAddr
	}
	return host
}
