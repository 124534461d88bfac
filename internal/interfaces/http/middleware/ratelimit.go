package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/LawLens/pkg/errors"
)

// RateLimiter hands out one token bucket per client key.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows rps sustained requests per client with the given
// burst. Buckets idle for idleTTL are dropped on the next sweep.
func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: idleTTL,
		clients: make(map[string]*client),
		now:     time.Now,
	}
}

// Reserve takes a token for key. When none is available it returns false
// and how long the caller should wait.
func (l *RateLimiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	cl, ok := l.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = cl
	}
	cl.lastSeen = now
	l.mu.Unlock()

	r := cl.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Sweep drops idle buckets and returns how many remain.
func (l *RateLimiter) Sweep() int {
	cutoff := l.now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, cl := range l.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(l.clients, k)
		}
	}
	return len(l.clients)
}

// RateLimit rejects over-limit clients, keyed by client IP, with 429.
func RateLimit(l *RateLimiter, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}
	var calls atomic.Uint64

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		if calls.Add(1)%1024 == 0 {
			l.Sweep()
		}

		ok, wait := l.Reserve(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(l.burst))
		if ok {
			c.Next()
			return
		}

		secs := int(wait.Seconds() + 0.999)
		if secs < 1 {
			secs = 1
		}
		c.Header("Retry-After", strconv.Itoa(secs))
		code := errors.ErrCodeTooManyRequests
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":    string(code),
			"message": errors.DefaultMessageForCode(code),
		})
	}
}
