package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/slotbook/booking-api/internal/handler"
)

// rateLimiter keeps a token bucket per client IP. Buckets idle past the
// stale window are dropped so the map does not grow unbounded.
type rateLimiter struct {
	sync.Mutex
	clients map[string]*clientBucket
	rate    rate.Limit
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const staleClientWindow = 10 * time.Minute

func NewRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	return &rateLimiter{
		clients: make(map[string]*clientBucket),
		rate:    rate.Limit(requestsPerSecond),
		burst:   burst,
	}
}

func (rl *rateLimiter) cleanup() {
	rl.Lock()
	defer rl.Unlock()

	now := time.Now()
	for ip, b := range rl.clients {
		if now.Sub(b.lastSeen) > staleClientWindow {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) limiterFor(ip string) *rate.Limiter {
	rl.Lock()
	defer rl.Unlock()

	b, ok := rl.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (rl *rateLimiter) RateLimit() gin.HandlerFunc {
	go func() {
		for {
			time.Sleep(staleClientWindow)
			rl.cleanup()
		}
	}()

	return func(c *gin.Context) {
		if !rl.limiterFor(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}
