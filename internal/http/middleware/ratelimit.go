package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// memoryLimiter is a fixed-window counter per key, for single instance
// deployments without Redis.
type memoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	clients map[string]*clientInfo
	now     func() time.Time
}

func newMemoryLimiter(maxRequests int, window time.Duration) *memoryLimiter {
	return &memoryLimiter{
		window:  window,
		max:     maxRequests,
		clients: make(map[string]*clientInfo),
		now:     time.Now,
	}
}

func (l *memoryLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > l.window {
		if len(l.clients) > 10000 {
			l.sweep(now)
		}
		l.clients[key] = &clientInfo{start: now, count: 1}
		return true
	}
	ci.count++
	return ci.count <= l.max
}

func (l *memoryLimiter) sweep(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) > l.window {
			delete(l.clients, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newMemoryLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
