package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// WalletRateLimit limits requests per wallet address, not per IP. The
// address is taken from the query string or the JSON body; the body is
// restored for the handler.
func WalletRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	fallback := newMemoryLimiter(maxRequests, window)
	return func(c *gin.Context) {
		address := walletAddress(c)
		if address == "" {
			// the handler rejects it
			c.Next()
			return
		}

		if redisClient == nil {
			if !fallback.allow(address) {
				RLBlocked.WithLabelValues("wallet:" + c.FullPath()).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}
			c.Next()
			return
		}

		key := "wallet_rl:" + address + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		if !allowRedis(c, key, maxRequests, window, "wallet:") {
			return
		}
		c.Next()
	}
}

func walletAddress(c *gin.Context) string {
	if a := c.Query("address"); a != "" {
		return a
	}
	if c.Request.Body == nil {
		return ""
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var probe struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.Address
}
