package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, e.g. a redis client ping.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// PlayerStore is what readiness needs from the player store.
type PlayerStore interface {
	Pinger
	ListPendingPayoutAddresses(ctx context.Context) ([]string, error)
}

// HealthOptions describes the backends the running process was wired with.
type HealthOptions struct {
	Store       PlayerStore
	StoreKind   string
	Redis       Pinger // nil when REDIS_ADDR is unset
	LockBackend string
	Version     string
}

type HealthHandler struct {
	opts      HealthOptions
	startTime time.Time
}

func NewHealthHandler(opts HealthOptions) *HealthHandler {
	return &HealthHandler{opts: opts, startTime: time.Now()}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version,omitempty"`
	Uptime    string            `json:"uptime,omitempty"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// Liveness only says the process is up.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness checks every backend a ledger write depends on. Redis is only
// fatal when it holds the player locks; the rate limiter fails open.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{
		"store_backend": h.opts.StoreKind,
		"lock_backend":  h.opts.LockBackend,
	}
	status := "healthy"

	if err := h.opts.Store.Ping(ctx); err != nil {
		checks["store"] = "unhealthy: " + err.Error()
		status = "unhealthy"
	} else {
		checks["store"] = "healthy"
		if addrs, err := h.opts.Store.ListPendingPayoutAddresses(ctx); err == nil {
			checks["players_with_pending_payouts"] = strconv.Itoa(len(addrs))
		}
	}

	switch {
	case h.opts.Redis == nil:
		checks["redis"] = "disabled"
	case h.opts.Redis.Ping(ctx) != nil:
		checks["redis"] = "unhealthy"
		if h.opts.LockBackend == "redis" {
			status = "unhealthy"
		} else if status == "healthy" {
			status = "degraded"
		}
	default:
		checks["redis"] = "healthy"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, HealthResponse{
		Status:    status,
		Version:   h.opts.Version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

// Health is the short form used by load balancers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.opts.Store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  h.opts.StoreKind + " store unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"store":   h.opts.StoreKind,
		"version": h.opts.Version,
	})
}
