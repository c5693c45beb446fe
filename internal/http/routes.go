package http

import (
	"time"

	"gold_mining/internal/http/handlers"
	"gold_mining/internal/http/middleware"
	"gold_mining/internal/service"
	"gold_mining/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options carries the pieces the router needs from startup.
type Options struct {
	Mining  *service.MiningService
	Payout  *service.PayoutService
	Hub     *ws.Hub
	Version string

	Store       handlers.PlayerStore
	StoreKind   string
	Redis       handlers.Pinger
	LockBackend string

	APIRateLimit  int
	APIRateWindow time.Duration
	AllowedOrigin string
}

func RegisterRoutes(r *gin.Engine, opts Options) {
	h := handlers.NewHandler(opts.Mining, opts.Payout)
	healthHandler := handlers.NewHealthHandler(handlers.HealthOptions{
		Store:       opts.Store,
		StoreKind:   opts.StoreKind,
		Redis:       opts.Redis,
		LockBackend: opts.LockBackend,
		Version:     opts.Version,
	})

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// API v1 routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.RedisRateLimit(opts.APIRateLimit, opts.APIRateWindow))
	registerAPIRoutes(v1, h, opts)

	// Unversioned /api routes, kept for the existing frontend
	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit(opts.APIRateLimit, opts.APIRateWindow))
	api.GET("/health", healthHandler.Health)
	registerAPIRoutes(api, h, opts)

	// WebSocket status push
	r.GET("/ws", ws.HandleWS(opts.Hub, opts.Mining.Status, opts.AllowedOrigin))
}

func registerAPIRoutes(api *gin.RouterGroup, h *handlers.Handler, opts Options) {
	// Reads
	api.GET("/status", h.Status)
	api.GET("/land-status", h.LandStatus)
	api.GET("/config", h.Config)

	// Per-wallet limit on anything that mutates the ledger
	walletRL := middleware.WalletRateLimit(opts.APIRateLimit, opts.APIRateWindow)

	// Purchases
	api.POST("/buy-with-gold", walletRL, h.BuyWithGold)
	api.POST("/purchase-confirm", walletRL, h.PurchaseConfirm)
	api.POST("/confirm-land-purchase", walletRL, h.ConfirmLandPurchase)
	api.POST("/purchase-tx", h.PurchaseTx)
	api.POST("/purchase-land", h.PurchaseLand)

	// Cash out
	api.POST("/sell", walletRL, h.Sell)

	// Operator endpoints, only with JWT_SECRET set
	if service.JWTEnabled() {
		admin := api.Group("/admin")
		admin.Use(middleware.AdminJWT())
		{
			admin.GET("/pending", h.PendingPayouts)
			admin.POST("/reconcile", h.Reconcile)
		}
	}
}
