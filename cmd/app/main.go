package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gold_mining/internal/chain"
	"gold_mining/internal/config"
	"gold_mining/internal/db"
	"gold_mining/internal/game"
	httpServer "gold_mining/internal/http"
	"gold_mining/internal/http/handlers"
	"gold_mining/internal/http/middleware"
	"gold_mining/internal/jobs"
	"gold_mining/internal/lock"
	"gold_mining/internal/logger"
	"gold_mining/internal/repository"
	"gold_mining/internal/service"
	"gold_mining/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	redis "github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)
	clock := clockwork.NewRealClock()

	catalog := game.DefaultCatalog()
	if cfg.CatalogPath != "" {
		c, err := game.LoadCatalog(cfg.CatalogPath)
		if err != nil {
			logger.Fatal("failed to load catalog", "path", cfg.CatalogPath, "error", err)
		}
		catalog = c
	}

	rdb := connectRedis(cfg)
	if rdb != nil {
		defer rdb.Close()
	}
	middleware.InitRedisRateLimiter(rdb)

	var (
		store      repository.PlayerStore
		auditStore service.AuditStore
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		if err := db.MigrateUp(cfg.DatabaseURL, logger.Get()); err != nil {
			logger.Fatal("failed to apply migrations", "error", err)
		}
		pool, err := db.Connect(context.Background(), cfg.DatabaseURL, cfg.PoolOptions())
		if err != nil {
			logger.Fatal("failed to connect to database", "error", err)
		}
		defer pool.Close()
		store = repository.NewPlayerRepository(pool, catalog.Kinds(), clock)
		auditStore = repository.NewAuditRepository(pool)
	default:
		fs, err := repository.OpenFileStore(cfg.UsersFilePath, catalog.Kinds(), clock)
		if err != nil {
			logger.Fatal("failed to open users file", "path", cfg.UsersFilePath, "error", err)
		}
		store = fs
		logger.Info("using file store", "path", cfg.UsersFilePath)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.LockBackend == config.LockRedis {
		if rdb == nil {
			logger.Fatal("LOCK_BACKEND=redis but redis is unreachable", "addr", cfg.RedisAddr)
		}
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, clock)
	}

	chainClient := chain.NewClient(cfg.ClusterURL, cfg.ChainTimeout)
	treasury := cfg.TreasuryPublicKey
	var dispatcher chain.Dispatcher
	if cfg.TreasurySecretKey != "" {
		t, err := chain.NewTreasury(chainClient, cfg.TreasurySecretKey)
		if err != nil {
			logger.Fatal("failed to load treasury key", "error", err)
		}
		if treasury != "" && treasury != t.PublicKey() {
			logger.Fatal("TREASURY_PUBLIC_KEY does not match TREASURY_SECRET_KEY")
		}
		treasury = t.PublicKey()
		dispatcher = t
	} else {
		logger.Warn("no treasury signer configured, sells will be queued as pending payouts")
	}

	economy := service.Economy{
		Catalog: catalog,
		Sell: game.SellPolicy{
			MinSellGold:      cfg.MinSellGold,
			Tolerance:        cfg.SellTolerance,
			ClientGoldWindow: cfg.ClientGoldWindow,
			ClientGoldBuffer: cfg.ClientGoldBuffer,
		},
		GoldPriceSOL:     cfg.GoldPriceSOL,
		LandCostSOL:      cfg.LandCostSOL,
		LandStartingGold: cfg.LandStartingGold,
		RequireLand:      cfg.RequireLand,
		StrictSignatures: cfg.Strict(),
		Treasury:         treasury,
		ClusterURL:       chainClient.ClusterURL(),
	}

	ledger := service.NewLedger(store, locker, clock, economy, service.NewAuditService(auditStore))
	hub := ws.NewHub()
	ledger.SetNotifier(hub)

	mining := service.NewMiningService(ledger, chainClient, chainClient)
	payout := service.NewPayoutService(ledger, dispatcher, cfg.ReconcileConcurrency)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler, err := jobs.NewScheduler(payout, cfg.ReconcileCron)
	if err != nil {
		logger.Fatal("invalid reconcile schedule", "error", err)
	}
	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("failed to start reconciler", "error", err)
	}

	r := gin.Default()

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (cfg.AllowedOrigin == "" || origin == cfg.AllowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	var redisPing handlers.Pinger
	if rdb != nil {
		redisPing = handlers.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}

	httpServer.RegisterRoutes(r, httpServer.Options{
		Mining:        mining,
		Payout:        payout,
		Hub:           hub,
		Version:       version,
		Store:         store,
		StoreKind:     cfg.StoreBackend,
		Redis:         redisPing,
		LockBackend:   cfg.LockBackend,
		APIRateLimit:  cfg.APIRateLimit,
		APIRateWindow: cfg.APIRateWindow,
		AllowedOrigin: cfg.AllowedOrigin,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "cluster", economy.ClusterURL, "store", cfg.StoreBackend, "signature_policy", cfg.SignaturePolicy)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	hub.Close()

	logger.Info("server exited")
}

// connectRedis returns nil when REDIS_ADDR is unset or the ping fails, so
// the rate limiter falls back to memory.
func connectRedis(cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
