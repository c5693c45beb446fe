package config

import (
	"fmt"
	"time"

	"gold_mining/internal/db"
	"gold_mining/internal/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	StoreFile     = "file"
	StorePostgres = "postgres"

	LockMemory = "memory"
	LockRedis  = "redis"

	SignatureStrict     = "strict"
	SignaturePermissive = "permissive"
)

type Config struct {
	AppPort  string `envconfig:"APP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	// Storage
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"file"`
	UsersFilePath string `envconfig:"USERS_FILE_PATH" default:"data/users.json"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`

	DBMaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"1h"`
	DBMaxConnIdleTime time.Duration `envconfig:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	LockBackend string        `envconfig:"LOCK_BACKEND" default:"memory"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"10s"`

	// Chain
	ClusterURL        string        `envconfig:"SOLANA_CLUSTER_URL" default:"https://api.devnet.solana.com"`
	TreasuryPublicKey string        `envconfig:"TREASURY_PUBLIC_KEY"`
	TreasurySecretKey string        `envconfig:"TREASURY_SECRET_KEY"`
	ChainTimeout      time.Duration `envconfig:"CHAIN_TIMEOUT" default:"5s"`

	// Economy
	GoldPriceSOL     float64       `envconfig:"GOLD_PRICE_SOL" default:"0.000001"`
	MinSellGold      float64       `envconfig:"MIN_SELL_GOLD" default:"100"`
	LandCostSOL      float64       `envconfig:"LAND_COST_SOL" default:"0.01"`
	LandStartingGold float64       `envconfig:"LAND_STARTING_GOLD" default:"0"`
	SellTolerance    float64       `envconfig:"SELL_TOLERANCE" default:"0.01"`
	ClientGoldWindow time.Duration `envconfig:"CLIENT_GOLD_WINDOW" default:"2h"`
	ClientGoldBuffer float64       `envconfig:"CLIENT_GOLD_BUFFER" default:"500"`
	SignaturePolicy  string        `envconfig:"SIGNATURE_POLICY" default:"permissive"`
	RequireLand      bool          `envconfig:"REQUIRE_LAND_FOR_EQUIPMENT" default:"true"`
	CatalogPath      string        `envconfig:"CATALOG_PATH"`

	// Reconciliation of pending payouts
	ReconcileCron        string `envconfig:"RECONCILE_CRON" default:"@every 5m"`
	ReconcileConcurrency int    `envconfig:"RECONCILE_CONCURRENCY" default:"4"`

	// HTTP
	JWTSecret     string        `envconfig:"JWT_SECRET"`
	APIRateLimit  int           `envconfig:"API_RATE_LIMIT" default:"60"`
	APIRateWindow time.Duration `envconfig:"API_RATE_WINDOW" default:"1m"`
	AllowedOrigin string        `envconfig:"ALLOWED_ORIGIN"`
}

// Load reads .env (if present) and the environment. Invalid config is fatal.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// Parse fills Config from the environment without touching .env files.
func Parse() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreFile:
		if c.UsersFilePath == "" {
			return fmt.Errorf("USERS_FILE_PATH is required for the file store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (> 0)")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.LockBackend {
	case LockMemory:
	case LockRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis lock")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.SignaturePolicy != SignatureStrict && c.SignaturePolicy != SignaturePermissive {
		return fmt.Errorf("SIGNATURE_POLICY must be %q or %q", SignatureStrict, SignaturePermissive)
	}
	if c.GoldPriceSOL <= 0 {
		return fmt.Errorf("GOLD_PRICE_SOL must be > 0")
	}
	if c.MinSellGold < 0 || c.SellTolerance < 0 || c.ClientGoldBuffer < 0 || c.LandStartingGold < 0 {
		return fmt.Errorf("economy limits must not be negative")
	}
	if c.LandCostSOL <= 0 {
		return fmt.Errorf("LAND_COST_SOL must be > 0")
	}
	if c.ClientGoldWindow <= 0 || c.ChainTimeout <= 0 || c.LockTTL <= 0 {
		return fmt.Errorf("durations must be > 0")
	}
	if c.ReconcileConcurrency <= 0 {
		return fmt.Errorf("RECONCILE_CONCURRENCY must be > 0")
	}
	if c.APIRateLimit <= 0 || c.APIRateWindow <= 0 {
		return fmt.Errorf("API rate limit settings must be > 0")
	}
	return nil
}

// Strict reports whether unverifiable purchase signatures are rejected.
func (c *Config) Strict() bool {
	return c.SignaturePolicy == SignatureStrict
}

func (c *Config) PoolOptions() db.PoolOptions {
	return db.PoolOptions{
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}
