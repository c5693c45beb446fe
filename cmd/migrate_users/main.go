// Command migrate_users copies players from a users.json file into
// PostgreSQL. Addresses already present in the database are skipped.
package main

import (
	"context"
	"flag"
	"os"

	"gold_mining/internal/db"
	"gold_mining/internal/game"
	"gold_mining/internal/logger"
	"gold_mining/internal/repository"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = godotenv.Load()
	logger.Init("info", false)

	from := flag.String("from", envOr("USERS_FILE_PATH", "data/users.json"), "users.json to import")
	catalogPath := flag.String("catalog", os.Getenv("CATALOG_PATH"), "catalog override (yaml)")
	dryRun := flag.Bool("dry-run", false, "read the file and report without writing")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" && !*dryRun {
		logger.Fatal("DATABASE_URL not set")
	}

	catalog := game.DefaultCatalog()
	if *catalogPath != "" {
		c, err := game.LoadCatalog(*catalogPath)
		if err != nil {
			logger.Fatal("failed to load catalog", "error", err)
		}
		catalog = c
	}

	clock := clockwork.NewRealClock()
	ctx := context.Background()

	src, err := repository.OpenFileStore(*from, catalog.Kinds(), clock)
	if err != nil {
		logger.Fatal("failed to read users file", "path", *from, "error", err)
	}
	players, err := src.Players(ctx)
	if err != nil {
		logger.Fatal("failed to list players", "error", err)
	}
	logger.Info("users file loaded", "path", *from, "players", len(players))
	if *dryRun {
		return
	}

	if err := db.MigrateUp(dsn, logger.Get()); err != nil {
		logger.Fatal("failed to apply migrations", "error", err)
	}
	pool, err := db.Connect(ctx, dsn, db.PoolOptions{MaxConns: 4})
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()
	dst := repository.NewPlayerRepository(pool, catalog.Kinds(), clock)

	var imported, skipped, failed int
	for _, p := range players {
		ok, err := dst.Import(ctx, p)
		switch {
		case err != nil:
			failed++
			logger.Error("import failed", "address", p.Address, "error", err)
		case ok:
			imported++
		default:
			skipped++
		}
	}
	logger.Info("import finished", "imported", imported, "skipped", skipped, "failed", failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
