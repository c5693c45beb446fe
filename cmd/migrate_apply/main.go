package main

import (
	"flag"
	"os"

	"gold_mining/internal/db"
	"gold_mining/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger.Init("info", false)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}

	down := flag.Bool("down", false, "roll back the most recent migration")
	status := flag.Bool("status", false, "print migration status and exit")
	flag.Parse()

	var err error
	switch {
	case *status:
		err = db.MigrateStatus(dsn, logger.Get())
	case *down:
		err = db.MigrateDown(dsn, logger.Get())
	default:
		err = db.MigrateUp(dsn, logger.Get())
	}
	if err != nil {
		logger.Fatal("migration failed", "error", err)
	}
}
