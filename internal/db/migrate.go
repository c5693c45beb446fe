package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"gold_mining/internal/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type slogGooseLogger struct {
	log *slog.Logger
}

func (l *slogGooseLogger) Fatalf(format string, v ...any) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l *slogGooseLogger) Printf(format string, v ...any) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func open(dsn string, log *slog.Logger) (*sql.DB, error) {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	goose.SetLogger(&slogGooseLogger{log: log})
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return sqlDB, nil
}

// MigrateUp applies every pending embedded migration.
func MigrateUp(dsn string, log *slog.Logger) error {
	sqlDB, err := open(dsn, log)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info("running migrations (up)")
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the latest migration.
func MigrateDown(dsn string, log *slog.Logger) error {
	sqlDB, err := open(dsn, log)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	log.Info("rolling back migration (down)")
	if err := goose.Down(sqlDB, "."); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}

func MigrateStatus(dsn string, log *slog.Logger) error {
	sqlDB, err := open(dsn, log)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return goose.Status(sqlDB, ".")
}
