package db

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseLogger sends goose output to slog instead of standard error.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

func (db *DB) goose() error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: db.logger})
	return goose.SetDialect("sqlite3")
}

// RunMigrations runs all pending migrations using goose
func (db *DB) RunMigrations() error {
	if err := db.goose(); err != nil {
		return err
	}

	// Log current version before migrating
	version, err := goose.GetDBVersion(db.conn)
	if err != nil {
		db.logger.Debug("no existing migration version", "error", err)
	} else {
		db.logger.Debug("current migration version", "version", version)
	}

	if err := goose.Up(db.conn, "migrations"); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// ResetDatabase drops the journal and reruns migrations
func (db *DB) ResetDatabase() error {
	db.logger.Warn("resetting database - all history will be lost!")

	if err := db.goose(); err != nil {
		return err
	}

	// Down to version 0
	if err := goose.DownTo(db.conn, "migrations", 0); err != nil {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}

	// Back up
	return goose.Up(db.conn, "migrations")
}

// GetMigrationVersion returns the current migration version
func (db *DB) GetMigrationVersion() (int64, error) {
	if err := db.goose(); err != nil {
		return 0, err
	}

	return goose.GetDBVersion(db.conn)
}
