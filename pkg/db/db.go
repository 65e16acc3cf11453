package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/fx"

	"github.com/elee1766/gozfs/pkg/config"
	"github.com/elee1766/gozfs/pkg/db/queries"
	"github.com/elee1766/gozfs/pkg/runner"
)

var Module = fx.Module("db",
	fx.Provide(New),
)

// DB is the invocation journal. It implements runner.Recorder.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

var _ runner.Recorder = (*DB)(nil)

// New returns nil when the journal is disabled.
func New(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	if !cfg.Journal {
		logger.Info("invocation journal disabled")
		return nil, nil
	}

	db, err := Open(cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			db.logger.Info("closing database")
			return db.Close()
		},
	})

	return db, nil
}

// Open opens the journal at path, creating and migrating it as needed.
func Open(path string, logger *slog.Logger) (*DB, error) {
	logger = logger.With("component", "db")

	// Ensure db directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// runner goroutines record concurrently; one connection serializes them
	conn.SetMaxOpenConns(1)

	db := &DB{
		conn:   conn,
		logger: logger,
	}

	if err := db.init(); err != nil {
		conn.Close()
		return nil, err
	}

	logger.Debug("database initialized", "path", path)
	return db, nil
}

func (db *DB) init() error {
	db.logger.Debug("initializing database with migrations")

	if _, err := db.conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("failed to enable wal: %w", err)
	}

	return db.RunMigrations()
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Record stores a finished zfs invocation.
func (db *DB) Record(ctx context.Context, inv runner.Invocation) error {
	row := &queries.Invocation{
		ID:        inv.ID.String(),
		Args:      inv.Args,
		Mode:      string(inv.Mode),
		DryRun:    inv.DryRun,
		StartedAt: inv.StartedAt,
		Duration:  inv.Duration,
		ExitCode:  inv.ExitCode,
	}
	if len(inv.Args) > 0 {
		row.Subcommand = inv.Args[0]
	}
	if inv.Err != nil {
		row.Error = sql.NullString{String: inv.Err.Error(), Valid: true}
	}
	if err := queries.InsertInvocation(ctx, db.conn, row); err != nil {
		return fmt.Errorf("failed to record invocation: %w", err)
	}
	return nil
}
