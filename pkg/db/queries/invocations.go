package queries

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Invocation struct {
	ID         string
	Subcommand string
	Args       []string
	Mode       string
	DryRun     bool
	StartedAt  time.Time
	Duration   time.Duration
	ExitCode   int
	Error      sql.NullString
}

func InsertInvocation(ctx context.Context, db *sql.DB, inv *Invocation) error {
	args, err := json.Marshal(inv.Args)
	if err != nil {
		return fmt.Errorf("failed to encode args: %w", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO invocations (id, subcommand, args, mode, dry_run, started_at, duration_ms, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.Subcommand, string(args), inv.Mode, inv.DryRun, inv.StartedAt.UnixMilli(),
		inv.Duration.Milliseconds(), inv.ExitCode, inv.Error)
	return err
}

// InvocationFilter narrows ListInvocations. Zero values match everything.
type InvocationFilter struct {
	Subcommand string
	FailedOnly bool
	Since      time.Time
	Limit      int
}

// ListInvocations returns matching invocations, newest first.
func ListInvocations(ctx context.Context, db *sql.DB, f InvocationFilter) ([]*Invocation, error) {
	query := `
		SELECT id, subcommand, args, mode, dry_run, started_at, duration_ms, exit_code, error
		FROM invocations
		WHERE 1=1
	`
	args := []any{}

	if f.Subcommand != "" {
		query += " AND subcommand = ?"
		args = append(args, f.Subcommand)
	}

	if f.FailedOnly {
		query += " AND exit_code != 0"
	}

	if !f.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, f.Since.UnixMilli())
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invocations []*Invocation
	for rows.Next() {
		var (
			inv        Invocation
			rawArgs    string
			startedAt  int64
			durationMs int64
		)
		err := rows.Scan(&inv.ID, &inv.Subcommand, &rawArgs, &inv.Mode, &inv.DryRun, &startedAt, &durationMs,
			&inv.ExitCode, &inv.Error)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(rawArgs), &inv.Args); err != nil {
			return nil, fmt.Errorf("invocation %s: failed to decode args: %w", inv.ID, err)
		}
		inv.StartedAt = time.UnixMilli(startedAt)
		inv.Duration = time.Duration(durationMs) * time.Millisecond
		invocations = append(invocations, &inv)
	}

	return invocations, rows.Err()
}

// PruneInvocations deletes invocations started before cutoff and returns how
// many were removed.
func PruneInvocations(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM invocations WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountInvocations returns the total and failed invocation counts.
func CountInvocations(ctx context.Context, db *sql.DB) (total, failed int64, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN exit_code != 0 THEN 1 ELSE 0 END), 0)
		FROM invocations
	`).Scan(&total, &failed)
	return total, failed, err
}
