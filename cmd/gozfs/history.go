package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alessio/shellescape"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/elee1766/gozfs/pkg/db"
	"github.com/elee1766/gozfs/pkg/db/queries"
)

var errNoJournal = errors.New("the invocation journal is disabled (GOZFS_JOURNAL=off)")

// HistoryCmd contains journal subcommands
type HistoryCmd struct {
	List  HistoryListCmd  `cmd:"" default:"withargs" help:"List recorded invocations"`
	Prune HistoryPruneCmd `cmd:"" help:"Delete old invocations"`
	Reset HistoryResetCmd `cmd:"" help:"Drop and recreate the journal"`
}

func (cli *CLI) journal() (*db.DB, error) {
	cfg, err := cli.config()
	if err != nil {
		return nil, err
	}
	if !cfg.Journal {
		return nil, errNoJournal
	}
	return db.Open(cfg.DBPath, makeLogger(cfg.LogLevel, cfg.LogFormat))
}

type historyView struct {
	ID        string    `yaml:"id"`
	Args      []string  `yaml:"args"`
	Mode      string    `yaml:"mode"`
	DryRun    bool      `yaml:"dry_run,omitempty"`
	StartedAt time.Time `yaml:"started_at"`
	Duration  string    `yaml:"duration"`
	ExitCode  int       `yaml:"exit_code"`
	Error     string    `yaml:"error,omitempty"`
}

// HistoryListCmd lists invocations
type HistoryListCmd struct {
	Subcommand string        `arg:"" optional:"" help:"Only show this zfs subcommand"`
	Failed     bool          `short:"f" help:"Only show failed invocations"`
	Since      time.Duration `help:"Only show invocations started within this duration"`
	Limit      int           `short:"N" default:"50" help:"Maximum number of invocations"`
}

func (c *HistoryListCmd) Run(cli *CLI, ctx context.Context) error {
	j, err := cli.journal()
	if err != nil {
		return err
	}
	defer j.Close()

	filter := queries.InvocationFilter{
		Subcommand: c.Subcommand,
		FailedOnly: c.Failed,
		Limit:      c.Limit,
	}
	if c.Since > 0 {
		filter.Since = time.Now().Add(-c.Since)
	}
	invs, err := queries.ListInvocations(ctx, j.Conn(), filter)
	if err != nil {
		return fmt.Errorf("failed to list invocations: %w", err)
	}

	if cli.Output == "yaml" {
		views := make([]historyView, 0, len(invs))
		for _, inv := range invs {
			views = append(views, historyView{
				ID:        inv.ID,
				Args:      inv.Args,
				Mode:      inv.Mode,
				DryRun:    inv.DryRun,
				StartedAt: inv.StartedAt,
				Duration:  inv.Duration.String(),
				ExitCode:  inv.ExitCode,
				Error:     inv.Error.String,
			})
		}
		return writeYAML(cli.out(), views)
	}

	t := newTable(cli.out())
	t.AppendHeader(table.Row{"Started", "Command", "Mode", "Duration", "Exit", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, inv := range invs {
		mode := inv.Mode
		if inv.DryRun {
			mode += " (dry run)"
		}
		t.AppendRow(table.Row{
			humanize.Time(inv.StartedAt),
			shellescape.QuoteCommand(inv.Args),
			mode,
			inv.Duration.Round(time.Millisecond),
			inv.ExitCode,
			inv.Error.String,
		})
	}
	t.Render()
	return nil
}

// HistoryPruneCmd deletes old invocations
type HistoryPruneCmd struct {
	OlderThan time.Duration `arg:"" help:"Delete invocations started before now minus this duration, e.g. 720h"`
}

func (c *HistoryPruneCmd) Run(cli *CLI, ctx context.Context) error {
	if c.OlderThan <= 0 {
		return fmt.Errorf("duration must be positive, got %s", c.OlderThan)
	}
	j, err := cli.journal()
	if err != nil {
		return err
	}
	defer j.Close()

	n, err := queries.PruneInvocations(ctx, j.Conn(), time.Now().Add(-c.OlderThan))
	if err != nil {
		return fmt.Errorf("failed to prune invocations: %w", err)
	}
	fmt.Fprintf(cli.out(), "pruned %s invocations\n", humanize.Comma(n))
	return nil
}

// HistoryResetCmd drops the journal
type HistoryResetCmd struct {
	Yes bool `short:"y" help:"Confirm the reset"`
}

func (c *HistoryResetCmd) Run(cli *CLI) error {
	if !c.Yes {
		return errors.New("resetting deletes every recorded invocation; pass --yes to confirm")
	}
	j, err := cli.journal()
	if err != nil {
		return err
	}
	defer j.Close()

	if err := j.ResetDatabase(); err != nil {
		return fmt.Errorf("failed to reset journal: %w", err)
	}
	fmt.Fprintln(cli.out(), "journal reset")
	return nil
}
