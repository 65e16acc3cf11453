package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"

	"github.com/elee1766/gozfs/pkg/config"
	"github.com/elee1766/gozfs/pkg/db"
	"github.com/elee1766/gozfs/pkg/runner"
	"github.com/elee1766/gozfs/pkg/zfsctl"
)

// CLI is the root command structure
type CLI struct {
	// Global flags
	LogLevel  string `short:"l" help:"Log level (debug, info, warn, error). Overrides GOZFS_LOG_LEVEL."`
	LogFormat string `help:"Log format (text, json). Overrides GOZFS_LOG_FORMAT."`
	ZFSBin    string `name:"zfs-bin" help:"zfs executable. Overrides GOZFS_ZFS_BIN."`
	DryRun    bool   `short:"n" help:"Print mutating zfs commands to stderr instead of running them"`
	NoJournal bool   `help:"Do not record invocations in the journal"`
	Output    string `short:"O" enum:"table,yaml" default:"table" help:"Output format (table, yaml)"`

	// Subcommands
	List      ListCmd      `cmd:"" aliases:"ls" help:"List datasets, snapshots and bookmarks"`
	Get       GetCmd       `cmd:"" help:"Show properties"`
	Create    CreateCmd    `cmd:"" help:"Create a filesystem or volume"`
	Snapshot  SnapshotCmd  `cmd:"" aliases:"snap" help:"Create a snapshot"`
	Bookmark  BookmarkCmd  `cmd:"" help:"Create a bookmark"`
	Destroy   DestroyCmd   `cmd:"" help:"Destroy a dataset, snapshot, snapshot range or bookmark"`
	Rename    RenameCmd    `cmd:"" help:"Rename a dataset or snapshot"`
	Clone     CloneCmd     `cmd:"" help:"Clone a snapshot"`
	Promote   PromoteCmd   `cmd:"" help:"Promote a clone"`
	Set       SetCmd       `cmd:"" help:"Set properties"`
	Inherit   InheritCmd   `cmd:"" help:"Clear a property so it is inherited"`
	Rollback  RollbackCmd  `cmd:"" help:"Roll a dataset back to a snapshot"`
	Send      SendCmd      `cmd:"" help:"Write a send stream to stdout"`
	Receive   ReceiveCmd   `cmd:"" aliases:"recv" help:"Receive a send stream from stdin"`
	Replicate ReplicateCmd `cmd:"" help:"Pipe zfs send into zfs receive"`
	History   HistoryCmd   `cmd:"" help:"Inspect the invocation journal"`
	Serve     ServeCmd     `cmd:"" help:"Run the API server"`

	stdout io.Writer
	stdin  io.Reader
}

func (cli *CLI) out() io.Writer {
	if cli.stdout != nil {
		return cli.stdout
	}
	return os.Stdout
}

func (cli *CLI) in() io.Reader {
	if cli.stdin != nil {
		return cli.stdin
	}
	return os.Stdin
}

// config applies the global flags on top of the environment.
func (cli *CLI) config() (*config.Config, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(cli.LogLevel)
	}
	if cli.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(cli.LogFormat)
	}
	if cli.ZFSBin != "" {
		cfg.ZFSBin = cli.ZFSBin
	}
	if cli.NoJournal {
		cfg.Journal = false
	}
	return cfg, cfg.Validate()
}

// runnerOptions wires the dry run flag and every non-nil recorder.
func (cli *CLI) runnerOptions(recs ...runner.Recorder) []runner.Option {
	var opts []runner.Option
	if len(recs) > 0 {
		opts = append(opts, runner.WithRecorder(runner.MultiRecorder(recs...)))
	}
	if cli.DryRun {
		opts = append(opts, runner.WithDryRun(os.Stderr))
	}
	return opts
}

// session is what a one-shot command needs: a manager and, when enabled,
// the journal it records to.
type session struct {
	cfg     *config.Config
	logger  *slog.Logger
	journal *db.DB
	manager *zfsctl.Manager
}

func (cli *CLI) open() (*session, error) {
	cfg, err := cli.config()
	if err != nil {
		return nil, err
	}
	logger := makeLogger(cfg.LogLevel, cfg.LogFormat)

	s := &session{cfg: cfg, logger: logger}
	var recs []runner.Recorder
	if cfg.Journal {
		if s.journal, err = db.Open(cfg.DBPath, logger); err != nil {
			return nil, err
		}
		recs = append(recs, s.journal)
	}
	s.manager = zfsctl.New(runner.New(cfg.ZFSBin, logger, cli.runnerOptions(recs...)...), logger)
	return s, nil
}

func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

func main() {
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("gozfs"),
		kong.Description("ZFS management tool"),
		kong.UsageOnError(),
		kong.BindTo(sigCtx, (*context.Context)(nil)),
	)
	err := ctx.Run(cli)
	stop()
	ctx.FatalIfErrorf(err)
}

// isTerminal reports whether f is an interactive terminal. Character devices
// such as /dev/null are not.
func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func makeLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	// stdout carries tables and send streams, so logs always go to stderr
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      lvl,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "" || !isTerminal(os.Stderr),
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
