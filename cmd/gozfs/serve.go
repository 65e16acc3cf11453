package main

import (
	"log/slog"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/elee1766/gozfs/pkg/api"
	"github.com/elee1766/gozfs/pkg/config"
	"github.com/elee1766/gozfs/pkg/db"
	"github.com/elee1766/gozfs/pkg/metrics"
	"github.com/elee1766/gozfs/pkg/runner"
	"github.com/elee1766/gozfs/pkg/zfsctl"
)

// ServeCmd runs the API server
type ServeCmd struct {
	Address string `short:"a" help:"API server address. Overrides GOZFS_API_ADDRESS."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := cli.config()
	if err != nil {
		return err
	}
	if c.Address != "" {
		cfg.APIAddress = c.Address
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	app := fx.New(cli.serveOptions(cfg), fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
		return &fxevent.SlogLogger{Logger: log}
	}))
	app.Run()
	return nil
}

// serveOptions assembles the server. The journal is nil when disabled.
func (cli *CLI) serveOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			func(cfg *config.Config) *slog.Logger {
				return makeLogger(cfg.LogLevel, cfg.LogFormat)
			},
			func(cfg *config.Config, logger *slog.Logger, journal *db.DB, m *metrics.Metrics) *runner.Runner {
				recs := []runner.Recorder{m}
				if journal != nil {
					recs = append(recs, journal)
				}
				return runner.New(cfg.ZFSBin, logger, cli.runnerOptions(recs...)...)
			},
		),
		db.Module,
		metrics.Module,
		zfsctl.Module,
		api.Module,
	)
}
