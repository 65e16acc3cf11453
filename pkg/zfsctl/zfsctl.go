// Package zfsctl drives the zfs command line. Every method builds its
// argument vector with package args, executes it through a runner and, for
// queries, parses the output back into resources. Nothing is cached: each
// call invokes zfs again.
package zfsctl

import (
	"context"
	"iter"
	"log/slog"

	"go.uber.org/fx"

	"github.com/elee1766/gozfs/pkg/runner"
	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
)

var Module = fx.Module("zfsctl",
	fx.Provide(New),
)

type Manager struct {
	runner *runner.Runner
	logger *slog.Logger
}

func New(r *runner.Runner, logger *slog.Logger) *Manager {
	return &Manager{
		runner: r,
		logger: logger.With("component", "zfsctl"),
	}
}

// Runner returns the runner the manager executes through.
func (m *Manager) Runner() *runner.Runner { return m.runner }

func (m *Manager) run(ctx context.Context, a args.Args) error {
	m.logger.Debug("running", "subcommand", a.Subcommand(), "args", a.String())
	return m.runner.Run(ctx, a)
}

// collect drains a resource sequence, stopping at the first error.
func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// copyProps returns a deep copy of r's properties for a resource that takes
// over its identity, e.g. after a rename.
func copyProps(r zfs.Resource) zfs.Props {
	props := zfs.Props{}
	for k, p := range r.Properties() {
		if p == nil {
			continue
		}
		cp := *p
		props[k] = &cp
	}
	return props
}

// newDataset builds a dataset of the given kind.
func newDataset(kind zfs.DatasetKind, name string, props zfs.Props) (*zfs.Dataset, error) {
	switch kind {
	case zfs.KindFilesystem:
		return zfs.NewFilesystem(name, props)
	case zfs.KindVolume:
		return zfs.NewVolume(name, props)
	default:
		return zfs.NewDataset(name, props)
	}
}
