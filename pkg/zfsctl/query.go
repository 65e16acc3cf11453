package zfsctl

import (
	"context"
	"iter"

	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
	"github.com/elee1766/gozfs/pkg/zfs/parse"
)

// ListSeq runs zfs list and yields one resource per output line. Each range
// over the sequence runs zfs again.
func (m *Manager) ListSeq(ctx context.Context, opts args.ListOptions) iter.Seq2[zfs.Resource, error] {
	a, err := args.List(opts)
	if err != nil {
		return fail[zfs.Resource](err)
	}
	m.logger.Debug("listing", "args", a.String())
	return parse.Listing(m.runner.Lines(ctx, a), args.Columns(opts.Properties))
}

// List is ListSeq collected into a slice.
func (m *Manager) List(ctx context.Context, opts args.ListOptions) ([]zfs.Resource, error) {
	return collect(m.ListSeq(ctx, opts))
}

// GetSeq runs zfs get and yields one resource per entity, with the
// properties whose source matches opts.Sources.
func (m *Manager) GetSeq(ctx context.Context, opts args.GetOptions) iter.Seq2[zfs.Resource, error] {
	a, err := args.Get(opts)
	if err != nil {
		return fail[zfs.Resource](err)
	}
	m.logger.Debug("getting properties", "args", a.String())
	return parse.Dump(m.runner.Lines(ctx, a), opts.Sources)
}

func (m *Manager) Get(ctx context.Context, opts args.GetOptions) ([]zfs.Resource, error) {
	return collect(m.GetSeq(ctx, opts))
}

// Snapshots lists the snapshots of ds, oldest first.
func (m *Manager) Snapshots(ctx context.Context, ds *zfs.Dataset, properties ...string) ([]*zfs.Snapshot, error) {
	res, err := m.List(ctx, args.ListOptions{
		Roots:      []zfs.Resource{ds},
		Types:      []string{string(zfs.TypeSnapshot)},
		Recursive:  true,
		Depth:      1,
		Properties: properties,
		Sort:       []args.SortKey{{Property: "createtxg"}},
	})
	if err != nil {
		return nil, err
	}
	snaps := make([]*zfs.Snapshot, 0, len(res))
	for _, r := range res {
		if s, ok := r.(*zfs.Snapshot); ok {
			snaps = append(snaps, s)
		}
	}
	return snaps, nil
}

func fail[T any](err error) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}
