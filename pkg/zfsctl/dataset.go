package zfsctl

import (
	"context"
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
)

// CreateFilesystem creates the filesystem name with props and returns it.
func (m *Manager) CreateFilesystem(ctx context.Context, name string, props zfs.Props, opts args.CreateOptions) (*zfs.Dataset, error) {
	fs, err := zfs.NewFilesystem(name, props)
	if err != nil {
		return nil, err
	}
	a, err := args.CreateFilesystem(fs, opts)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("created filesystem", "name", name)
	return fs, nil
}

// CreateVolume creates the volume name with props and returns it.
func (m *Manager) CreateVolume(ctx context.Context, name string, props zfs.Props, opts args.VolumeOptions) (*zfs.Dataset, error) {
	vol, err := zfs.NewVolume(name, props)
	if err != nil {
		return nil, err
	}
	a, err := args.CreateVolume(vol, opts)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("created volume", "name", name, "size", opts.Size)
	return vol, nil
}

// Destroy destroys a dataset, snapshot or bookmark. It returns the names
// zfs reports as destroyed, or as would be destroyed when opts.Confirm is
// false. Bookmarks have no dry run and require Confirm.
func (m *Manager) Destroy(ctx context.Context, target zfs.Resource, opts args.DestroyOptions) ([]string, error) {
	switch t := target.(type) {
	case *zfs.Dataset:
		opts.Confirm = opts.Confirm && !m.runner.DryRun()
		a, err := args.DestroyDataset(t, opts)
		if err != nil {
			return nil, err
		}
		return m.destroy(ctx, a, opts.Confirm)
	case *zfs.Snapshot:
		return m.DestroySnapshots(ctx, []zfs.SnapshotTarget{t}, opts)
	case *zfs.Bookmark:
		if !opts.Confirm {
			return nil, &zfs.InvalidOptionCombinationError{Reason: "bookmarks cannot be destroyed as a dry run"}
		}
		if err := m.run(ctx, args.DestroyBookmark(t)); err != nil {
			return nil, err
		}
		m.logger.Info("destroyed bookmark", "name", t.Name())
		return []string{t.Name()}, nil
	default:
		return nil, &zfs.InvalidOptionCombinationError{Reason: "cannot destroy " + string(target.Type()) + " " + target.Name()}
	}
}

// DestroySnapshots destroys snapshots and snapshot ranges of one dataset in
// a single zfs invocation. A dry-run runner turns the call into zfs destroy
// -n, which reports without modifying anything.
func (m *Manager) DestroySnapshots(ctx context.Context, targets []zfs.SnapshotTarget, opts args.DestroyOptions) ([]string, error) {
	opts.Confirm = opts.Confirm && !m.runner.DryRun()
	a, err := args.DestroySnapshots(targets, opts)
	if err != nil {
		return nil, err
	}
	return m.destroy(ctx, a, opts.Confirm)
}

// DestroyName resolves name to a dataset, snapshot, bookmark or snapshot
// range (pool/fs@first%last) and destroys it.
func (m *Manager) DestroyName(ctx context.Context, name string, opts args.DestroyOptions) ([]string, error) {
	if strings.Contains(name, "%") {
		rng, err := zfs.ParseSnapshotRange(name)
		if err != nil {
			return nil, err
		}
		return m.DestroySnapshots(ctx, []zfs.SnapshotTarget{rng}, opts)
	}
	target, err := zfs.FromName(name, "", nil)
	if err != nil {
		return nil, err
	}
	return m.Destroy(ctx, target, opts)
}

// destroy runs a verbose, parsable destroy and keeps the "destroy" report
// lines. The dry run still executes because -n never modifies anything.
func (m *Manager) destroy(ctx context.Context, a args.Args, confirm bool) ([]string, error) {
	var report []string
	for line, err := range m.runner.Lines(ctx, a) {
		if err != nil {
			return nil, err
		}
		if name, ok := strings.CutPrefix(line, "destroy\t"); ok {
			report = append(report, name)
		}
	}
	if confirm {
		m.logger.Info("destroyed", "target", a[len(a)-1], "count", len(report))
	}
	return report, nil
}

// Rename renames a dataset or snapshot to name and returns the renamed
// resource with the properties of the original. A snapshot may be renamed
// by short name or full name within its dataset.
func (m *Manager) Rename(ctx context.Context, r zfs.Resource, name string, opts args.RenameOptions) (zfs.Resource, error) {
	var to zfs.Resource
	switch f := r.(type) {
	case *zfs.Dataset:
		ds, err := newDataset(f.Kind(), name, copyProps(f))
		if err != nil {
			return nil, err
		}
		to = ds
	case *zfs.Snapshot:
		var (
			s   *zfs.Snapshot
			err error
		)
		if strings.Contains(strings.Trim(name, "@"), "@") {
			s, err = zfs.ParseSnapshot(name, nil)
			if err == nil && s.Dataset().Name() == f.Dataset().Name() {
				s, err = zfs.NewSnapshot(f.Dataset(), s.Short(), copyProps(f))
			}
		} else {
			s, err = zfs.NewSnapshot(f.Dataset(), name, copyProps(f))
		}
		if err != nil {
			return nil, err
		}
		to = s
	default:
		to = r
	}

	a, err := args.Rename(r, to, opts)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("renamed", "from", r.Name(), "to", to.Name())
	return to, nil
}

// Snapshot snapshots ds as ds@short. With recursive every descendant is
// snapshotted under the same short name; the returned snapshot is the one of
// ds.
func (m *Manager) Snapshot(ctx context.Context, ds *zfs.Dataset, short string, props zfs.Props, recursive bool) (*zfs.Snapshot, error) {
	s, err := zfs.NewSnapshot(ds, short, props)
	if err != nil {
		return nil, err
	}
	a, err := args.Snapshot(s, recursive)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("created snapshot", "name", s.Name(), "recursive", recursive)
	return s, nil
}

// Bookmark creates dataset#short from a snapshot or another bookmark.
func (m *Manager) Bookmark(ctx context.Context, source zfs.Resource, short string) (*zfs.Bookmark, error) {
	var ds *zfs.Dataset
	switch s := source.(type) {
	case *zfs.Snapshot:
		ds = s.Dataset()
	case *zfs.Bookmark:
		ds = s.Dataset()
	default:
		return nil, &zfs.InvalidOptionCombinationError{Reason: "cannot bookmark " + string(source.Type()) + " " + source.Name()}
	}
	b, err := zfs.NewBookmark(ds, short, nil)
	if err != nil {
		return nil, err
	}
	a, err := args.Bookmark(source, b)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("created bookmark", "name", b.Name(), "source", source.Name())
	return b, nil
}

// Clone creates name as a clone of snap. The clone has the kind of the
// snapshot's dataset.
func (m *Manager) Clone(ctx context.Context, snap *zfs.Snapshot, name string, props zfs.Props, parents bool) (*zfs.Dataset, error) {
	ds, err := newDataset(snap.Dataset().Kind(), name, props)
	if err != nil {
		return nil, err
	}
	a, err := args.Clone(snap, ds, parents)
	if err != nil {
		return nil, err
	}
	if err := m.run(ctx, a); err != nil {
		return nil, err
	}
	m.logger.Info("created clone", "name", name, "origin", snap.Name())
	return ds, nil
}

// Set stores props on r and then runs zfs set, so r reflects the requested
// values even if the command fails.
func (m *Manager) Set(ctx context.Context, r zfs.Resource, props zfs.Props) error {
	if err := r.Update(props); err != nil {
		return err
	}
	a, err := args.Set(r, props)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("set properties", "name", r.Name(), "count", len(props))
	return nil
}

func (m *Manager) Inherit(ctx context.Context, r zfs.Resource, prop string, opts args.InheritOptions) error {
	a, err := args.Inherit(r, prop, opts)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("inherited property", "name", r.Name(), "property", prop)
	return nil
}

func (m *Manager) Rollback(ctx context.Context, s *zfs.Snapshot, opts args.RollbackOptions) error {
	a, err := args.Rollback(s, opts)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("rolled back", "snapshot", s.Name())
	return nil
}

func (m *Manager) Promote(ctx context.Context, clone *zfs.Dataset) error {
	if err := m.run(ctx, args.Promote(clone)); err != nil {
		return err
	}
	m.logger.Info("promoted clone", "name", clone.Name())
	return nil
}

func (m *Manager) Hold(ctx context.Context, tag string, snaps []*zfs.Snapshot, recursive bool) error {
	a, err := args.Hold(tag, snaps, recursive)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

func (m *Manager) Release(ctx context.Context, tag string, snaps []*zfs.Snapshot, recursive bool) error {
	a, err := args.Release(tag, snaps, recursive)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}
