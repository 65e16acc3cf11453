package zfsctl

import (
	"context"

	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
)

// Allow delegates perms on ds to the grantees in opts.
func (m *Manager) Allow(ctx context.Context, ds *zfs.Dataset, perms []string, opts args.AllowOptions) error {
	a, err := args.Allow(ds, perms, opts)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("granted permissions", "name", ds.Name(), "perms", perms)
	return nil
}

func (m *Manager) Unallow(ctx context.Context, ds *zfs.Dataset, perms []string, opts args.AllowOptions) error {
	a, err := args.Unallow(ds, perms, opts)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("revoked permissions", "name", ds.Name(), "perms", perms)
	return nil
}

// AllowCreate grants perms to whoever creates a descendant of ds.
func (m *Manager) AllowCreate(ctx context.Context, ds *zfs.Dataset, perms []string) error {
	a, err := args.AllowCreate(ds, perms)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

func (m *Manager) UnallowCreate(ctx context.Context, ds *zfs.Dataset, perms []string, recursive bool) error {
	a, err := args.UnallowCreate(ds, perms, recursive)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

// AllowSet defines the permission set @set on ds.
func (m *Manager) AllowSet(ctx context.Context, ds *zfs.Dataset, set string, perms []string) error {
	a, err := args.AllowSet(ds, set, perms)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

func (m *Manager) UnallowSet(ctx context.Context, ds *zfs.Dataset, set string, perms []string, recursive bool) error {
	a, err := args.UnallowSet(ds, set, perms, recursive)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

// LoadKey loads the encryption key of ds, or of every encrypted dataset when
// ds is nil.
func (m *Manager) LoadKey(ctx context.Context, ds *zfs.Dataset, opts args.LoadKeyOptions) error {
	a, err := args.LoadKey(ds, opts)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

func (m *Manager) UnloadKey(ctx context.Context, ds *zfs.Dataset, recursive bool) error {
	a, err := args.UnloadKey(ds, recursive)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

func (m *Manager) ChangeKey(ctx context.Context, ds *zfs.Dataset, opts args.ChangeKeyOptions) error {
	a, err := args.ChangeKey(ds, opts)
	if err != nil {
		return err
	}
	if err := m.run(ctx, a); err != nil {
		return err
	}
	m.logger.Info("changed key", "name", ds.Name(), "inherit", opts.Inherit)
	return nil
}

// Mount mounts fs, or every filesystem when fs is nil.
func (m *Manager) Mount(ctx context.Context, fs *zfs.Dataset, opts args.MountOptions) error {
	a, err := args.Mount(fs, opts)
	if err != nil {
		return err
	}
	return m.run(ctx, a)
}

// Unmount unmounts fs, or every filesystem when fs is nil.
func (m *Manager) Unmount(ctx context.Context, fs *zfs.Dataset, opts args.UnmountOptions) error {
	return m.run(ctx, args.Unmount(fs, opts))
}
