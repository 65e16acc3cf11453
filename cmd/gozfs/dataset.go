package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
)

// ListCmd lists resources
type ListCmd struct {
	Roots      []string `arg:"" optional:"" help:"Datasets to list, default every pool"`
	Types      []string `short:"t" help:"Types to list (filesystem, volume, snapshot, bookmark, all)"`
	Recursive  bool     `short:"r" help:"List all descendants"`
	Depth      int      `short:"d" help:"Limit recursion depth"`
	Properties []string `short:"o" help:"Properties to show"`
	Sort       []string `short:"s" help:"Sort ascending by property"`
	SortDesc   []string `short:"S" help:"Sort descending by property"`
	Exact      bool     `short:"p" help:"Print exact values instead of humanized ones"`
}

func (c *ListCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	roots, err := resolveAll(c.Roots)
	if err != nil {
		return err
	}
	opts := args.ListOptions{
		Roots:      roots,
		Types:      c.Types,
		Recursive:  c.Recursive || c.Depth > 0,
		Depth:      c.Depth,
		Properties: c.Properties,
		Parsable:   true,
	}
	for _, k := range c.Sort {
		opts.Sort = append(opts.Sort, args.SortKey{Property: k})
	}
	for _, k := range c.SortDesc {
		opts.Sort = append(opts.Sort, args.SortKey{Property: k, Descending: true})
	}

	res, err := s.manager.List(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list: %w", err)
	}
	return printListing(cli.out(), cli.Output, res, c.Properties, c.Exact)
}

// GetCmd shows properties
type GetCmd struct {
	Targets    []string `arg:"" help:"Datasets, snapshots or bookmarks"`
	Properties []string `short:"o" default:"all" help:"Properties to fetch"`
	Sources    []string `short:"s" help:"Only show properties from these sources (local, default, inherited, temporary, received, none)"`
	Recursive  bool     `short:"r" help:"Include all descendants"`
	Depth      int      `short:"d" help:"Limit recursion depth"`
}

func (c *GetCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	targets, err := resolveAll(c.Targets)
	if err != nil {
		return err
	}
	res, err := s.manager.Get(ctx, args.GetOptions{
		Targets:    targets,
		Properties: c.Properties,
		Sources:    c.Sources,
		Recursive:  c.Recursive,
		Depth:      c.Depth,
		Parsable:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to get properties: %w", err)
	}
	return printProperties(cli.out(), cli.Output, res)
}

// CreateCmd contains create subcommands
type CreateCmd struct {
	FS     CreateFSCmd     `cmd:"" name:"fs" help:"Create a filesystem"`
	Volume CreateVolumeCmd `cmd:"" aliases:"vol" help:"Create a volume"`
}

// CreateFSCmd creates a filesystem
type CreateFSCmd struct {
	Name       string            `arg:"" help:"Filesystem name"`
	Parents    bool              `short:"p" help:"Create missing parent datasets"`
	NoMount    bool              `short:"u" help:"Do not mount the new filesystem"`
	Properties map[string]string `short:"o" help:"Properties to set (key=value)"`
}

func (c *CreateFSCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	ds, err := s.manager.CreateFilesystem(ctx, c.Name, zfs.Values(c.Properties), args.CreateOptions{
		Parents: c.Parents,
		NoMount: c.NoMount,
	})
	if err != nil {
		return fmt.Errorf("failed to create filesystem: %w", err)
	}
	fmt.Fprintln(cli.out(), ds.Name())
	return nil
}

// CreateVolumeCmd creates a volume
type CreateVolumeCmd struct {
	Name       string            `arg:"" help:"Volume name"`
	Size       string            `short:"V" required:"" help:"Volume size, e.g. 10G"`
	BlockSize  string            `short:"b" help:"Volume block size"`
	Sparse     bool              `short:"s" help:"Do not reserve space"`
	Parents    bool              `short:"p" help:"Create missing parent datasets"`
	Properties map[string]string `short:"o" help:"Properties to set (key=value)"`
}

func (c *CreateVolumeCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	ds, err := s.manager.CreateVolume(ctx, c.Name, zfs.Values(c.Properties), args.VolumeOptions{
		Size:      c.Size,
		BlockSize: c.BlockSize,
		Sparse:    c.Sparse,
		Parents:   c.Parents,
	})
	if err != nil {
		return fmt.Errorf("failed to create volume: %w", err)
	}
	fmt.Fprintln(cli.out(), ds.Name())
	return nil
}

// SnapshotCmd creates a snapshot
type SnapshotCmd struct {
	Name       string            `arg:"" help:"Snapshot name (dataset@snapshot)"`
	Recursive  bool              `short:"r" help:"Snapshot all descendants"`
	Properties map[string]string `short:"o" help:"Properties to set (key=value)"`
}

func (c *SnapshotCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	dsName, short, ok := strings.Cut(c.Name, "@")
	if !ok {
		return &zfs.ValidationError{Kind: "snapshot name", Value: c.Name}
	}
	ds, err := zfs.NewDataset(dsName, nil)
	if err != nil {
		return err
	}
	snap, err := s.manager.Snapshot(ctx, ds, short, zfs.Values(c.Properties), c.Recursive)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	fmt.Fprintln(cli.out(), snap.Name())
	return nil
}

// BookmarkCmd creates a bookmark
type BookmarkCmd struct {
	Source   string `arg:"" help:"Snapshot or bookmark to bookmark"`
	Bookmark string `arg:"" help:"Bookmark name (#name or dataset#name)"`
}

func (c *BookmarkCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	source, err := zfs.FromName(c.Source, "", nil)
	if err != nil {
		return err
	}
	short := c.Bookmark
	if i := strings.IndexByte(short, '#'); i >= 0 {
		short = short[i+1:]
	}
	b, err := s.manager.Bookmark(ctx, source, short)
	if err != nil {
		return fmt.Errorf("failed to create bookmark: %w", err)
	}
	fmt.Fprintln(cli.out(), b.Name())
	return nil
}

// DestroyCmd destroys a resource. Without --confirm it only reports.
type DestroyCmd struct {
	Target    string `arg:"" help:"Dataset, snapshot, snapshot range (fs@first%last) or bookmark"`
	Confirm   bool   `short:"y" help:"Actually destroy; without it zfs only reports what would be destroyed"`
	Recursive bool   `short:"r" help:"Destroy all descendants"`
	Clones    bool   `short:"R" help:"Also destroy dependent clones"`
	Force     bool   `short:"f" help:"Force unmount of busy filesystems"`
	Defer     bool   `short:"d" help:"Defer destruction of held snapshots"`
}

func (c *DestroyCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.manager.DestroyName(ctx, c.Target, args.DestroyOptions{
		Confirm:   c.Confirm,
		Recursive: c.Recursive || c.Clones,
		Clones:    c.Clones,
		Force:     c.Force,
		Defer:     c.Defer,
	})
	if err != nil {
		return fmt.Errorf("failed to destroy %s: %w", c.Target, err)
	}

	verb := "destroyed"
	if !c.Confirm || cli.DryRun {
		verb = "would destroy"
	}
	for _, name := range report {
		fmt.Fprintf(cli.out(), "%s %s\n", verb, name)
	}
	return nil
}

// RenameCmd renames a dataset or snapshot
type RenameCmd struct {
	From      string `arg:"" help:"Dataset or snapshot"`
	To        string `arg:"" help:"New name"`
	Force     bool   `short:"f" help:"Force unmount"`
	Parents   bool   `short:"p" help:"Create missing parent datasets"`
	NoMount   bool   `short:"u" help:"Do not remount the filesystem"`
	Recursive bool   `short:"r" help:"Rename the snapshot on all descendants"`
}

func (c *RenameCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	from, err := zfs.FromName(c.From, "", nil)
	if err != nil {
		return err
	}
	to, err := s.manager.Rename(ctx, from, c.To, args.RenameOptions{
		Force:     c.Force,
		Parents:   c.Parents,
		NoMount:   c.NoMount,
		Recursive: c.Recursive,
	})
	if err != nil {
		return fmt.Errorf("failed to rename %s: %w", c.From, err)
	}
	fmt.Fprintln(cli.out(), to.Name())
	return nil
}

// CloneCmd clones a snapshot
type CloneCmd struct {
	Snapshot   string            `arg:"" help:"Snapshot to clone"`
	Name       string            `arg:"" help:"Name of the clone"`
	Parents    bool              `short:"p" help:"Create missing parent datasets"`
	Properties map[string]string `short:"o" help:"Properties to set (key=value)"`
}

func (c *CloneCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := zfs.ParseSnapshot(c.Snapshot, nil)
	if err != nil {
		return err
	}
	clone, err := s.manager.Clone(ctx, snap, c.Name, zfs.Values(c.Properties), c.Parents)
	if err != nil {
		return fmt.Errorf("failed to clone %s: %w", c.Snapshot, err)
	}
	fmt.Fprintln(cli.out(), clone.Name())
	return nil
}

// PromoteCmd promotes a clone
type PromoteCmd struct {
	Clone string `arg:"" help:"Clone to promote"`
}

func (c *PromoteCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	ds, err := zfs.NewDataset(c.Clone, nil)
	if err != nil {
		return err
	}
	if err := s.manager.Promote(ctx, ds); err != nil {
		return fmt.Errorf("failed to promote %s: %w", c.Clone, err)
	}
	return nil
}

// SetCmd sets properties
type SetCmd struct {
	Target      string   `arg:"" help:"Dataset, snapshot or bookmark"`
	Assignments []string `arg:"" help:"Properties to set (key=value)"`
}

func (c *SetCmd) Run(cli *CLI, ctx context.Context) error {
	props, err := parseAssignments(c.Assignments)
	if err != nil {
		return err
	}

	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	target, err := zfs.FromName(c.Target, "", nil)
	if err != nil {
		return err
	}
	if err := s.manager.Set(ctx, target, props); err != nil {
		return fmt.Errorf("failed to set properties on %s: %w", c.Target, err)
	}
	return nil
}

// parseAssignments turns key=value arguments into local property values.
func parseAssignments(assignments []string) (zfs.Props, error) {
	props := make(zfs.Props, len(assignments))
	for _, a := range assignments {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, &zfs.ValidationError{Kind: "property assignment", Value: a}
		}
		props[k] = zfs.Value(v)
	}
	return props, nil
}

// InheritCmd clears a property
type InheritCmd struct {
	Property  string   `arg:"" help:"Property to clear"`
	Targets   []string `arg:"" help:"Datasets or snapshots"`
	Recursive bool     `short:"r" help:"Also clear on all descendants"`
	Received  bool     `short:"S" help:"Revert to the received value"`
}

func (c *InheritCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	targets, err := resolveAll(c.Targets)
	if err != nil {
		return err
	}
	opts := args.InheritOptions{Recursive: c.Recursive, Received: c.Received}
	for _, t := range targets {
		if err := s.manager.Inherit(ctx, t, c.Property, opts); err != nil {
			return fmt.Errorf("failed to inherit %s on %s: %w", c.Property, t.Name(), err)
		}
	}
	return nil
}

// RollbackCmd rolls back to a snapshot
type RollbackCmd struct {
	Snapshot     string `arg:"" help:"Snapshot to roll back to"`
	DestroyLater bool   `short:"r" help:"Destroy later snapshots and bookmarks"`
	Clones       bool   `short:"R" help:"Also destroy clones of later snapshots"`
	Force        bool   `short:"f" help:"Force unmount of clones"`
}

func (c *RollbackCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := zfs.ParseSnapshot(c.Snapshot, nil)
	if err != nil {
		return err
	}
	err = s.manager.Rollback(ctx, snap, args.RollbackOptions{
		DestroyLater: c.DestroyLater || c.Clones,
		Clones:       c.Clones,
		Force:        c.Force,
	})
	if err != nil {
		return fmt.Errorf("failed to roll back to %s: %w", c.Snapshot, err)
	}
	return nil
}

func resolveAll(names []string) ([]zfs.Resource, error) {
	out := make([]zfs.Resource, 0, len(names))
	for _, n := range names {
		r, err := zfs.FromName(n, "", nil)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
