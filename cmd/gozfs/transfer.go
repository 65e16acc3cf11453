package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/elee1766/gozfs/pkg/runner"
	"github.com/elee1766/gozfs/pkg/zfs"
	"github.com/elee1766/gozfs/pkg/zfs/args"
	"github.com/elee1766/gozfs/pkg/zfsctl"
)

// SendFlags are shared by send and replicate.
type SendFlags struct {
	Since        string `short:"i" help:"Incremental base snapshot or bookmark (@name and #name are relative to the source)"`
	Intermediate bool   `short:"I" help:"Include every snapshot between the base and the source"`
	Replicate    bool   `short:"R" help:"Send the dataset tree with properties and snapshots"`
	SkipMissing  bool   `short:"s" help:"Skip snapshots missing on descendants (with -R)"`
	Holds        bool   `help:"Include holds"`
	Props        bool   `short:"p" help:"Include properties"`
	Backup       bool   `short:"b" help:"Send only received property values"`
	Raw          bool   `short:"w" help:"Send encrypted blocks as is"`
	Compressed   bool   `short:"c" help:"Send compressed blocks as is"`
	Embed        bool   `short:"e" help:"Embed small blocks in the stream"`
	LargeBlocks  bool   `short:"L" help:"Allow blocks larger than 128KiB"`
	Redact       string `help:"Redaction bookmark"`
}

// options resolves the flags against the source snapshot.
func (f SendFlags) options(source zfs.Resource) (args.SendOptions, error) {
	opts := args.SendOptions{
		Intermediate: f.Intermediate,
		Replicate:    f.Replicate,
		SkipMissing:  f.SkipMissing,
		Holds:        f.Holds,
		Properties:   f.Props,
		Backup:       f.Backup,
		Raw:          f.Raw,
		Compressed:   f.Compressed,
		Embed:        f.Embed,
		LargeBlocks:  f.LargeBlocks,
	}
	if f.Since != "" {
		since, err := relativeTo(source, f.Since)
		if err != nil {
			return opts, err
		}
		opts.Since = since
	}
	if f.Redact != "" {
		r, err := relativeTo(source, f.Redact)
		if err != nil {
			return opts, err
		}
		b, ok := r.(*zfs.Bookmark)
		if !ok {
			return opts, &zfs.ValidationError{Kind: "redaction bookmark", Value: f.Redact}
		}
		opts.Redact = b
	}
	return opts, nil
}

// relativeTo expands @name and #name to the dataset of source.
func relativeTo(source zfs.Resource, name string) (zfs.Resource, error) {
	if strings.HasPrefix(name, "@") || strings.HasPrefix(name, "#") {
		ds := source.Name()
		if i := strings.IndexAny(ds, "@#"); i >= 0 {
			ds = ds[:i]
		}
		name = ds + name
	}
	return zfs.FromName(name, "", nil)
}

// SendCmd writes a send stream to stdout
type SendCmd struct {
	Source string `arg:"" optional:"" help:"Snapshot, bookmark or dataset to send"`
	Resume string `short:"t" help:"Resume from a receive_resume_token"`
	Saved  bool   `short:"S" help:"Send the saved partial state of a dataset"`
	Force  bool   `help:"Write the stream even when stdout is a terminal"`

	SendFlags `embed:""`
}

func (c *SendCmd) Run(cli *CLI, ctx context.Context) error {
	if f, ok := cli.out().(*os.File); ok && !c.Force && !cli.DryRun && isTerminal(f) {
		return errors.New("refusing to write a send stream to a terminal; redirect stdout or pass --force")
	}
	if (c.Source == "") == (c.Resume == "") {
		return errors.New("exactly one of a source or --resume is required")
	}

	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	var src *runner.Source
	switch {
	case c.Resume != "":
		src, err = s.manager.SendResume(ctx, c.Resume, c.Embed)
	case c.Saved:
		var ds *zfs.Dataset
		if ds, err = zfs.NewDataset(c.Source, nil); err == nil {
			src, err = s.manager.SendSaved(ctx, ds)
		}
	default:
		var (
			source zfs.Resource
			opts   args.SendOptions
		)
		if source, err = zfs.FromName(c.Source, "", nil); err != nil {
			return err
		}
		if opts, err = c.options(source); err != nil {
			return err
		}
		src, err = s.manager.Send(ctx, source, opts)
	}
	if err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}

	n, err := io.Copy(cli.out(), src)
	if cerr := src.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}
	s.logger.Info("sent stream", "bytes", n, "size", humanize.IBytes(uint64(n)))
	return nil
}

// ReceiveFlags are shared by receive and replicate.
type ReceiveFlags struct {
	Properties        map[string]string `short:"o" help:"Properties to set on the received dataset (key=value)"`
	Exclude           []string          `short:"x" help:"Properties to exclude"`
	Origin            string            `help:"Receive as a clone of this snapshot"`
	ForceRollback     bool              `short:"F" help:"Roll back the target to its most recent snapshot first"`
	NoHolds           bool              `short:"H" help:"Ignore holds in the stream"`
	SkipUnmount       bool              `short:"M" help:"Do not unmount the target while receiving"`
	Resumable         bool              `short:"A" help:"Save partial state when interrupted"`
	NoMount           bool              `short:"u" help:"Do not mount the received filesystem"`
	DiscardFirst      bool              `short:"D" help:"Drop the pool name of the sent snapshot"`
	DiscardAllButLast bool              `short:"E" help:"Keep only the last element of the sent name"`
}

func (f ReceiveFlags) options() (args.ReceiveOptions, error) {
	opts := args.ReceiveOptions{
		Props:             zfs.Values(f.Properties),
		Exclude:           f.Exclude,
		Force:             f.ForceRollback,
		NoHolds:           f.NoHolds,
		SkipUnmount:       f.SkipUnmount,
		Resumable:         f.Resumable,
		NoMount:           f.NoMount,
		DiscardFirst:      f.DiscardFirst,
		DiscardAllButLast: f.DiscardAllButLast,
	}
	if f.Origin != "" {
		origin, err := zfs.ParseSnapshot(f.Origin, nil)
		if err != nil {
			return opts, err
		}
		opts.Origin = origin
	}
	return opts, nil
}

// ReceiveCmd reads a send stream from stdin
type ReceiveCmd struct {
	Target string `arg:"" help:"Dataset or snapshot to receive into"`
	Abort  bool   `help:"Discard the saved partial state of the target instead of receiving"`

	ReceiveFlags `embed:""`
}

func (c *ReceiveCmd) Run(cli *CLI, ctx context.Context) error {
	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	if c.Abort {
		ds, err := zfs.NewDataset(c.Target, nil)
		if err != nil {
			return err
		}
		return s.manager.ReceiveAbort(ctx, ds)
	}

	target, err := zfs.FromName(c.Target, "", nil)
	if err != nil {
		return err
	}
	opts, err := c.options()
	if err != nil {
		return err
	}
	sink, err := s.manager.Receive(ctx, target, opts)
	if err != nil {
		return fmt.Errorf("failed to receive: %w", err)
	}

	n, err := io.Copy(sink, cli.in())
	if cerr := sink.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to receive: %w", err)
	}
	s.logger.Info("received stream", "target", target.Name(), "bytes", n, "size", humanize.IBytes(uint64(n)))
	return nil
}

// ReplicateCmd pipes zfs send into zfs receive
type ReplicateCmd struct {
	Source string `arg:"" help:"Snapshot or bookmark to send"`
	Target string `arg:"" help:"Dataset or snapshot to receive into"`

	SendFlags    `embed:"" prefix:"send-"`
	ReceiveFlags `embed:"" prefix:"recv-"`
}

func (c *ReplicateCmd) Run(cli *CLI, ctx context.Context) error {
	source, err := zfs.FromName(c.Source, "", nil)
	if err != nil {
		return err
	}
	target, err := zfs.FromName(c.Target, "", nil)
	if err != nil {
		return err
	}
	sendOpts, err := c.SendFlags.options(source)
	if err != nil {
		return err
	}
	recvOpts, err := c.ReceiveFlags.options()
	if err != nil {
		return err
	}

	s, err := cli.open()
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.manager.Replicate(ctx, source, target, zfsctl.ReplicateOptions{Send: sendOpts, Receive: recvOpts})
	if err != nil {
		return fmt.Errorf("failed to replicate %s to %s: %w", source.Name(), target.Name(), err)
	}
	fmt.Fprintf(cli.out(), "replicated %s to %s (%s)\n", source.Name(), target.Name(), humanize.IBytes(uint64(n)))
	return nil
}
