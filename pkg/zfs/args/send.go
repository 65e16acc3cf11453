package args

import (
	"github.com/elee1766/gozfs/pkg/zfs"
)

// SendOptions configures zfs send.
type SendOptions struct {
	// Since makes the stream incremental from a snapshot or bookmark.
	Since zfs.Resource
	// Intermediate sends all snapshots between Since and the source (-I).
	Intermediate bool
	Replicate    bool
	// SkipMissing skips snapshots missing on descendants (-s). Requires
	// Replicate.
	SkipMissing bool
	Holds       bool
	Properties  bool
	Backup      bool
	Raw         bool
	Compressed  bool
	Embed       bool
	LargeBlocks bool
	// Redact excludes the blocks listed in a redaction bookmark.
	Redact *zfs.Bookmark
}

// Send builds zfs send of a snapshot, or of a filesystem or volume.
func Send(source zfs.Resource, opts SendOptions) (Args, error) {
	switch source.(type) {
	case *zfs.Snapshot:
	case *zfs.Dataset:
		if opts.Replicate || opts.Intermediate || opts.Holds || opts.Backup || opts.Redact != nil {
			return nil, conflict("replicate, intermediate, holds, backup and redact need a snapshot source")
		}
	default:
		return nil, conflict("cannot send %s %s", source.Type(), source.Name())
	}
	if opts.SkipMissing && !opts.Replicate {
		return nil, conflict("skip-missing requires replicate")
	}
	if opts.Redact != nil && opts.Replicate {
		return nil, conflict("redacted streams cannot be replicated")
	}

	a := Args{"send"}
	if opts.Redact != nil {
		a = append(a, "--redact", opts.Redact.Name())
	}
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{opts.Replicate, "-R"},
		{opts.Holds, "-h"},
		{opts.Properties, "-p"},
		{opts.Backup, "-b"},
		{opts.Raw, "-w"},
		{opts.Compressed, "-c"},
		{opts.Embed, "-e"},
		{opts.LargeBlocks, "-L"},
		{opts.SkipMissing, "-s"},
	} {
		if f.on {
			a = append(a, f.flag)
		}
	}

	since, err := sinceArgs(opts.Since, opts.Intermediate)
	if err != nil {
		return nil, err
	}
	a = append(a, since...)
	return append(a, source.Name()), nil
}

func sinceArgs(since zfs.Resource, intermediate bool) ([]string, error) {
	switch s := since.(type) {
	case nil:
		if intermediate {
			return nil, conflict("intermediate requires an incremental source")
		}
		return nil, nil
	case *zfs.Snapshot:
		if intermediate {
			return []string{"-I", s.Name()}, nil
		}
		return []string{"-i", s.Name()}, nil
	case *zfs.Bookmark:
		if intermediate {
			return nil, conflict("intermediate streams cannot start at a bookmark")
		}
		return []string{"-i", s.Name()}, nil
	default:
		return nil, conflict("incremental source must be a snapshot or bookmark, got %s %s", since.Type(), since.Name())
	}
}

// SendResume builds zfs send -t for a resume token reported by the receiving
// side.
func SendResume(token string, embed bool) (Args, error) {
	if !resumeTokenRe.MatchString(token) {
		return nil, &zfs.ValidationError{Kind: "resume token", Value: token}
	}
	a := Args{"send"}
	if embed {
		a = append(a, "-e")
	}
	return append(a, "-t", token), nil
}

// SendSaved builds zfs send -S for the saved state of a partially received
// dataset.
func SendSaved(ds *zfs.Dataset) Args {
	return Args{"send", "-S", ds.Name()}
}

// ReceiveOptions configures zfs receive.
type ReceiveOptions struct {
	// Props are set on the received dataset with -o.
	Props zfs.Props
	// Exclude lists properties to exclude with -x.
	Exclude []string
	// Origin receives an incremental stream as a clone of this snapshot.
	Origin *zfs.Snapshot
	Force  bool
	// NoHolds ignores holds in the stream (-h).
	NoHolds bool
	// SkipUnmount does not unmount the target before receiving (-M).
	SkipUnmount bool
	// Resumable saves partial state on interruption (-s).
	Resumable bool
	NoMount   bool
	// DiscardFirst drops the pool name of the sent snapshot (-d).
	DiscardFirst bool
	// DiscardAllButLast keeps only the last element of the sent name (-e).
	DiscardAllButLast bool
}

// Receive builds zfs receive into target, a dataset or snapshot.
func Receive(target zfs.Resource, opts ReceiveOptions) (Args, error) {
	switch target.(type) {
	case *zfs.Dataset, *zfs.Snapshot:
	default:
		return nil, conflict("cannot receive into %s %s", target.Type(), target.Name())
	}
	if opts.DiscardFirst && opts.DiscardAllButLast {
		return nil, conflict("discard-first and discard-all-but-last are exclusive")
	}

	a := Args{"receive"}
	if opts.Origin != nil {
		a = append(a, "-o", "origin="+opts.Origin.Name())
	}
	if _, ok := opts.Props["origin"]; ok {
		return nil, conflict("use Origin to set the clone origin")
	}
	props, err := assignments(sortedProps(opts.Props), "-o")
	if err != nil {
		return nil, err
	}
	a = append(a, props...)
	for _, p := range opts.Exclude {
		if err := zfs.ValidateAttribute(p); err != nil {
			return nil, err
		}
		a = append(a, "-x", p)
	}
	for _, f := range []struct {
		on   bool
		flag string
	}{
		{opts.Force, "-F"},
		{opts.NoHolds, "-h"},
		{opts.SkipUnmount, "-M"},
		{opts.Resumable, "-s"},
		{opts.NoMount, "-u"},
		{opts.DiscardFirst, "-d"},
		{opts.DiscardAllButLast, "-e"},
	} {
		if f.on {
			a = append(a, f.flag)
		}
	}
	return append(a, target.Name()), nil
}

// ReceiveAbort builds zfs receive -A, discarding saved partial state.
func ReceiveAbort(ds *zfs.Dataset) Args {
	return Args{"receive", "-A", ds.Name()}
}
