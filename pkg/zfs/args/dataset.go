package args

import (
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// CreateOptions configures zfs create for filesystems.
type CreateOptions struct {
	Parents bool
	NoMount bool
}

// CreateFilesystem builds zfs create for fs. Properties stored on fs are
// passed with -o.
func CreateFilesystem(fs *zfs.Dataset, opts CreateOptions) (Args, error) {
	if fs.Kind() == zfs.KindVolume {
		return nil, conflict("%s is a volume", fs.Name())
	}
	a := Args{"create"}
	if opts.Parents {
		a = append(a, "-p")
	}
	if opts.NoMount {
		a = append(a, "-u")
	}
	props, err := assignments(fs.Properties(), "-o")
	if err != nil {
		return nil, err
	}
	a = append(a, props...)
	return append(a, fs.Name()), nil
}

// VolumeOptions configures zfs create -V.
type VolumeOptions struct {
	// Size accepts anything go-humanize parses, e.g. "10G" or "512MiB".
	Size      string
	BlockSize string
	Sparse    bool
	Parents   bool
}

// CreateVolume builds zfs create -V for vol.
func CreateVolume(vol *zfs.Dataset, opts VolumeOptions) (Args, error) {
	if vol.Kind() == zfs.KindFilesystem {
		return nil, conflict("%s is a filesystem", vol.Name())
	}
	if err := validateSize(opts.Size); err != nil {
		return nil, err
	}
	a := Args{"create", "-V", opts.Size}
	if opts.BlockSize != "" {
		if err := validateSize(opts.BlockSize); err != nil {
			return nil, err
		}
		a = append(a, "-b", opts.BlockSize)
	}
	if opts.Parents {
		a = append(a, "-p")
	}
	if opts.Sparse {
		a = append(a, "-s")
	}
	props, err := assignments(vol.Properties(), "-o")
	if err != nil {
		return nil, err
	}
	a = append(a, props...)
	return append(a, vol.Name()), nil
}

func validateSize(s string) error {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return &zfs.ValidationError{Kind: "size", Value: s}
	}
	if n, err := humanize.ParseBytes(s); err != nil || n == 0 {
		return &zfs.ValidationError{Kind: "size", Value: s}
	}
	return nil
}

// DestroyOptions configures zfs destroy. Without Confirm the command is a
// dry run (-n) that only reports what would be destroyed.
type DestroyOptions struct {
	Confirm   bool
	Recursive bool
	// Clones also destroys dependent clones (-R). Requires Recursive.
	Clones bool
	// Force unmounts busy filesystems (-f). Datasets only.
	Force bool
	// Defer marks snapshots for deferred destruction (-d). Snapshots only.
	Defer bool
}

func destroyBase(opts DestroyOptions) (Args, error) {
	a := Args{"destroy", "-v", "-p"}
	if !opts.Confirm {
		a = append(a, "-n")
	}
	switch {
	case opts.Recursive && opts.Clones:
		a = append(a, "-R")
	case opts.Recursive:
		a = append(a, "-r")
	case opts.Clones:
		return nil, conflict("destroying clones requires recursive")
	}
	return a, nil
}

// DestroyDataset builds zfs destroy for a filesystem or volume.
func DestroyDataset(ds *zfs.Dataset, opts DestroyOptions) (Args, error) {
	if opts.Defer {
		return nil, conflict("defer applies to snapshots only")
	}
	a, err := destroyBase(opts)
	if err != nil {
		return nil, err
	}
	if opts.Force {
		a = append(a, "-f")
	}
	return append(a, ds.Name()), nil
}

// DestroySnapshots builds zfs destroy for snapshots and ranges of a single
// dataset, e.g. pool/fs@a,b%d.
func DestroySnapshots(targets []zfs.SnapshotTarget, opts DestroyOptions) (Args, error) {
	if len(targets) == 0 {
		return nil, &zfs.ValidationError{Kind: "snapshot list", Value: ""}
	}
	if opts.Force {
		return nil, conflict("force applies to datasets only")
	}
	ds := targets[0].Dataset().Name()
	shorts := make([]string, 0, len(targets))
	for _, t := range targets {
		if got := t.Dataset().Name(); got != ds {
			return nil, &zfs.HeterogeneousTargetError{Want: ds, Got: got}
		}
		shorts = append(shorts, t.Short())
	}
	a, err := destroyBase(opts)
	if err != nil {
		return nil, err
	}
	if opts.Defer {
		a = append(a, "-d")
	}
	return append(a, ds+"@"+strings.Join(shorts, ",")), nil
}

// DestroyBookmark builds zfs destroy for a bookmark. Bookmark destruction has
// no dry run.
func DestroyBookmark(b *zfs.Bookmark) Args {
	return Args{"destroy", b.Name()}
}

// RenameOptions configures zfs rename.
type RenameOptions struct {
	Force   bool
	Parents bool
	// NoMount keeps a renamed filesystem unmounted (-u).
	NoMount bool
	// Recursive renames the snapshot on all descendants (-r).
	Recursive bool
}

// Rename builds zfs rename. Datasets rename to datasets, snapshots to
// snapshots of the same dataset.
func Rename(from, to zfs.Resource, opts RenameOptions) (Args, error) {
	a := Args{"rename"}
	switch f := from.(type) {
	case *zfs.Dataset:
		if _, ok := to.(*zfs.Dataset); !ok {
			return nil, conflict("cannot rename %s %s to %s %s", f.Type(), f.Name(), to.Type(), to.Name())
		}
		if opts.NoMount && f.Kind() == zfs.KindVolume {
			return nil, conflict("no-mount applies to filesystems only")
		}
		if opts.Recursive {
			return nil, conflict("recursive applies to snapshots only")
		}
	case *zfs.Snapshot:
		t, ok := to.(*zfs.Snapshot)
		if !ok {
			return nil, conflict("cannot rename snapshot %s to %s %s", f.Name(), to.Type(), to.Name())
		}
		if t.Dataset().Name() != f.Dataset().Name() {
			return nil, &zfs.HeterogeneousTargetError{Want: f.Dataset().Name(), Got: t.Dataset().Name()}
		}
		if opts.NoMount || opts.Parents {
			return nil, conflict("no-mount and parents apply to datasets only")
		}
	default:
		return nil, conflict("cannot rename %s %s", from.Type(), from.Name())
	}
	if opts.Force {
		a = append(a, "-f")
	}
	if opts.Parents {
		a = append(a, "-p")
	}
	if opts.NoMount {
		a = append(a, "-u")
	}
	if opts.Recursive {
		a = append(a, "-r")
	}
	return append(a, from.Name(), to.Name()), nil
}

// Snapshot builds zfs snapshot for s, with -r to snapshot all descendants
// under the same short name.
func Snapshot(s *zfs.Snapshot, recursive bool) (Args, error) {
	a := Args{"snapshot"}
	if recursive {
		a = append(a, "-r")
	}
	props, err := assignments(s.Properties(), "-o")
	if err != nil {
		return nil, err
	}
	a = append(a, props...)
	return append(a, s.Name()), nil
}

// Bookmark builds zfs bookmark. The source is a snapshot or another bookmark
// of the same dataset.
func Bookmark(source zfs.Resource, b *zfs.Bookmark) (Args, error) {
	var ds string
	switch s := source.(type) {
	case *zfs.Snapshot:
		ds = s.Dataset().Name()
	case *zfs.Bookmark:
		ds = s.Dataset().Name()
	default:
		return nil, conflict("cannot bookmark %s %s", source.Type(), source.Name())
	}
	if ds != b.Dataset().Name() {
		return nil, &zfs.HeterogeneousTargetError{Want: ds, Got: b.Dataset().Name()}
	}
	return Args{"bookmark", source.Name(), b.Name()}, nil
}

// Clone builds zfs clone of snap into target. Properties stored on target
// are passed with -o.
func Clone(snap *zfs.Snapshot, target *zfs.Dataset, parents bool) (Args, error) {
	a := Args{"clone"}
	if parents {
		a = append(a, "-p")
	}
	props, err := assignments(target.Properties(), "-o")
	if err != nil {
		return nil, err
	}
	a = append(a, props...)
	return append(a, snap.Name(), target.Name()), nil
}

// Set builds zfs set for the non-nil entries of props.
func Set(r zfs.Resource, props zfs.Props) (Args, error) {
	kv, err := assignments(sortedProps(props), "")
	if err != nil {
		return nil, err
	}
	if len(kv) == 0 {
		return nil, &zfs.ValidationError{Kind: "property list", Value: ""}
	}
	a := append(Args{"set"}, kv...)
	return append(a, r.Name()), nil
}

// InheritOptions configures zfs inherit.
type InheritOptions struct {
	Recursive bool
	// Received reverts to the received value (-S).
	Received bool
}

// Inherit builds zfs inherit of prop on r.
func Inherit(r zfs.Resource, prop string, opts InheritOptions) (Args, error) {
	if err := zfs.ValidateAttribute(prop); err != nil {
		return nil, err
	}
	a := Args{"inherit"}
	if opts.Recursive {
		a = append(a, "-r")
	}
	if opts.Received {
		a = append(a, "-S")
	}
	return append(a, prop, r.Name()), nil
}

// RollbackOptions configures zfs rollback.
type RollbackOptions struct {
	// DestroyLater destroys snapshots and bookmarks newer than the target (-r).
	DestroyLater bool
	// Clones also destroys their clones (-R). Requires DestroyLater.
	Clones bool
	Force  bool
}

// Rollback builds zfs rollback to s.
func Rollback(s *zfs.Snapshot, opts RollbackOptions) (Args, error) {
	a := Args{"rollback"}
	switch {
	case opts.DestroyLater && opts.Clones:
		a = append(a, "-R")
	case opts.DestroyLater:
		a = append(a, "-r")
	case opts.Clones:
		return nil, conflict("destroying clones requires destroying later snapshots")
	}
	if opts.Force {
		a = append(a, "-f")
	}
	return append(a, s.Name()), nil
}

// Promote builds zfs promote for a clone.
func Promote(clone *zfs.Dataset) Args {
	return Args{"promote", clone.Name()}
}

// Hold builds zfs hold of tag on snaps.
func Hold(tag string, snaps []*zfs.Snapshot, recursive bool) (Args, error) {
	return holdArgs("hold", tag, snaps, recursive)
}

// Release builds zfs release of tag from snaps.
func Release(tag string, snaps []*zfs.Snapshot, recursive bool) (Args, error) {
	return holdArgs("release", tag, snaps, recursive)
}

func holdArgs(verb, tag string, snaps []*zfs.Snapshot, recursive bool) (Args, error) {
	if err := zfs.ValidateName(tag); err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, &zfs.ValidationError{Kind: "snapshot list", Value: ""}
	}
	a := Args{verb}
	if recursive {
		a = append(a, "-r")
	}
	a = append(a, tag)
	for _, s := range snaps {
		a = append(a, s.Name())
	}
	return a, nil
}
