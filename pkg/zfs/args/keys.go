package args

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
)

var (
	keyLocationRe = regexp.MustCompile(`^(prompt|file:///\S+|https?://\S+)$`)
	mountOptionRe = regexp.MustCompile(`^[\w.:/=-]+$`)
	keyFormats    = []string{"raw", "hex", "passphrase"}
)

func validateKeyLocation(loc string) error {
	if !keyLocationRe.MatchString(loc) {
		return &zfs.ValidationError{Kind: "key location", Value: loc}
	}
	return nil
}

// LoadKeyOptions configures zfs load-key.
type LoadKeyOptions struct {
	Location  string
	Recursive bool
	// NoOp checks the key without loading it (-n).
	NoOp bool
}

// LoadKey builds zfs load-key for ds, or for every dataset (-a) when ds is
// nil.
func LoadKey(ds *zfs.Dataset, opts LoadKeyOptions) (Args, error) {
	a := Args{"load-key"}
	if opts.NoOp {
		a = append(a, "-n")
	}
	if ds == nil {
		if opts.Location != "" || opts.Recursive {
			return nil, conflict("location and recursive cannot be used when loading all keys")
		}
		return append(a, "-a"), nil
	}
	switch {
	case opts.Location != "" && opts.Recursive:
		return nil, conflict("key location cannot be given when loading keys recursively")
	case opts.Location != "":
		if err := validateKeyLocation(opts.Location); err != nil {
			return nil, err
		}
		a = append(a, "-L", opts.Location)
	case opts.Recursive:
		a = append(a, "-r")
	}
	return append(a, ds.Name()), nil
}

// UnloadKey builds zfs unload-key for ds, or for every dataset (-a) when ds
// is nil.
func UnloadKey(ds *zfs.Dataset, recursive bool) (Args, error) {
	if ds == nil {
		if recursive {
			return nil, conflict("recursive cannot be used when unloading all keys")
		}
		return Args{"unload-key", "-a"}, nil
	}
	a := Args{"unload-key"}
	if recursive {
		a = append(a, "-r")
	}
	return append(a, ds.Name()), nil
}

// ChangeKeyOptions configures zfs change-key.
type ChangeKeyOptions struct {
	// Inherit makes ds inherit its parent's key (-i).
	Inherit bool
	// Load loads the key first (-l).
	Load       bool
	Location   string
	Format     string
	Iterations int
}

// ChangeKey builds zfs change-key for ds.
func ChangeKey(ds *zfs.Dataset, opts ChangeKeyOptions) (Args, error) {
	if opts.Inherit && (opts.Location != "" || opts.Format != "" || opts.Iterations != 0) {
		return nil, conflict("location, format and iterations cannot be given when inheriting a key")
	}
	a := Args{"change-key"}
	if opts.Inherit {
		a = append(a, "-i")
	}
	if opts.Load {
		a = append(a, "-l")
	}
	if opts.Location != "" {
		if err := validateKeyLocation(opts.Location); err != nil {
			return nil, err
		}
		a = append(a, "-o", "keylocation="+opts.Location)
	}
	if opts.Format != "" {
		if err := validateToken(opts.Format, "key format", keyFormats); err != nil {
			return nil, err
		}
		a = append(a, "-o", "keyformat="+strings.ToLower(opts.Format))
	}
	if opts.Iterations < 0 {
		return nil, &zfs.ValidationError{Kind: "pbkdf2 iteration count", Value: strconv.Itoa(opts.Iterations)}
	}
	if opts.Iterations > 0 {
		a = append(a, "-o", "pbkdf2iters="+strconv.Itoa(opts.Iterations))
	}
	return append(a, ds.Name()), nil
}

func validateToken(s, kind string, allowed []string) error {
	lower := strings.ToLower(s)
	for _, t := range allowed {
		if t == lower {
			return nil
		}
	}
	return &zfs.ValidationError{Kind: kind, Value: s}
}

// MountOptions configures zfs mount.
type MountOptions struct {
	// Options are temporary mount options joined into a single -o.
	Options []string
	Overlay bool
	// LoadKeys loads encryption keys while mounting (-l).
	LoadKeys bool
	Force    bool
}

// Mount builds zfs mount for fs, or for every filesystem (-a) when fs is nil.
func Mount(fs *zfs.Dataset, opts MountOptions) (Args, error) {
	if fs != nil && fs.Kind() == zfs.KindVolume {
		return nil, conflict("%s is a volume", fs.Name())
	}
	a := Args{"mount"}
	if opts.Overlay {
		a = append(a, "-O")
	}
	if opts.LoadKeys {
		a = append(a, "-l")
	}
	if opts.Force {
		a = append(a, "-f")
	}
	if len(opts.Options) > 0 {
		for _, o := range opts.Options {
			if !mountOptionRe.MatchString(o) {
				return nil, &zfs.ValidationError{Kind: "mount option", Value: o}
			}
		}
		a = append(a, "-o", strings.Join(opts.Options, ","))
	}
	if fs == nil {
		return append(a, "-a"), nil
	}
	return append(a, fs.Name()), nil
}

// UnmountOptions configures zfs unmount.
type UnmountOptions struct {
	Force bool
	// UnloadKeys unloads encryption keys after unmounting (-u).
	UnloadKeys bool
}

// Unmount builds zfs unmount for fs, or for every filesystem (-a) when fs is
// nil.
func Unmount(fs *zfs.Dataset, opts UnmountOptions) Args {
	a := Args{"unmount"}
	if opts.Force {
		a = append(a, "-f")
	}
	if opts.UnloadKeys {
		a = append(a, "-u")
	}
	if fs == nil {
		return append(a, "-a")
	}
	return append(a, fs.Name())
}
