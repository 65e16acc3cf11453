package args

import (
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// AllowOptions selects who receives or loses permissions and where they
// apply.
type AllowOptions struct {
	Users    []string
	Groups   []string
	Everyone bool
	// LocalOnly applies to the dataset itself (-l), DescendantsOnly to its
	// descendants (-d). Neither means both.
	LocalOnly       bool
	DescendantsOnly bool
	// Recursive removes permissions from descendants too (-r). Unallow only.
	Recursive bool
}

// Allow builds zfs allow.
func Allow(ds *zfs.Dataset, perms []string, opts AllowOptions) (Args, error) {
	if opts.Recursive {
		return nil, conflict("recursive applies to unallow only")
	}
	return delegate("allow", ds, perms, opts)
}

// Unallow builds zfs unallow.
func Unallow(ds *zfs.Dataset, perms []string, opts AllowOptions) (Args, error) {
	return delegate("unallow", ds, perms, opts)
}

func delegate(verb string, ds *zfs.Dataset, perms []string, opts AllowOptions) (Args, error) {
	a := Args{verb}
	if opts.Recursive {
		a = append(a, "-r")
	}
	switch {
	case opts.LocalOnly && opts.DescendantsOnly:
		return nil, conflict("local-only and descendants-only are exclusive")
	case opts.LocalOnly:
		a = append(a, "-l")
	case opts.DescendantsOnly:
		a = append(a, "-d")
	}

	if opts.Everyone {
		if len(opts.Users) > 0 || len(opts.Groups) > 0 {
			return nil, conflict("everyone cannot be combined with users or groups")
		}
		a = append(a, "-e")
	} else {
		if len(opts.Users) == 0 && len(opts.Groups) == 0 {
			return nil, conflict("no users, groups or everyone given")
		}
		if len(opts.Users) > 0 {
			users, err := nameList(opts.Users)
			if err != nil {
				return nil, err
			}
			a = append(a, "-u", users)
		}
		if len(opts.Groups) > 0 {
			groups, err := nameList(opts.Groups)
			if err != nil {
				return nil, err
			}
			a = append(a, "-g", groups)
		}
	}

	p, err := permissionList(perms)
	if err != nil {
		return nil, err
	}
	return append(a, p, ds.Name()), nil
}

// AllowCreate builds zfs allow -c, granting perms to the creator of new
// descendants.
func AllowCreate(ds *zfs.Dataset, perms []string) (Args, error) {
	p, err := permissionList(perms)
	if err != nil {
		return nil, err
	}
	return Args{"allow", "-c", p, ds.Name()}, nil
}

// UnallowCreate builds zfs unallow -c.
func UnallowCreate(ds *zfs.Dataset, perms []string, recursive bool) (Args, error) {
	p, err := permissionList(perms)
	if err != nil {
		return nil, err
	}
	a := Args{"unallow"}
	if recursive {
		a = append(a, "-r")
	}
	return append(a, "-c", p, ds.Name()), nil
}

// AllowSet builds zfs allow -s, defining the permission set @name.
func AllowSet(ds *zfs.Dataset, set string, perms []string) (Args, error) {
	if err := validateSetName(set); err != nil {
		return nil, err
	}
	p, err := permissionList(perms)
	if err != nil {
		return nil, err
	}
	return Args{"allow", "-s", set, p, ds.Name()}, nil
}

// UnallowSet builds zfs unallow -s.
func UnallowSet(ds *zfs.Dataset, set string, perms []string, recursive bool) (Args, error) {
	if err := validateSetName(set); err != nil {
		return nil, err
	}
	p, err := permissionList(perms)
	if err != nil {
		return nil, err
	}
	a := Args{"unallow"}
	if recursive {
		a = append(a, "-r")
	}
	return append(a, "-s", set, p, ds.Name()), nil
}

func validateSetName(set string) error {
	if !strings.HasPrefix(set, "@") || zfs.ValidateName(strings.TrimPrefix(set, "@")) != nil {
		return &zfs.ValidationError{Kind: "permission set name", Value: set}
	}
	return nil
}

// permissionList accepts permission names, property names and @set names.
func permissionList(perms []string) (string, error) {
	if len(perms) == 0 {
		return "", &zfs.ValidationError{Kind: "permission list", Value: ""}
	}
	for _, p := range perms {
		name := strings.TrimPrefix(p, "@")
		if err := zfs.ValidateName(name); err != nil {
			return "", &zfs.ValidationError{Kind: "permission", Value: p}
		}
	}
	return strings.Join(perms, ","), nil
}
