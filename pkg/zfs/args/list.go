package args

import (
	"slices"
	"strconv"
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// SortKey orders list output by a property.
type SortKey struct {
	Property   string
	Descending bool
}

// ListOptions configures zfs list.
type ListOptions struct {
	// Roots limits the listing to these datasets. Empty lists every pool.
	Roots []zfs.Resource
	// Types is passed to -t. Empty uses the zfs default.
	Types []string
	// Recursive lists all descendants of the roots, bounded by Depth when
	// Depth is positive. Without it only the roots and their direct children
	// are listed.
	Recursive bool
	Depth     int
	// Properties requested in addition to name and type.
	Properties []string
	Sort       []SortKey
	// Parsable prints exact numeric values.
	Parsable bool
}

// Columns returns the -o column list for the requested properties. The
// listing parser needs it to map fields back to names.
func Columns(properties []string) []string {
	cols := []string{"name", "type"}
	for _, p := range properties {
		if p != "name" && p != "type" {
			cols = append(cols, p)
		}
	}
	return cols
}

// List builds zfs list -H.
func List(opts ListOptions) (Args, error) {
	a := Args{"list", "-H"}
	if opts.Parsable {
		a = append(a, "-p")
	}

	depth, err := depthArgs(opts.Recursive, opts.Depth)
	if err != nil {
		return nil, err
	}
	a = append(a, depth...)

	if len(opts.Types) > 0 {
		types, err := tokenList(opts.Types, zfs.ValidateType)
		if err != nil {
			return nil, err
		}
		a = append(a, "-t", types)
	}

	for _, k := range opts.Sort {
		if err := validateColumn(k.Property); err != nil {
			return nil, err
		}
		flag := "-s"
		if k.Descending {
			flag = "-S"
		}
		a = append(a, flag, k.Property)
	}

	for _, p := range opts.Properties {
		if err := validateColumn(p); err != nil {
			return nil, err
		}
	}
	a = append(a, "-o", strings.Join(Columns(opts.Properties), ","))

	for _, r := range opts.Roots {
		a = append(a, r.Name())
	}
	return a, nil
}

// DumpFields is the fixed -o field list of zfs get; the property dump parser
// depends on this order.
var DumpFields = []string{"name", "property", "value", "received", "source"}

// GetOptions configures zfs get.
type GetOptions struct {
	Targets []zfs.Resource
	// Properties to fetch. Empty or containing "all" fetches every property.
	Properties []string
	// Types is passed to -t, default all.
	Types []string
	// Sources filters the result by provenance, default all. zfs get -s would
	// also drop the type row, so the filter is applied when parsing; the
	// builder only validates it.
	Sources   []string
	Recursive bool
	Depth     int
	Parsable  bool
}

// Get builds zfs get -H with the fields of DumpFields.
func Get(opts GetOptions) (Args, error) {
	a := Args{"get", "-H"}
	if opts.Parsable {
		a = append(a, "-p")
	}
	for _, f := range DumpFields {
		if err := zfs.ValidateField(f); err != nil {
			return nil, err
		}
	}
	a = append(a, "-o", strings.Join(DumpFields, ","))

	if opts.Recursive {
		a = append(a, "-r")
	}
	if opts.Depth < 0 {
		return nil, &zfs.ValidationError{Kind: "depth", Value: strconv.Itoa(opts.Depth)}
	}
	if opts.Depth > 0 {
		a = append(a, "-d", strconv.Itoa(opts.Depth))
	}

	types := opts.Types
	if len(types) == 0 {
		types = []string{"all"}
	}
	t, err := tokenList(types, zfs.ValidateType)
	if err != nil {
		return nil, err
	}
	a = append(a, "-t", t)

	for _, s := range opts.Sources {
		if err := zfs.ValidateSource(s); err != nil {
			return nil, err
		}
	}

	props := opts.Properties
	for _, p := range props {
		if err := validateColumn(p); err != nil {
			return nil, err
		}
	}
	if len(props) == 0 || slices.Contains(props, "all") {
		a = append(a, "all")
	} else {
		a = append(a, strings.Join(Columns(props), ","))
	}

	for _, r := range opts.Targets {
		a = append(a, r.Name())
	}
	return a, nil
}
