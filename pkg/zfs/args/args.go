// Package args builds zfs argument vectors. Builders validate every string
// that ends up in an argument and never spawn a process.
package args

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// Args is an argument vector without the zfs binary itself.
type Args []string

// String renders the vector quoted for a POSIX shell.
func (a Args) String() string {
	return shellescape.QuoteCommand(a)
}

// Subcommand returns the first element, e.g. "list".
func (a Args) Subcommand() string {
	if len(a) == 0 {
		return ""
	}
	return a[0]
}

func conflict(format string, v ...any) error {
	return &zfs.InvalidOptionCombinationError{Reason: fmt.Sprintf(format, v...)}
}

// validateValue rejects property values that cannot be passed as a single
// k=v argument.
func validateValue(key, value string) error {
	if strings.ContainsAny(value, "\n\x00") {
		return &zfs.ValidationError{Kind: "value for " + key, Value: value}
	}
	return nil
}

// assignments renders properties as k=v, each prefixed with flag when flag is
// not empty.
func assignments(props iter.Seq2[string, *zfs.Property], flag string) ([]string, error) {
	var out []string
	for k, p := range props {
		if p == nil {
			continue
		}
		if err := zfs.ValidateAttribute(k); err != nil {
			return nil, err
		}
		if err := validateValue(k, p.Value); err != nil {
			return nil, err
		}
		if flag != "" {
			out = append(out, flag)
		}
		out = append(out, k+"="+p.Value)
	}
	return out, nil
}

// sortedProps walks a Props map in key order.
func sortedProps(props zfs.Props) iter.Seq2[string, *zfs.Property] {
	return func(yield func(string, *zfs.Property) bool) {
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if !yield(k, props[k]) {
				return
			}
		}
	}
}

// validateColumn accepts a property or the name pseudo column, which zfs
// takes in -o lists and sort keys but which is not a property itself.
func validateColumn(s string) error {
	if s == "name" {
		return nil
	}
	return zfs.ValidateAttribute(s)
}

func tokenList(tokens []string, validate func(string) error) (string, error) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if err := validate(t); err != nil {
			return "", err
		}
		out = append(out, strings.ToLower(t))
	}
	return strings.Join(out, ","), nil
}

func nameList(names []string) (string, error) {
	for _, n := range names {
		if err := zfs.ValidateName(n); err != nil {
			return "", err
		}
	}
	return strings.Join(names, ","), nil
}

func depthArgs(recursive bool, depth int) ([]string, error) {
	if depth < 0 {
		return nil, &zfs.ValidationError{Kind: "depth", Value: strconv.Itoa(depth)}
	}
	switch {
	case !recursive:
		return []string{"-d", "1"}, nil
	case depth > 0:
		return []string{"-d", strconv.Itoa(depth)}, nil
	default:
		return []string{"-r"}, nil
	}
}

var resumeTokenRe = regexp.MustCompile(`^[0-9a-zA-Z-]+$`)
