// Package parse turns zfs list and zfs get output into resources.
package parse

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// placeholder is what zfs prints for a property without a value.
const placeholder = "-"

// ParseError reports a line that does not have the expected shape.
type ParseError struct {
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// apply stores props on r one at a time. zfs reports properties newer than
// the whitelists, and those are dropped instead of failing the record.
func apply(r zfs.Resource, keys []string, props zfs.Props) error {
	for _, k := range keys {
		err := r.Update(zfs.Props{k: props[k]})
		var uerr *zfs.UnknownPropertyError
		var verr *zfs.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &uerr), errors.As(err, &verr):
		default:
			return err
		}
	}
	return nil
}

// ListLine parses one line of zfs list -H output. columns is the -o list
// the command was built with, starting with name and type.
func ListLine(line string, columns []string) (zfs.Resource, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, &ParseError{Text: line, Reason: "expected at least name and type"}
	}
	name, typ := fields[0], fields[1]
	if typ == placeholder {
		typ = ""
	}

	var keys []string
	props := make(zfs.Props)
	for i, v := range fields[2:] {
		if i+2 >= len(columns) {
			break
		}
		k := columns[i+2]
		keys = append(keys, k)
		if v == placeholder {
			props[k] = nil
			continue
		}
		props[k] = zfs.Value(v)
	}

	r, err := zfs.FromName(name, zfs.Type(typ), nil)
	if err != nil {
		return nil, err
	}
	if err := apply(r, keys, props); err != nil {
		return nil, err
	}
	return r, nil
}

// Listing parses a stream of zfs list lines. It stops at the first error.
func Listing(lines iter.Seq2[string, error], columns []string) iter.Seq2[zfs.Resource, error] {
	return func(yield func(zfs.Resource, error) bool) {
		n := 0
		for line, err := range lines {
			if err != nil {
				yield(nil, err)
				return
			}
			n++
			r, err := ListLine(line, columns)
			if err != nil {
				var perr *ParseError
				if errors.As(err, &perr) {
					perr.Line = n
				}
				yield(nil, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// DumpParser groups zfs get -H -o name,property,value,received,source lines
// into one resource per name. Feed it every line, then call Flush once the
// input is exhausted; the last record is only emitted by Flush.
type DumpParser struct {
	sources []string
	line    int

	name  string
	typ   string
	keys  []string
	props zfs.Props
}

// NewDumpParser keeps properties whose source category is in sources. An
// empty filter or one containing "all" keeps every property.
func NewDumpParser(sources []string) *DumpParser {
	p := &DumpParser{}
	for _, s := range sources {
		s = strings.ToLower(s)
		if s == "all" {
			p.sources = nil
			break
		}
		p.sources = append(p.sources, s)
	}
	return p
}

// Feed consumes one line and returns the previous record when line starts a
// new one.
func (p *DumpParser) Feed(line string) (zfs.Resource, error) {
	p.line++
	if line == "" {
		return nil, nil
	}
	fields := strings.Split(line, "\t")
	if len(fields) != 5 {
		return nil, &ParseError{Line: p.line, Text: line, Reason: fmt.Sprintf("expected 5 tab separated fields, got %d", len(fields))}
	}
	name, prop, value, received, source := fields[0], fields[1], fields[2], fields[3], fields[4]

	var done zfs.Resource
	if p.name != "" && name != p.name {
		r, err := p.Flush()
		if err != nil {
			return nil, err
		}
		done = r
	}
	p.name = name

	switch prop {
	case "type":
		p.typ = value
	case "name":
	default:
		src, from := zfs.ParseSource(source)
		if !p.keep(src) {
			break
		}
		if received == placeholder {
			received = ""
		}
		if p.props == nil {
			p.props = make(zfs.Props)
		}
		if _, seen := p.props[prop]; !seen {
			p.keys = append(p.keys, prop)
		}
		p.props[prop] = &zfs.Property{Value: value, Source: src, Received: received, InheritedFrom: from}
	}
	return done, nil
}

func (p *DumpParser) keep(src zfs.Source) bool {
	return len(p.sources) == 0 || slices.Contains(p.sources, string(src))
}

// Flush builds the pending record, if any, and resets the parser. Without a
// type row the type is guessed from the name.
func (p *DumpParser) Flush() (zfs.Resource, error) {
	if p.name == "" {
		return nil, nil
	}
	name, typ, keys, props := p.name, p.typ, p.keys, p.props
	p.name, p.typ, p.keys, p.props = "", "", nil, nil

	r, err := zfs.FromName(name, zfs.Type(typ), nil)
	if err != nil {
		return nil, err
	}
	if err := apply(r, keys, props); err != nil {
		return nil, err
	}
	return r, nil
}

// Dump parses a stream of zfs get lines, flushing the trailing record after
// the input ends. It stops at the first error.
func Dump(lines iter.Seq2[string, error], sources []string) iter.Seq2[zfs.Resource, error] {
	return func(yield func(zfs.Resource, error) bool) {
		p := NewDumpParser(sources)
		for line, err := range lines {
			if err != nil {
				yield(nil, err)
				return
			}
			r, err := p.Feed(line)
			if err != nil {
				yield(nil, err)
				return
			}
			if r != nil && !yield(r, nil) {
				return
			}
		}
		r, err := p.Flush()
		if err != nil {
			yield(nil, err)
			return
		}
		if r != nil {
			yield(r, nil)
		}
	}
}
