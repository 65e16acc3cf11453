package zfs

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Type is the concrete ZFS object type as reported in the type column.
type Type string

const (
	TypeFilesystem Type = "filesystem"
	TypeVolume     Type = "volume"
	TypeDataset    Type = "dataset"
	TypeSnapshot   Type = "snapshot"
	TypeBookmark   Type = "bookmark"
)

// Resource is a descriptor of a ZFS object. Constructing one never talks to
// zfs; it only describes state that is believed to exist or is requested.
//
// A single Resource is not safe for concurrent mutation.
type Resource interface {
	Name() string
	Type() Type
	// Get returns the property or nil when it is unset. It fails only when
	// key is not a legal property of the concrete type.
	Get(key string) (*Property, error)
	// Update stores every non-nil entry of props.
	Update(props Props) error
	// Properties yields known properties in whitelist order, then user
	// properties in insertion order. The sequence may be iterated again.
	Properties() iter.Seq2[string, *Property]
	String() string
}

// store holds the property maps of a resource. Known properties are keyed by
// name and walked in whitelist order, so a whitelist that changes under a
// snapshot never reorders or corrupts what was stored.
type store struct {
	known     map[string]*Property
	user      map[string]*Property
	userOrder []string
}

func (s *store) update(whitelist []string, typ Type, props Props) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := ValidateAttribute(k); err != nil {
			return err
		}
		if props[k] == nil || slices.Contains(whitelist, k) || strings.Contains(k, ":") {
			continue
		}
		return &UnknownPropertyError{Property: k, Type: typ}
	}

	for _, k := range keys {
		v := props[k]
		if v == nil {
			continue
		}
		if slices.Contains(whitelist, k) {
			if s.known == nil {
				s.known = make(map[string]*Property)
			}
			s.known[k] = v
			continue
		}
		if s.user == nil {
			s.user = make(map[string]*Property)
		}
		if _, ok := s.user[k]; !ok {
			s.userOrder = append(s.userOrder, k)
		}
		s.user[k] = v
	}
	return nil
}

func (s *store) get(whitelist []string, typ Type, key string) (*Property, error) {
	if err := ValidateAttribute(key); err != nil {
		return nil, err
	}
	if slices.Contains(whitelist, key) {
		return s.known[key], nil
	}
	if strings.Contains(key, ":") {
		return s.user[key], nil
	}
	return nil, &UnknownPropertyError{Property: key, Type: typ}
}

func (s *store) properties(whitelist func() []string) iter.Seq2[string, *Property] {
	return func(yield func(string, *Property) bool) {
		for _, k := range whitelist() {
			if p, ok := s.known[k]; ok {
				if !yield(k, p) {
					return
				}
			}
		}
		for _, k := range s.userOrder {
			if !yield(k, s.user[k]) {
				return
			}
		}
	}
}

// DatasetKind is the closed set of dataset variants.
type DatasetKind int

const (
	KindGeneric DatasetKind = iota
	KindFilesystem
	KindVolume
)

func (k DatasetKind) String() string {
	switch k {
	case KindFilesystem:
		return string(TypeFilesystem)
	case KindVolume:
		return string(TypeVolume)
	default:
		return string(TypeDataset)
	}
}

// Dataset is a filesystem, a volume, or a dataset whose variant is not known
// yet.
type Dataset struct {
	name  string
	kind  DatasetKind
	props store
}

// NewDataset returns a dataset of unknown variant.
func NewDataset(name string, props Props) (*Dataset, error) {
	return newDataset(name, KindGeneric, props)
}

// NewFilesystem returns a filesystem dataset.
func NewFilesystem(name string, props Props) (*Dataset, error) {
	return newDataset(name, KindFilesystem, props)
}

// NewVolume returns a volume dataset.
func NewVolume(name string, props Props) (*Dataset, error) {
	return newDataset(name, KindVolume, props)
}

func newDataset(name string, kind DatasetKind, props Props) (*Dataset, error) {
	if err := ValidateDataset(name); err != nil {
		return nil, err
	}
	d := &Dataset{name: name, kind: kind}
	if err := d.Update(props); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dataset) Name() string      { return d.name }
func (d *Dataset) String() string    { return d.name }
func (d *Dataset) Kind() DatasetKind { return d.kind }
func (d *Dataset) Type() Type        { return Type(d.kind.String()) }

// Pool returns the first path component.
func (d *Dataset) Pool() string {
	pool, _, _ := strings.Cut(d.name, "/")
	return pool
}

// Narrow turns a generic dataset into a filesystem or a volume. Snapshots and
// bookmarks referencing d observe the new whitelist from then on.
func (d *Dataset) Narrow(kind DatasetKind) error {
	if d.kind == kind {
		return nil
	}
	if d.kind != KindGeneric {
		return fmt.Errorf("cannot narrow %s %s to %s", d.kind, d.name, kind)
	}
	d.kind = kind
	return nil
}

func (d *Dataset) whitelist() []string {
	switch d.kind {
	case KindFilesystem:
		return filesystemWhitelist
	case KindVolume:
		return volumeWhitelist
	default:
		return genericWhitelist
	}
}

func (d *Dataset) Update(props Props) error {
	return d.props.update(d.whitelist(), d.Type(), props)
}

func (d *Dataset) Get(key string) (*Property, error) {
	return d.props.get(d.whitelist(), d.Type(), key)
}

func (d *Dataset) Properties() iter.Seq2[string, *Property] {
	return d.props.properties(d.whitelist)
}

// LegalProperties returns the whitelist of known properties for r. For a
// snapshot it depends on the variant of its dataset at the time of the call.
func LegalProperties(r Resource) []string {
	switch r := r.(type) {
	case *Dataset:
		return slices.Clone(r.whitelist())
	case *Snapshot:
		return slices.Clone(r.whitelist())
	case *Bookmark:
		return slices.Clone(bookmarkWhitelist)
	}
	return nil
}
