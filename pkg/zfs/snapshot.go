package zfs

import (
	"iter"
	"strings"
)

// Snapshot is a point-in-time view of a dataset, named dataset@short.
// The dataset is referenced, not owned; renaming it later does not rename
// the snapshot.
type Snapshot struct {
	name    string
	dataset *Dataset
	props   store
}

// NewSnapshot returns ds@short. Leading and trailing '@' are stripped from
// short.
func NewSnapshot(ds *Dataset, short string, props Props) (*Snapshot, error) {
	if ds == nil {
		return nil, &ValidationError{Kind: "snapshot name", Value: "@" + short}
	}
	name := ds.Name() + "@" + strings.Trim(short, "@")
	if err := ValidateSnapshot(name); err != nil {
		return nil, err
	}
	s := &Snapshot{name: name, dataset: ds}
	if err := s.Update(props); err != nil {
		return nil, err
	}
	return s, nil
}

// ParseSnapshot splits a full snapshot name. The dataset is generic.
func ParseSnapshot(name string, props Props) (*Snapshot, error) {
	if err := ValidateSnapshot(name); err != nil {
		return nil, err
	}
	dsName, short, _ := strings.Cut(name, "@")
	ds, err := NewDataset(dsName, nil)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(ds, short, props)
}

func (s *Snapshot) Name() string        { return s.name }
func (s *Snapshot) String() string      { return s.name }
func (s *Snapshot) Type() Type          { return TypeSnapshot }
func (s *Snapshot) Dataset() *Dataset   { return s.dataset }
func (s *Snapshot) Short() string       { return s.name[strings.IndexByte(s.name, '@')+1:] }
func (s *Snapshot) datasetName() string { return s.name[:strings.IndexByte(s.name, '@')] }

// whitelist is looked up on every access so a dataset narrowed after the
// snapshot was built changes what the snapshot accepts.
func (s *Snapshot) whitelist() []string {
	switch s.dataset.Kind() {
	case KindFilesystem:
		return snapshotOfFilesystemWhitelist
	case KindVolume:
		return snapshotOfVolumeWhitelist
	default:
		return snapshotOfGenericWhitelist
	}
}

func (s *Snapshot) Update(props Props) error {
	return s.props.update(s.whitelist(), TypeSnapshot, props)
}

func (s *Snapshot) Get(key string) (*Property, error) {
	return s.props.get(s.whitelist(), TypeSnapshot, key)
}

func (s *Snapshot) Properties() iter.Seq2[string, *Property] {
	return s.props.properties(s.whitelist)
}

// Bookmark marks a point in a dataset's history, named dataset#short. Like a
// snapshot it keeps the owning dataset, never the snapshot it came from.
type Bookmark struct {
	name    string
	dataset *Dataset
	props   store
}

// NewBookmark returns ds#short. Leading and trailing '#' are stripped from
// short.
func NewBookmark(ds *Dataset, short string, props Props) (*Bookmark, error) {
	if ds == nil {
		return nil, &ValidationError{Kind: "bookmark name", Value: "#" + short}
	}
	name := ds.Name() + "#" + strings.Trim(short, "#")
	if err := ValidateBookmark(name); err != nil {
		return nil, err
	}
	b := &Bookmark{name: name, dataset: ds}
	if err := b.Update(props); err != nil {
		return nil, err
	}
	return b, nil
}

// ParseBookmark splits a full bookmark name. The dataset is generic.
func ParseBookmark(name string, props Props) (*Bookmark, error) {
	if err := ValidateBookmark(name); err != nil {
		return nil, err
	}
	dsName, short, _ := strings.Cut(name, "#")
	ds, err := NewDataset(dsName, nil)
	if err != nil {
		return nil, err
	}
	return NewBookmark(ds, short, props)
}

func (b *Bookmark) Name() string      { return b.name }
func (b *Bookmark) String() string    { return b.name }
func (b *Bookmark) Type() Type        { return TypeBookmark }
func (b *Bookmark) Dataset() *Dataset { return b.dataset }
func (b *Bookmark) Short() string     { return b.name[strings.IndexByte(b.name, '#')+1:] }

func (b *Bookmark) Update(props Props) error {
	return b.props.update(bookmarkWhitelist, TypeBookmark, props)
}

func (b *Bookmark) Get(key string) (*Property, error) {
	return b.props.get(bookmarkWhitelist, TypeBookmark, key)
}

func (b *Bookmark) Properties() iter.Seq2[string, *Property] {
	return b.props.properties(func() []string { return bookmarkWhitelist })
}

// SnapshotRange is a first%last span of snapshots of one dataset. Either end
// may be open, not both.
type SnapshotRange struct {
	dataset *Dataset
	first   *Snapshot
	last    *Snapshot
}

// NewSnapshotRange pairs first and last. Both must belong to the same
// dataset when both are given.
func NewSnapshotRange(first, last *Snapshot) (*SnapshotRange, error) {
	switch {
	case first == nil && last == nil:
		return nil, &ValidationError{Kind: "snapshot range", Value: "%"}
	case first == nil:
		return &SnapshotRange{dataset: last.dataset, last: last}, nil
	case last == nil:
		return &SnapshotRange{dataset: first.dataset, first: first}, nil
	}
	if first.datasetName() != last.datasetName() {
		return nil, &HeterogeneousTargetError{Want: first.datasetName(), Got: last.datasetName()}
	}
	return &SnapshotRange{dataset: first.dataset, first: first, last: last}, nil
}

// ParseSnapshotRange accepts dataset@first%last where one side may be empty.
func ParseSnapshotRange(s string) (*SnapshotRange, error) {
	dsName, span, ok := strings.Cut(s, "@")
	if !ok {
		return nil, &ValidationError{Kind: "snapshot range", Value: s}
	}
	firstName, lastName, ok := strings.Cut(span, "%")
	if !ok {
		return nil, &ValidationError{Kind: "snapshot range", Value: s}
	}
	ds, err := NewDataset(dsName, nil)
	if err != nil {
		return nil, err
	}
	var first, last *Snapshot
	if firstName != "" {
		if first, err = NewSnapshot(ds, firstName, nil); err != nil {
			return nil, err
		}
	}
	if lastName != "" {
		if last, err = NewSnapshot(ds, lastName, nil); err != nil {
			return nil, err
		}
	}
	return NewSnapshotRange(first, last)
}

func (r *SnapshotRange) Dataset() *Dataset { return r.dataset }
func (r *SnapshotRange) First() *Snapshot  { return r.first }
func (r *SnapshotRange) Last() *Snapshot   { return r.last }

// Short renders first%last with either side possibly empty.
func (r *SnapshotRange) Short() string {
	var b strings.Builder
	if r.first != nil {
		b.WriteString(r.first.Short())
	}
	b.WriteByte('%')
	if r.last != nil {
		b.WriteString(r.last.Short())
	}
	return b.String()
}

func (r *SnapshotRange) Name() string   { return r.dataset.Name() + "@" + r.Short() }
func (r *SnapshotRange) String() string { return r.Name() }

// SnapshotTarget is anything that names snapshots of one dataset: a single
// Snapshot or a SnapshotRange.
type SnapshotTarget interface {
	Dataset() *Dataset
	Short() string
	Name() string
}
