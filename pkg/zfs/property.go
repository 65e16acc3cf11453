package zfs

import "strings"

// Source is the provenance of a property value as reported by zfs get.
type Source string

const (
	SourceUnset     Source = ""
	SourceLocal     Source = "local"
	SourceDefault   Source = "default"
	SourceInherited Source = "inherited"
	SourceTemporary Source = "temporary"
	SourceReceived  Source = "received"
	SourceNone      Source = "-"
)

const inheritedFromPrefix = "inherited from "

// ParseSource splits a raw source column into its category and, for
// inherited values, the dataset the value comes from.
func ParseSource(raw string) (Source, string) {
	if strings.HasPrefix(raw, inheritedFromPrefix) {
		return SourceInherited, strings.TrimPrefix(raw, inheritedFromPrefix)
	}
	return Source(raw), ""
}

// Property is a single value with its provenance. Source, Received and
// InheritedFrom are only populated by queries.
type Property struct {
	Value         string
	Source        Source
	Received      string
	InheritedFrom string
}

// Value returns a locally set property with an unset source.
func Value(v string) *Property {
	return &Property{Value: v}
}

func (p *Property) String() string {
	return p.Value
}

// Props maps property names to values. A nil value means "no change".
type Props map[string]*Property

// Values builds Props from plain strings.
func Values(m map[string]string) Props {
	props := make(Props, len(m))
	for k, v := range m {
		props[k] = Value(v)
	}
	return props
}
