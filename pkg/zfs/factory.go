package zfs

import "strings"

type nameRule struct {
	match func(string) bool
	build func(name string, props Props) (Resource, error)
}

// nameRules are evaluated in order; the first matching predicate decides.
var nameRules = []nameRule{
	{IsDatasetName, func(n string, p Props) (Resource, error) { return asResource(NewDataset(n, p)) }},
	{IsSnapshotName, func(n string, p Props) (Resource, error) { return asResource(ParseSnapshot(n, p)) }},
	{IsBookmarkName, func(n string, p Props) (Resource, error) { return asResource(ParseBookmark(n, p)) }},
}

// FromName builds a resource from its full name. With a hint the matching
// constructor is used directly; otherwise the type is guessed from the shape
// of name.
func FromName(name string, hint Type, props Props) (Resource, error) {
	if hint != "" {
		switch Type(strings.ToLower(string(hint))) {
		case TypeFilesystem:
			return asResource(NewFilesystem(name, props))
		case TypeVolume:
			return asResource(NewVolume(name, props))
		case TypeDataset:
			return asResource(NewDataset(name, props))
		case TypeSnapshot:
			return asResource(ParseSnapshot(name, props))
		case TypeBookmark:
			return asResource(ParseBookmark(name, props))
		default:
			return nil, &ValidationError{Kind: "type", Value: string(hint)}
		}
	}
	for _, r := range nameRules {
		if r.match(name) {
			return r.build(name, props)
		}
	}
	return nil, &UnresolvableNameError{Name: name}
}

func asResource[T Resource](r T, err error) (Resource, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
