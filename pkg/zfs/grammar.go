package zfs

import (
	"regexp"
	"strings"
)

const (
	poolPattern    = `[a-zA-Z][\w._-]*`
	segmentPattern = `/[\w][\w.:_-]*`
	namePattern    = `[\w.:_-]+`
)

var (
	nameRe     = regexp.MustCompile(`^` + namePattern + `$`)
	datasetRe  = regexp.MustCompile(`^` + poolPattern + `(` + segmentPattern + `)*$`)
	snapshotRe = regexp.MustCompile(`^` + poolPattern + `(` + segmentPattern + `)*@` + namePattern + `$`)
	bookmarkRe = regexp.MustCompile(`^` + poolPattern + `(` + segmentPattern + `)*#` + namePattern + `$`)
)

var (
	typeTokens   = []string{"filesystem", "snapshot", "volume", "bookmark", "dataset", "all"}
	sourceTokens = []string{"local", "default", "inherited", "temporary", "received", "all"}
	fieldTokens  = []string{"name", "property", "value", "received", "source", "all"}
)

// ValidateName checks the generic component grammar shared by snapshot and
// bookmark short names, user and group names and permission names. These
// tokens stand alone in an argument vector, so a leading dash is rejected.
func ValidateName(s string) error {
	if !nameRe.MatchString(s) || strings.HasPrefix(s, "-") {
		return &ValidationError{Kind: "name", Value: s}
	}
	return nil
}

// ValidateDataset checks a pool or pool/child/... name.
func ValidateDataset(s string) error {
	if !datasetRe.MatchString(s) {
		return &ValidationError{Kind: "dataset name", Value: s}
	}
	return nil
}

// ValidateSnapshot checks a dataset@short name.
func ValidateSnapshot(s string) error {
	if !snapshotRe.MatchString(s) {
		return &ValidationError{Kind: "snapshot name", Value: s}
	}
	return nil
}

// ValidateBookmark checks a dataset#short name.
func ValidateBookmark(s string) error {
	if !bookmarkRe.MatchString(s) {
		return &ValidationError{Kind: "bookmark name", Value: s}
	}
	return nil
}

// ValidateType checks a -t token. Matching is case-insensitive.
func ValidateType(s string) error {
	return validateToken(s, "type", typeTokens)
}

// ValidateSource checks a -s token of zfs get.
func ValidateSource(s string) error {
	return validateToken(s, "source", sourceTokens)
}

// ValidateField checks a -o field token of zfs get.
func ValidateField(s string) error {
	return validateToken(s, "field", fieldTokens)
}

// ValidateAttribute accepts user properties (containing a colon) and members
// of the known property union.
func ValidateAttribute(s string) error {
	if !nameRe.MatchString(s) || strings.HasPrefix(s, "-") {
		return &ValidationError{Kind: "property name", Value: s}
	}
	if !strings.Contains(s, ":") && !IsKnownProperty(s) {
		return &ValidationError{Kind: "property name", Value: s}
	}
	return nil
}

func validateToken(s, kind string, allowed []string) error {
	lower := strings.ToLower(s)
	for _, a := range allowed {
		if lower == a {
			return nil
		}
	}
	return &ValidationError{Kind: kind, Value: s}
}

// IsDatasetName reports whether s is a well-formed dataset name.
func IsDatasetName(s string) bool { return datasetRe.MatchString(s) }

// IsSnapshotName reports whether s is a well-formed snapshot name.
func IsSnapshotName(s string) bool { return snapshotRe.MatchString(s) }

// IsBookmarkName reports whether s is a well-formed bookmark name.
func IsBookmarkName(s string) bool { return bookmarkRe.MatchString(s) }
