package zfs

import "fmt"

// ValidationError is returned when a name, property or option token does not
// match the ZFS grammar. It is always raised before any process is spawned.
type ValidationError struct {
	Kind  string // what was being validated, e.g. "dataset name"
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%q is not a valid ZFS %s", e.Value, e.Kind)
}

// UnknownPropertyError is returned when a syntactically valid property is not
// legal for the concrete resource type.
type UnknownPropertyError struct {
	Property string
	Type     Type
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("%s is not a valid %s property", e.Property, e.Type)
}

// InvalidOptionCombinationError is returned by argument builders when two
// options cannot be used together.
type InvalidOptionCombinationError struct {
	Reason string
}

func (e *InvalidOptionCombinationError) Error() string {
	return "invalid option combination: " + e.Reason
}

// HeterogeneousTargetError is returned when a batch operation spans more than
// one owning dataset.
type HeterogeneousTargetError struct {
	Want string
	Got  string
}

func (e *HeterogeneousTargetError) Error() string {
	return fmt.Sprintf("targets must share one dataset: expected %s, got %s", e.Want, e.Got)
}

// UnresolvableNameError is returned by FromName when no resource type matches.
type UnresolvableNameError struct {
	Name string
}

func (e *UnresolvableNameError) Error() string {
	return fmt.Sprintf("could not guess ZFS object type of %q", e.Name)
}
