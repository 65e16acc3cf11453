package handlers

import (
	"time"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// Property is the wire form of zfs.Property.
type Property struct {
	Value         string `json:"value"`
	Source        string `json:"source,omitempty"`
	Received      string `json:"received,omitempty"`
	InheritedFrom string `json:"inherited_from,omitempty"`
}

// Resource is the wire form of a dataset, snapshot or bookmark.
type Resource struct {
	Name       string              `json:"name"`
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
}

func resourceOf(r zfs.Resource) Resource {
	out := Resource{Name: r.Name(), Type: string(r.Type())}
	for k, p := range r.Properties() {
		if p == nil {
			continue
		}
		if out.Properties == nil {
			out.Properties = make(map[string]Property)
		}
		out.Properties[k] = Property{
			Value:         p.Value,
			Source:        string(p.Source),
			Received:      p.Received,
			InheritedFrom: p.InheritedFrom,
		}
	}
	return out
}

type ListRequest struct {
	Roots      []string `json:"roots,omitempty"`
	Types      []string `json:"types,omitempty"`
	Recursive  bool     `json:"recursive,omitempty"`
	Depth      int      `json:"depth,omitempty"`
	Properties []string `json:"properties,omitempty"`
	Sort       []string `json:"sort,omitempty"`
}

type ListResponse struct {
	Resources []Resource `json:"resources"`
}

type GetRequest struct {
	Targets    []string `json:"targets"`
	Properties []string `json:"properties,omitempty"`
	Sources    []string `json:"sources,omitempty"`
	Recursive  bool     `json:"recursive,omitempty"`
	Depth      int      `json:"depth,omitempty"`
}

type GetResponse struct {
	Resources []Resource `json:"resources"`
}

type SnapshotRequest struct {
	Dataset    string            `json:"dataset"`
	Name       string            `json:"name"`
	Recursive  bool              `json:"recursive,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type SnapshotResponse struct {
	Snapshot Resource `json:"snapshot"`
}

type DestroyRequest struct {
	// Target is a dataset, snapshot, snapshot range (pool/fs@a%b) or
	// bookmark name.
	Target    string `json:"target"`
	Confirm   bool   `json:"confirm,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	Clones    bool   `json:"clones,omitempty"`
}

type DestroyResponse struct {
	Destroyed []string `json:"destroyed"`
	DryRun    bool     `json:"dry_run"`
}

type HistoryRequest struct {
	Subcommand string `json:"subcommand,omitempty"`
	FailedOnly bool   `json:"failed_only,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

type Invocation struct {
	ID        string        `json:"id"`
	Args      []string      `json:"args"`
	Mode      string        `json:"mode"`
	DryRun    bool          `json:"dry_run,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	ExitCode  int           `json:"exit_code"`
	Error     string        `json:"error,omitempty"`
}

type HistoryResponse struct {
	Invocations []Invocation `json:"invocations"`
}

type HealthRequest struct{}

type HealthResponse struct {
	Status         string `json:"status"`
	Message        string `json:"message,omitempty"`
	DryRun         bool   `json:"dry_run"`
	Journal        bool   `json:"journal"`
	JournalVersion int64  `json:"journal_version,omitempty"`
	Invocations    int64  `json:"invocations,omitempty"`
	Failed         int64  `json:"failed,omitempty"`
}
