package main

import (
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"github.com/elee1766/gozfs/pkg/zfs"
)

// byteProperties hold exact byte counts when listed with -p.
var byteProperties = map[string]bool{
	"available":            true,
	"avail":                true,
	"used":                 true,
	"referenced":           true,
	"refer":                true,
	"written":              true,
	"logicalused":          true,
	"logicalreferenced":    true,
	"usedbysnapshots":      true,
	"usedbydataset":        true,
	"usedbychildren":       true,
	"usedbyrefreservation": true,
	"quota":                true,
	"refquota":             true,
	"reservation":          true,
	"refreservation":       true,
	"volsize":              true,
	"volblocksize":         true,
	"recordsize":           true,
}

// formatValue humanizes byte counts. Anything not numeric is printed as is.
func formatValue(prop, value string) string {
	if !byteProperties[prop] {
		return value
	}
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return value
	}
	return humanize.IBytes(n)
}

type propertyView struct {
	Value         string `yaml:"value"`
	Source        string `yaml:"source,omitempty"`
	Received      string `yaml:"received,omitempty"`
	InheritedFrom string `yaml:"inherited_from,omitempty"`
}

type resourceView struct {
	Name       string                  `yaml:"name"`
	Type       string                  `yaml:"type"`
	Properties map[string]propertyView `yaml:"properties,omitempty"`
}

func viewOf(r zfs.Resource) resourceView {
	v := resourceView{Name: r.Name(), Type: string(r.Type())}
	for k, p := range r.Properties() {
		if p == nil {
			continue
		}
		if v.Properties == nil {
			v.Properties = make(map[string]propertyView)
		}
		v.Properties[k] = propertyView{
			Value:         p.Value,
			Source:        string(p.Source),
			Received:      p.Received,
			InheritedFrom: p.InheritedFrom,
		}
	}
	return v
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// printListing renders one row per resource with a column per property.
// Byte counts are humanized unless exact is set.
func printListing(w io.Writer, format string, resources []zfs.Resource, props []string, exact bool) error {
	if format == "yaml" {
		views := make([]resourceView, 0, len(resources))
		for _, r := range resources {
			views = append(views, viewOf(r))
		}
		return writeYAML(w, views)
	}

	t := newTable(w)
	header := table.Row{"Name", "Type"}
	var configs []table.ColumnConfig
	for i, p := range props {
		header = append(header, p)
		if byteProperties[p] {
			configs = append(configs, table.ColumnConfig{Number: i + 3, Align: text.AlignRight})
		}
	}
	t.AppendHeader(header)
	t.SetColumnConfigs(configs)

	for _, r := range resources {
		row := table.Row{r.Name(), r.Type()}
		for _, p := range props {
			value := "-"
			if prop, err := r.Get(p); err == nil && prop != nil {
				value = prop.Value
				if !exact {
					value = formatValue(p, value)
				}
			}
			row = append(row, value)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// printProperties renders the property dump the way zfs get does: one row
// per name and property.
func printProperties(w io.Writer, format string, resources []zfs.Resource) error {
	if format == "yaml" {
		views := make([]resourceView, 0, len(resources))
		for _, r := range resources {
			views = append(views, viewOf(r))
		}
		return writeYAML(w, views)
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"Name", "Property", "Value", "Source"})
	for _, r := range resources {
		for k, p := range r.Properties() {
			if p == nil {
				continue
			}
			source := string(p.Source)
			if p.Source == zfs.SourceInherited && p.InheritedFrom != "" {
				source = "inherited from " + p.InheritedFrom
			}
			t.AppendRow(table.Row{r.Name(), k, formatValue(k, p.Value), source})
		}
	}
	t.Render()
	return nil
}
