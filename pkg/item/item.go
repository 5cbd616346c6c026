// Package item defines the selectable entries that make up the cache.
// An item is a label plus the provenance of whoever produced it, so a
// selection can be routed back without rescanning the sources.
package item

import (
	"strings"
)

// Kind identifies the source that produced an item
type Kind int

const (
	Unknown Kind = iota
	File
	Folder
	Binary
	Plugin
	Include
)

// String returns the tag written to the provenance sidecar
func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Folder:
		return "folder"
	case Binary:
		return "binary"
	case Plugin:
		return "plugin"
	case Include:
		return "include"
	default:
		return "unknown"
	}
}

// Item is one selectable label
type Item struct {
	Label string
	Kind  Kind
	// PluginID is the plugin identifier for Plugin items
	PluginID string
}

// Tag encodes the provenance as a single line
func (it Item) Tag() string {
	if it.Kind == Plugin {
		return "plugin:" + it.PluginID
	}
	return it.Kind.String()
}

// ParseTag decodes a tag written by Tag. Unrecognised tags yield Unknown.
func ParseTag(tag string) (Kind, string) {
	if id, ok := strings.CutPrefix(tag, "plugin:"); ok && id != "" {
		return Plugin, id
	}
	switch tag {
	case "file":
		return File, ""
	case "folder":
		return Folder, ""
	case "binary":
		return Binary, ""
	case "include":
		return Include, ""
	default:
		return Unknown, ""
	}
}

// ValidLabel reports whether label can be stored as one cache line
func ValidLabel(label string) bool {
	return label != "" && !strings.ContainsAny(label, "\r\n")
}

// Labels returns the labels of items in order
func Labels(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Label
	}
	return out
}

// Of wraps labels from one source
func Of(kind Kind, labels ...string) []Item {
	out := make([]Item, 0, len(labels))
	for _, l := range labels {
		out = append(out, Item{Label: l, Kind: kind})
	}
	return out
}
