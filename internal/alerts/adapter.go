package alerts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opsimate/opsimate/internal/database"
)

// ParsedAlert is the result of normalizing one source alert. Resolve marks an
// explicit point-event resolution from the source (the alert should leave the
// active table) as opposed to a regular upsert.
type ParsedAlert struct {
	Alert   database.Alert
	Resolve bool
}

// Adapter defines the interface for source-specific alert parsing
type Adapter interface {
	// SourceType returns the source type name (e.g. "gcp", "custom")
	SourceType() string

	// Parse parses the raw request body into normalized alerts.
	// A single payload can contain multiple alerts.
	Parse(body []byte) ([]ParsedAlert, error)
}

// ValidationError carries per-field validation failures from an adapter.
// Handlers render it as a 400 with the full field list.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e.Fields[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Registry is a typed dispatch table from source type to adapter, built once
// at startup.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter to the registry
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.SourceType()] = adapter
}

// Get returns the adapter for a source type, or nil if none is registered
func (r *Registry) Get(sourceType string) Adapter {
	return r.adapters[sourceType]
}

// SourceTypes returns the registered source type names, sorted
func (r *Registry) SourceTypes() []string {
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// TagMap converts a string map into the stored JSONB representation
func TagMap(tags map[string]string) database.JSONB {
	if tags == nil {
		return database.JSONB{}
	}
	m := make(database.JSONB, len(tags))
	for k, v := range tags {
		m[k] = v
	}
	return m
}

// PrimaryTag picks the correlation tag from a tag map. A "tag" or "service"
// key wins; otherwise the value of the alphabetically-first key is used so the
// choice is deterministic.
func PrimaryTag(tags map[string]string) string {
	if v, ok := tags["tag"]; ok && v != "" {
		return v
	}
	if v, ok := tags["service"]; ok && v != "" {
		return v
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if tags[k] != "" {
			return tags[k]
		}
	}
	return ""
}
