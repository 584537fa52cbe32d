package integrations

import (
	"context"

	"github.com/opsimate/opsimate/internal/database"
)

// DashboardLink is one external dashboard matched by tag
type DashboardLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Connector fetches dashboard links from one kind of external monitoring
// system. Implementations isolate per-tag fetch failures: a failure for one
// tag is logged and contributes an empty result rather than aborting the
// whole request.
type Connector interface {
	// Type returns the integration type this connector serves
	Type() database.IntegrationType

	// DashboardURLsByTags returns dashboard links matching any of the tag
	// names. Credentials arrive already decrypted.
	DashboardURLsByTags(ctx context.Context, integration *database.Integration, creds map[string]string, tags []string) ([]DashboardLink, error)
}

// Registry is a typed dispatch table from integration type to connector,
// built once at startup.
type Registry struct {
	connectors map[database.IntegrationType]Connector
}

// NewRegistry creates an empty connector registry
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[database.IntegrationType]Connector)}
}

// Register adds a connector
func (r *Registry) Register(connector Connector) {
	r.connectors[connector.Type()] = connector
}

// Get returns the connector for an integration type, or nil
func (r *Registry) Get(integrationType database.IntegrationType) Connector {
	return r.connectors[integrationType]
}

// DeduplicateByURL drops links whose URL was already seen, preserving order.
// Applied when aggregating results across tags and integrations for display.
func DeduplicateByURL(links []DashboardLink) []DashboardLink {
	seen := make(map[string]bool, len(links))
	result := make([]DashboardLink, 0, len(links))
	for _, link := range links {
		if seen[link.URL] {
			continue
		}
		seen[link.URL] = true
		result = append(result, link)
	}
	return result
}
