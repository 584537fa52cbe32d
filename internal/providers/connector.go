package providers

import (
	"context"

	"github.com/opsimate/opsimate/internal/database"
)

// NoLogsSentinel is returned as the only log line when a fetch succeeded but
// found nothing, so the UI can distinguish "fetched but empty" from "fetch
// failed".
const NoLogsSentinel = "no logs found for the last hour"

// DiscoveredService is one unit found running on a provider
type DiscoveredService struct {
	Name             string
	Type             database.ServiceType
	Status           database.ServiceStatus
	IP               string
	ContainerDetails database.JSONB
}

// Connector abstracts over the transport used to reach a provider.
// DiscoverServices reports transient connectivity problems as errors; the
// caller owns retry and logging policy. Start/Stop fail loudly on a non-zero
// remote exit so the caller can report failure per service.
type Connector interface {
	// DiscoverServices lists the services currently present on the provider
	DiscoverServices(ctx context.Context, provider *database.Provider) ([]DiscoveredService, error)

	// StartService starts the named service on the provider
	StartService(ctx context.Context, provider *database.Provider, service *database.Service) error

	// StopService stops the named service on the provider
	StopService(ctx context.Context, provider *database.Provider, service *database.Service) error

	// ProbeStatus checks the live status of one service directly, bypassing
	// discovery. Used for systemd units during refresh.
	ProbeStatus(ctx context.Context, provider *database.Provider, service *database.Service) (database.ServiceStatus, error)

	// ServiceLogs returns recent error-filtered log lines for display. An
	// empty fetch yields the NoLogsSentinel line rather than an empty slice.
	ServiceLogs(ctx context.Context, provider *database.Provider, service *database.Service) ([]string, error)
}

// Registry is a typed dispatch table from provider type to connector, built
// once at startup.
type Registry struct {
	connectors map[database.ProviderType]Connector
}

// NewRegistry creates an empty connector registry
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[database.ProviderType]Connector)}
}

// Register adds a connector for a provider type
func (r *Registry) Register(providerType database.ProviderType, connector Connector) {
	r.connectors[providerType] = connector
}

// Get returns the connector for a provider type, or nil if none is registered
func (r *Registry) Get(providerType database.ProviderType) Connector {
	return r.connectors[providerType]
}
