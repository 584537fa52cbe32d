package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/providers"
	"github.com/opsimate/opsimate/internal/utils"
)

// ServiceEvent describes a service change observed during a refresh cycle
type ServiceEvent struct {
	ProviderID  uint                   `json:"provider_id"`
	ServiceID   uint                   `json:"service_id"`
	ServiceName string                 `json:"service_name"`
	Change      string                 `json:"change"` // status_changed, removed
	Status      database.ServiceStatus `json:"status,omitempty"`
}

// RefreshSummary aggregates the outcome of one refresh cycle
type RefreshSummary struct {
	Providers       int
	FailedProviders int
	StatusUpdates   int
	Deleted         int
}

// RefreshJob periodically reconciles each provider's live discovered state
// against the locally stored service rows.
type RefreshJob struct {
	db       *gorm.DB
	registry *providers.Registry

	// BatchSize bounds how many providers refresh concurrently, so one
	// slow or hung provider does not serialize the whole fleet.
	BatchSize int

	// OnServiceEvent, when set, receives every change the job applies.
	// Used to feed the live events stream.
	OnServiceEvent func(ServiceEvent)

	mu      sync.Mutex
	summary RefreshSummary
}

// NewRefreshJob creates a new refresh job
func NewRefreshJob(db *gorm.DB, registry *providers.Registry, batchSize int) *RefreshJob {
	if batchSize <= 0 {
		batchSize = 4
	}
	return &RefreshJob{
		db:        db,
		registry:  registry,
		BatchSize: batchSize,
	}
}

// RunOnce executes one refresh cycle across all providers. A failure in one
// provider's refresh is logged and counted without aborting the others.
func (j *RefreshJob) RunOnce(ctx context.Context) (RefreshSummary, error) {
	providerRows, err := database.ListProviders(j.db)
	if err != nil {
		return RefreshSummary{}, err
	}

	j.mu.Lock()
	j.summary = RefreshSummary{Providers: len(providerRows)}
	j.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.BatchSize)

	for i := range providerRows {
		provider := providerRows[i]
		g.Go(func() error {
			if err := j.refreshProvider(gctx, &provider); err != nil {
				log.Printf("Provider refresh failed for %s (id %d): %v", provider.Name, provider.ID, err)
				j.mu.Lock()
				j.summary.FailedProviders++
				j.mu.Unlock()
			}
			return nil // per-provider failures never abort the batch
		})
	}

	_ = g.Wait()

	j.mu.Lock()
	summary := j.summary
	j.mu.Unlock()
	return summary, nil
}

// refreshProvider diffs one provider's discovered state against stored rows
func (j *RefreshJob) refreshProvider(ctx context.Context, provider *database.Provider) error {
	connector := j.registry.Get(provider.Type)
	if connector == nil {
		log.Printf("No connector registered for provider type %s", provider.Type)
		return nil
	}

	discovered, err := connector.DiscoverServices(ctx, provider)
	if err != nil {
		return err
	}

	byName := make(map[string]providers.DiscoveredService, len(discovered))
	for _, d := range discovered {
		byName[utils.NormalizeName(d.Name)] = d
	}

	stored, err := database.ListServicesByProvider(j.db, provider.ID)
	if err != nil {
		return err
	}

	for i := range stored {
		service := &stored[i]

		// Systemd units are probed live rather than diffed against the
		// container discovery snapshot.
		if service.Type == database.ServiceTypeSystemd {
			status, err := connector.ProbeStatus(ctx, provider, service)
			if err != nil {
				// Keep the existing stored status: stability over freshness
				// on a transient probe error.
				log.Printf("Systemd probe failed for %s on provider %d, keeping status %s: %v",
					service.Name, provider.ID, service.Status, err)
				continue
			}
			j.applyStatus(provider, service, status)
			continue
		}

		match, found := byName[utils.NormalizeName(service.Name)]
		if !found {
			// The service no longer exists on the provider.
			if err := database.DeleteService(j.db, service.ID); err != nil {
				log.Printf("Failed to delete stale service %s (id %d): %v", service.Name, service.ID, err)
				continue
			}
			log.Printf("Deleted stale service %s (id %d) from provider %d", service.Name, service.ID, provider.ID)
			j.mu.Lock()
			j.summary.Deleted++
			j.mu.Unlock()
			j.emit(ServiceEvent{
				ProviderID:  provider.ID,
				ServiceID:   service.ID,
				ServiceName: service.Name,
				Change:      "removed",
			})
			continue
		}

		j.applyStatus(provider, service, match.Status)
	}

	return nil
}

// applyStatus writes a status change, skipping the write entirely when the
// status already matches.
func (j *RefreshJob) applyStatus(provider *database.Provider, service *database.Service, status database.ServiceStatus) {
	wrote, err := database.UpdateServiceStatus(j.db, service.ID, status)
	if err != nil {
		log.Printf("Failed to update status for service %s (id %d): %v", service.Name, service.ID, err)
		return
	}
	if !wrote {
		return
	}
	log.Printf("Service %s (id %d) status %s -> %s", service.Name, service.ID, service.Status, status)
	j.mu.Lock()
	j.summary.StatusUpdates++
	j.mu.Unlock()
	j.emit(ServiceEvent{
		ProviderID:  provider.ID,
		ServiceID:   service.ID,
		ServiceName: service.Name,
		Change:      "status_changed",
		Status:      status,
	})
}

func (j *RefreshJob) emit(event ServiceEvent) {
	if j.OnServiceEvent != nil {
		j.OnServiceEvent(event)
	}
}

// Start begins periodic refresh cycles. The stop channel makes the schedule
// injectable so tests trigger cycles deterministically via RunOnce instead.
// A single process is assumed to own the timer; running multiple instances
// would duplicate refresh work.
func (j *RefreshJob) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			summary, err := j.RunOnce(context.Background())
			if err != nil {
				log.Printf("Refresh job error: %v", err)
			} else if summary.StatusUpdates > 0 || summary.Deleted > 0 || summary.FailedProviders > 0 {
				log.Printf("Refresh job: %d providers, %d updates, %d deleted, %d failed",
					summary.Providers, summary.StatusUpdates, summary.Deleted, summary.FailedProviders)
			}
		case <-stop:
			log.Println("Refresh job stopped")
			return
		}
	}
}
