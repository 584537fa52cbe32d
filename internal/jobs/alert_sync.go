package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/alerts/adapters"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/utils"
)

// AlertSyncJob periodically pulls the complete set of currently firing alerts
// from each Grafana integration and reconciles the store against it: anything
// previously stored but absent from the latest pull has been resolved
// upstream and transitions to the archive.
type AlertSyncJob struct {
	db            *gorm.DB
	adapter       *adapters.GrafanaAdapter
	reconciler    *alerts.Reconciler
	encryptionKey string
	client        *http.Client
}

// NewAlertSyncJob creates a new alert sync job
func NewAlertSyncJob(db *gorm.DB, encryptionKey string) *AlertSyncJob {
	return &AlertSyncJob{
		db:            db,
		adapter:       adapters.NewGrafanaAdapter(),
		reconciler:    alerts.NewReconciler(db),
		encryptionKey: encryptionKey,
		client:        &http.Client{Timeout: 15 * time.Second},
	}
}

// RunOnce executes one pull-and-reconcile cycle. Returns the number of alerts
// upserted. Reconciliation is skipped when any integration fetch fails, so a
// transient outage of one Grafana never archives alerts that are still
// firing there.
func (j *AlertSyncJob) RunOnce(ctx context.Context) (int, error) {
	integrations, err := database.ListIntegrationsByType(j.db, database.IntegrationTypeGrafana)
	if err != nil {
		return 0, err
	}
	if len(integrations) == 0 {
		return 0, nil
	}

	var activeIDs []string
	upserted := 0
	fetchFailures := 0

	for i := range integrations {
		parsed, err := j.fetchAlerts(ctx, &integrations[i])
		if err != nil {
			log.Printf("Alert sync fetch failed for integration %s: %v", integrations[i].Name, err)
			fetchFailures++
			continue
		}

		for _, p := range parsed {
			alert := p.Alert
			if _, err := database.InsertOrUpdateAlert(j.db, &alert); err != nil {
				log.Printf("Alert sync upsert failed for %s: %v", alert.ID, err)
				continue
			}
			activeIDs = append(activeIDs, alert.ID)
			upserted++
		}
	}

	if fetchFailures > 0 {
		log.Printf("Alert sync: %d of %d integration fetches failed, skipping reconciliation",
			fetchFailures, len(integrations))
		return upserted, nil
	}

	archived, err := j.reconciler.ArchiveAlertsNotInIDs(activeIDs, adapters.SourceTypeGrafana)
	if err != nil {
		return upserted, err
	}
	if archived > 0 {
		log.Printf("Alert sync: archived %d resolved alerts", archived)
	}

	return upserted, nil
}

// fetchAlerts pulls the firing alert list from one Grafana instance
func (j *AlertSyncJob) fetchAlerts(ctx context.Context, integration *database.Integration) ([]alerts.ParsedAlert, error) {
	endpoint := strings.TrimSuffix(integration.ExternalURL, "/") + "/api/alertmanager/grafana/api/v2/alerts"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	token, err := j.apiKey(integration)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grafana returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return j.adapter.Parse(body)
}

// apiKey decrypts the integration credentials and extracts the API key
func (j *AlertSyncJob) apiKey(integration *database.Integration) (string, error) {
	if integration.Credentials == "" {
		return "", nil
	}
	plain, err := utils.DecryptString(j.encryptionKey, integration.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credentials: %w", err)
	}
	var creds map[string]string
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return "", fmt.Errorf("invalid credentials blob: %w", err)
	}
	return creds["api_key"], nil
}

// Start begins periodic alert sync cycles
func (j *AlertSyncJob) Start(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			upserted, err := j.RunOnce(context.Background())
			if err != nil {
				log.Printf("Alert sync job error: %v", err)
			} else if upserted > 0 {
				log.Printf("Alert sync job: upserted %d alerts", upserted)
			}
		case <-stop:
			log.Println("Alert sync job stopped")
			return
		}
	}
}
