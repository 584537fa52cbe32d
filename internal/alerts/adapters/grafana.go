package adapters

import (
	"encoding/json"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/database"
)

// SourceTypeGrafana is the source type for Grafana-pulled alerts
const SourceTypeGrafana = "grafana"

// metaLabels are Grafana labels that never identify a target service
var metaLabels = map[string]bool{
	"alertname":      true,
	"severity":       true,
	"grafana_folder": true,
	"__alert_rule_uid__": true,
}

// GrafanaAdapter parses the Alertmanager-compatible alert list returned by
// Grafana's /api/alertmanager/grafana/api/v2/alerts endpoint. It serves the
// pull-based alert-sync job: the full response is the complete set of
// currently firing alerts, so the caller reconciles the store against it.
type GrafanaAdapter struct{}

// NewGrafanaAdapter creates a new Grafana adapter
func NewGrafanaAdapter() *GrafanaAdapter {
	return &GrafanaAdapter{}
}

// SourceType returns the source type name
func (a *GrafanaAdapter) SourceType() string {
	return SourceTypeGrafana
}

// GrafanaAlert is one entry of the v2 alerts response
type GrafanaAlert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    string            `json:"startsAt"`
	UpdatedAt   string            `json:"updatedAt"`
	Fingerprint string            `json:"fingerprint"`
	GeneratorURL string           `json:"generatorURL"`
	Status      struct {
		State string `json:"state"`
	} `json:"status"`
}

// Parse maps the alert list to canonical alerts
func (a *GrafanaAdapter) Parse(body []byte) ([]alerts.ParsedAlert, error) {
	var items []GrafanaAlert
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, &alerts.ValidationError{Fields: map[string]string{"body": "must be a JSON array of alerts"}}
	}

	parsed := make([]alerts.ParsedAlert, 0, len(items))
	for _, item := range items {
		id := item.Fingerprint
		if id == "" {
			id = item.Labels["alertname"]
		}
		if id == "" {
			continue // nothing stable to key on
		}

		alertName := item.Labels["alertname"]
		if alertName == "" {
			alertName = "Grafana Alert"
		}

		status := item.Status.State
		if status == "" {
			status = "firing"
		}

		parsed = append(parsed, alerts.ParsedAlert{Alert: database.Alert{
			ID:         id,
			Status:     status,
			SourceType: SourceTypeGrafana,
			Tag:        alerts.PrimaryTag(targetLabels(item.Labels)),
			Tags:       alerts.TagMap(item.Labels),
			StartsAt:   alerts.NormalizeSourceDate(item.StartsAt),
			AlertURL:   item.GeneratorURL,
			AlertName:  alertName,
			Summary:    item.Annotations["summary"],
			RunbookURL: item.Annotations["runbook_url"],
		}})
	}

	return parsed, nil
}

// targetLabels strips Grafana meta labels so the primary tag is picked from
// labels that can actually name a service.
func targetLabels(labels map[string]string) map[string]string {
	target := make(map[string]string, len(labels))
	for k, v := range labels {
		if !metaLabels[k] {
			target[k] = v
		}
	}
	return target
}
