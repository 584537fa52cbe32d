package adapters

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/database"
)

// SourceTypeGCP is the source type for GCP Cloud Monitoring webhooks
const SourceTypeGCP = "gcp"

// fallbackValue is used for GCP incident fields the sender left empty
const fallbackValue = "unknown"

// GCPAdapter handles GCP Cloud Monitoring webhook payloads
type GCPAdapter struct{}

// NewGCPAdapter creates a new GCP adapter
func NewGCPAdapter() *GCPAdapter {
	return &GCPAdapter{}
}

// SourceType returns the source type name
func (a *GCPAdapter) SourceType() string {
	return SourceTypeGCP
}

// GCPPayload is the webhook envelope sent by GCP Cloud Monitoring
type GCPPayload struct {
	Version  string       `json:"version"`
	Incident *GCPIncident `json:"incident"`
}

// GCPIncident is the nested incident object. started_at arrives as unix
// seconds, a numeric string, or an ISO string depending on the sender.
type GCPIncident struct {
	IncidentID    string      `json:"incident_id"`
	State         string      `json:"state"`
	ResourceName  string      `json:"resource_name"`
	StartedAt     interface{} `json:"started_at"`
	URL           string      `json:"url"`
	PolicyName    string      `json:"policy_name"`
	Summary       string      `json:"summary"`
	Documentation struct {
		Content string `json:"content"`
	} `json:"documentation"`
}

// Parse maps a GCP incident to the canonical alert. An incident whose state
// is "closed" (case-insensitive) is marked for resolution instead of upsert.
func (a *GCPAdapter) Parse(body []byte) ([]alerts.ParsedAlert, error) {
	var payload GCPPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &alerts.ValidationError{Fields: map[string]string{"body": "must be valid JSON"}}
	}

	if payload.Incident == nil {
		return nil, &alerts.ValidationError{Fields: map[string]string{"incident": "is required"}}
	}

	incident := payload.Incident
	if incident.IncidentID == "" {
		return nil, &alerts.ValidationError{Fields: map[string]string{"incident.incident_id": "is required"}}
	}

	tag := incident.ResourceName
	if tag == "" {
		tag = fallbackValue
	}

	alert := database.Alert{
		ID:         incident.IncidentID,
		Status:     incident.State,
		SourceType: SourceTypeGCP,
		Tag:        tag,
		Tags:       database.JSONB{"resource_name": tag},
		StartsAt:   alerts.NormalizeSourceDate(incident.StartedAt),
		UpdatedAt:  time.Now().UTC(),
		AlertURL:   orFallback(incident.URL),
		AlertName:  orFallback(incident.PolicyName),
		Summary:    orFallback(incident.Summary),
		RunbookURL: orFallback(incident.Documentation.Content),
	}

	resolve := strings.EqualFold(incident.State, "closed")

	return []alerts.ParsedAlert{{Alert: alert, Resolve: resolve}}, nil
}

func orFallback(s string) string {
	if s == "" {
		return fallbackValue
	}
	return s
}
