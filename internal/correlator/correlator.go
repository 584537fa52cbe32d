// Package correlator computes which alerts apply to which services. The
// computation is a pure function over in-memory snapshots: given the same
// (services, alerts) input it always yields the same output, with no side
// effects. It is recomputed on demand, never stored.
package correlator

import (
	"strings"

	"github.com/opsimate/opsimate/internal/database"
)

// ServiceAlerts is the correlation result for one service
type ServiceAlerts struct {
	ServiceID uint
	// Alerts holds every matched alert, dismissed ones included, deduplicated
	// by alert id.
	Alerts []database.Alert
	// AlertsCount counts only non-dismissed matches — the badge number.
	AlertsCount int
}

// MatchAlerts computes, for each service, the set of alerts that apply to it.
// An alert matches a service when it carries that service's id explicitly, or
// when any of the service's tag names equals the alert's primary tag or one of
// its tag-map values. Tag comparison is case-insensitive throughout, matching
// the filter behavior of the rest of the system.
func MatchAlerts(services []database.Service, alerts []database.Alert) []ServiceAlerts {
	results := make([]ServiceAlerts, 0, len(services))

	for i := range services {
		service := &services[i]
		matched := make([]database.Alert, 0)
		seen := make(map[string]bool)

		for j := range alerts {
			alert := &alerts[j]
			if !matches(service, alert) {
				continue
			}
			// A service can match the same alert through both the id rule and
			// a tag hit; count it once.
			if seen[alert.ID] {
				continue
			}
			seen[alert.ID] = true
			matched = append(matched, *alert)
		}

		count := 0
		for i := range matched {
			if !matched[i].IsDismissed {
				count++
			}
		}

		results = append(results, ServiceAlerts{
			ServiceID:   service.ID,
			Alerts:      matched,
			AlertsCount: count,
		})
	}

	return results
}

func matches(service *database.Service, alert *database.Alert) bool {
	if alert.ServiceID != nil {
		return *alert.ServiceID == service.ID
	}
	for _, tag := range service.Tags {
		if alertCarriesTag(alert, tag.Name) {
			return true
		}
	}
	return false
}

func alertCarriesTag(alert *database.Alert, tagName string) bool {
	if strings.EqualFold(alert.Tag, tagName) {
		return true
	}
	for _, v := range alert.Tags {
		if s, ok := v.(string); ok && strings.EqualFold(s, tagName) {
			return true
		}
	}
	return false
}
