package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opsimate/opsimate/internal/database"
)

// GrafanaConnector finds dashboards through Grafana's search API, one query
// per tag.
type GrafanaConnector struct {
	client *http.Client
}

// NewGrafanaConnector creates a new Grafana connector
func NewGrafanaConnector() *GrafanaConnector {
	return &GrafanaConnector{client: &http.Client{Timeout: 10 * time.Second}}
}

// Type returns the integration type
func (c *GrafanaConnector) Type() database.IntegrationType {
	return database.IntegrationTypeGrafana
}

// grafanaSearchHit is one result of GET /api/search
type grafanaSearchHit struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Type  string `json:"type"`
}

// DashboardURLsByTags issues one search per tag and flattens the results. A
// failed fetch for one tag is logged and skipped.
func (c *GrafanaConnector) DashboardURLsByTags(ctx context.Context, integration *database.Integration, creds map[string]string, tags []string) ([]DashboardLink, error) {
	base := strings.TrimSuffix(integration.ExternalURL, "/")

	var links []DashboardLink
	for _, tag := range tags {
		hits, err := c.searchByTag(ctx, base, creds["api_key"], tag)
		if err != nil {
			log.Printf("Grafana dashboard fetch failed for tag %q on %s: %v", tag, integration.Name, err)
			continue
		}
		for _, hit := range hits {
			if hit.Type != "" && hit.Type != "dash-db" {
				continue
			}
			u := hit.URL
			if strings.HasPrefix(u, "/") {
				u = base + u
			}
			links = append(links, DashboardLink{Name: hit.Title, URL: u})
		}
	}
	return links, nil
}

func (c *GrafanaConnector) searchByTag(ctx context.Context, base, apiKey, tag string) ([]grafanaSearchHit, error) {
	endpoint := fmt.Sprintf("%s/api/search?type=dash-db&tag=%s", base, url.QueryEscape(tag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grafana search returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var hits []grafanaSearchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("invalid search response: %w", err)
	}
	return hits, nil
}
