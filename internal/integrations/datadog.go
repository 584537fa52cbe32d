package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/opsimate/opsimate/internal/database"
)

// DatadogConnector finds dashboards through Datadog's dashboard list API.
// Unlike Grafana and Kibana, the list is fetched once and filtered locally
// per tag: the list endpoint has no server-side tag filter.
type DatadogConnector struct {
	client *http.Client
}

// NewDatadogConnector creates a new Datadog connector
func NewDatadogConnector() *DatadogConnector {
	return &DatadogConnector{client: &http.Client{Timeout: 10 * time.Second}}
}

// Type returns the integration type
func (c *DatadogConnector) Type() database.IntegrationType {
	return database.IntegrationTypeDatadog
}

// datadogDashboardList is the subset of GET /api/v1/dashboard we read
type datadogDashboardList struct {
	Dashboards []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
	} `json:"dashboards"`
}

// DashboardURLsByTags fetches the dashboard list once and returns entries
// whose title or description mentions any of the tags.
func (c *DatadogConnector) DashboardURLsByTags(ctx context.Context, integration *database.Integration, creds map[string]string, tags []string) ([]DashboardLink, error) {
	base := strings.TrimSuffix(integration.ExternalURL, "/")

	list, err := c.listDashboards(ctx, base, creds)
	if err != nil {
		// The single batched fetch failing means no partial result to offer;
		// log and return empty rather than fail the aggregate request.
		log.Printf("Datadog dashboard fetch failed on %s: %v", integration.Name, err)
		return nil, nil
	}

	var links []DashboardLink
	for _, dash := range list.Dashboards {
		for _, tag := range tags {
			if containsFold(dash.Title, tag) || containsFold(dash.Description, tag) {
				u := dash.URL
				if strings.HasPrefix(u, "/") {
					u = base + u
				}
				links = append(links, DashboardLink{Name: dash.Title, URL: u})
				break
			}
		}
	}
	return links, nil
}

func (c *DatadogConnector) listDashboards(ctx context.Context, base string, creds map[string]string) (*datadogDashboardList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/v1/dashboard", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("DD-API-KEY", creds["api_key"])
	req.Header.Set("DD-APPLICATION-KEY", creds["app_key"])

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("datadog returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var list datadogDashboardList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("invalid dashboard list response: %w", err)
	}
	return &list, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
