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

// KibanaConnector finds dashboards through Kibana's saved-objects API, one
// query per tag.
type KibanaConnector struct {
	client *http.Client
}

// NewKibanaConnector creates a new Kibana connector
func NewKibanaConnector() *KibanaConnector {
	return &KibanaConnector{client: &http.Client{Timeout: 10 * time.Second}}
}

// Type returns the integration type
func (c *KibanaConnector) Type() database.IntegrationType {
	return database.IntegrationTypeKibana
}

// kibanaFindResponse is the subset of the saved-objects find response we read
type kibanaFindResponse struct {
	SavedObjects []struct {
		ID         string `json:"id"`
		Attributes struct {
			Title string `json:"title"`
		} `json:"attributes"`
	} `json:"saved_objects"`
}

// DashboardURLsByTags issues one saved-objects search per tag and flattens
// the results. A failed fetch for one tag is logged and skipped.
func (c *KibanaConnector) DashboardURLsByTags(ctx context.Context, integration *database.Integration, creds map[string]string, tags []string) ([]DashboardLink, error) {
	base := strings.TrimSuffix(integration.ExternalURL, "/")

	var links []DashboardLink
	for _, tag := range tags {
		found, err := c.findDashboards(ctx, base, creds["api_key"], tag)
		if err != nil {
			log.Printf("Kibana dashboard fetch failed for tag %q on %s: %v", tag, integration.Name, err)
			continue
		}
		links = append(links, found...)
	}
	return links, nil
}

func (c *KibanaConnector) findDashboards(ctx context.Context, base, apiKey, tag string) ([]DashboardLink, error) {
	endpoint := fmt.Sprintf("%s/api/saved_objects/_find?type=dashboard&search=%s&search_fields=title",
		base, url.QueryEscape(tag))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("kbn-xsrf", "true")
	if apiKey != "" {
		req.Header.Set("Authorization", "ApiKey "+apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kibana returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed kibanaFindResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("invalid saved-objects response: %w", err)
	}

	links := make([]DashboardLink, 0, len(parsed.SavedObjects))
	for _, obj := range parsed.SavedObjects {
		links = append(links, DashboardLink{
			Name: obj.Attributes.Title,
			URL:  fmt.Sprintf("%s/app/dashboards#/view/%s", base, obj.ID),
		})
	}
	return links, nil
}
