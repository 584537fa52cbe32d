package integrations

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsimate/opsimate/internal/database"
)

func TestDeduplicateByURL(t *testing.T) {
	links := []DashboardLink{
		{Name: "Payments", URL: "https://g/d/1"},
		{Name: "Payments (copy)", URL: "https://g/d/1"},
		{Name: "Search", URL: "https://g/d/2"},
	}

	deduped := DeduplicateByURL(links)
	if len(deduped) != 2 {
		t.Fatalf("len(deduped) = %d, want 2", len(deduped))
	}
	// First occurrence wins, order preserved
	if deduped[0].Name != "Payments" || deduped[1].Name != "Search" {
		t.Errorf("deduped = %v", deduped)
	}
}

func TestDeduplicateByURL_Empty(t *testing.T) {
	if got := DeduplicateByURL(nil); len(got) != 0 {
		t.Errorf("DeduplicateByURL(nil) = %v, want empty", got)
	}
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	grafana := NewGrafanaConnector()
	registry.Register(grafana)

	if registry.Get(database.IntegrationTypeGrafana) == nil {
		t.Error("registered connector should be returned")
	}
	if registry.Get(database.IntegrationTypeDatadog) != nil {
		t.Error("unregistered type should return nil")
	}
}

func TestGrafanaConnector_DashboardURLsByTags(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("tag") {
		case "payments":
			_, _ = w.Write([]byte(`[
				{"title": "Payments Overview", "url": "/d/abc/payments", "type": "dash-db"},
				{"title": "Payments Folder", "url": "/f/xyz", "type": "dash-folder"}
			]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	integration := &database.Integration{
		Name:        "test-grafana",
		Type:        database.IntegrationTypeGrafana,
		ExternalURL: server.URL,
	}
	creds := map[string]string{"api_key": "glsa_token"}

	links, err := NewGrafanaConnector().DashboardURLsByTags(
		context.Background(), integration, creds, []string{"payments", "search"})
	if err != nil {
		t.Fatalf("DashboardURLsByTags failed: %v", err)
	}

	if gotAuth != "Bearer glsa_token" {
		t.Errorf("Authorization = %q, want the bearer token", gotAuth)
	}
	// The folder hit is filtered; relative URLs are resolved against the base
	if len(links) != 1 {
		t.Fatalf("len(links) = %d, want 1: %v", len(links), links)
	}
	if links[0].Name != "Payments Overview" {
		t.Errorf("Name = %q", links[0].Name)
	}
	if links[0].URL != server.URL+"/d/abc/payments" {
		t.Errorf("URL = %q, want absolute under %s", links[0].URL, server.URL)
	}
}

func TestGrafanaConnector_FailedTagSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("tag") == "broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"title": "OK", "url": "/d/ok", "type": "dash-db"}]`))
	}))
	defer server.Close()

	integration := &database.Integration{
		Name:        "test-grafana",
		Type:        database.IntegrationTypeGrafana,
		ExternalURL: server.URL,
	}

	links, err := NewGrafanaConnector().DashboardURLsByTags(
		context.Background(), integration, nil, []string{"broken", "healthy"})
	if err != nil {
		t.Fatalf("a failing tag must not abort the request: %v", err)
	}
	if len(links) != 1 || links[0].Name != "OK" {
		t.Errorf("links = %v, want the healthy tag's dashboard only", links)
	}
}
