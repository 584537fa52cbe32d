package database

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func TestCreateIntegration_AssignsUUID(t *testing.T) {
	db := newTestDB(t)

	integration := &Integration{
		Name:        "prod-grafana",
		Type:        IntegrationTypeGrafana,
		ExternalURL: "https://grafana.example.com",
		Credentials: "encrypted-blob",
	}
	if err := CreateIntegration(db, integration); err != nil {
		t.Fatalf("CreateIntegration failed: %v", err)
	}
	if integration.UUID == "" {
		t.Error("UUID should be assigned on create")
	}
}

func TestUpdateIntegration_EmptyCredentialsKeepsStored(t *testing.T) {
	db := newTestDB(t)

	integration := &Integration{
		Name:        "prod-grafana",
		Type:        IntegrationTypeGrafana,
		ExternalURL: "https://grafana.example.com",
		Credentials: "original-blob",
	}
	if err := CreateIntegration(db, integration); err != nil {
		t.Fatalf("CreateIntegration failed: %v", err)
	}

	update := &Integration{
		ID:          integration.ID,
		Name:        "renamed",
		ExternalURL: "https://grafana2.example.com",
	}
	if err := UpdateIntegration(db, update); err != nil {
		t.Fatalf("UpdateIntegration failed: %v", err)
	}

	stored, err := GetIntegration(db, integration.ID)
	if err != nil {
		t.Fatalf("GetIntegration failed: %v", err)
	}
	if stored.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", stored.Name)
	}
	if stored.Credentials != "original-blob" {
		t.Errorf("Credentials = %q, want the original blob kept", stored.Credentials)
	}

	update.Credentials = "new-blob"
	if err := UpdateIntegration(db, update); err != nil {
		t.Fatalf("second UpdateIntegration failed: %v", err)
	}
	stored, _ = GetIntegration(db, integration.ID)
	if stored.Credentials != "new-blob" {
		t.Errorf("Credentials = %q, want new-blob", stored.Credentials)
	}
}

func TestListIntegrationsByType(t *testing.T) {
	db := newTestDB(t)

	entries := []*Integration{
		{Name: "g1", Type: IntegrationTypeGrafana, ExternalURL: "https://g1"},
		{Name: "g2", Type: IntegrationTypeGrafana, ExternalURL: "https://g2"},
		{Name: "k1", Type: IntegrationTypeKibana, ExternalURL: "https://k1"},
	}
	for _, e := range entries {
		if err := CreateIntegration(db, e); err != nil {
			t.Fatalf("CreateIntegration %s failed: %v", e.Name, err)
		}
	}

	grafanas, err := ListIntegrationsByType(db, IntegrationTypeGrafana)
	if err != nil {
		t.Fatalf("ListIntegrationsByType failed: %v", err)
	}
	if len(grafanas) != 2 {
		t.Errorf("len(grafanas) = %d, want 2", len(grafanas))
	}
}

func TestDeleteIntegration(t *testing.T) {
	db := newTestDB(t)

	integration := &Integration{Name: "g1", Type: IntegrationTypeGrafana, ExternalURL: "https://g1"}
	if err := CreateIntegration(db, integration); err != nil {
		t.Fatalf("CreateIntegration failed: %v", err)
	}
	if err := DeleteIntegration(db, integration.ID); err != nil {
		t.Fatalf("DeleteIntegration failed: %v", err)
	}
	if _, err := GetIntegration(db, integration.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("integration should be gone")
	}
}
