package database

import (
	"errors"
	"testing"

	"gorm.io/gorm"
)

func testProvider() *Provider {
	return &Provider{
		Name:       "prod-vm",
		Type:       ProviderTypeVM,
		Host:       "10.0.0.1",
		Port:       22,
		Username:   "ops",
		PrivateKey: "key-material",
	}
}

func TestCreateProvider_AssignsUUID(t *testing.T) {
	db := newTestDB(t)

	provider := testProvider()
	if err := CreateProvider(db, provider); err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}
	if provider.UUID == "" {
		t.Error("UUID should be assigned on create")
	}
	if provider.ID == 0 {
		t.Error("ID should be assigned on create")
	}
}

func TestUpdateProvider(t *testing.T) {
	db := newTestDB(t)

	provider := testProvider()
	if err := CreateProvider(db, provider); err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}

	provider.Name = "renamed"
	provider.Host = "10.0.0.2"
	if err := UpdateProvider(db, provider); err != nil {
		t.Fatalf("UpdateProvider failed: %v", err)
	}

	stored, err := GetProvider(db, provider.ID)
	if err != nil {
		t.Fatalf("GetProvider failed: %v", err)
	}
	if stored.Name != "renamed" || stored.Host != "10.0.0.2" {
		t.Errorf("provider = %q@%q, want renamed@10.0.0.2", stored.Name, stored.Host)
	}
}

func TestDeleteProvider_Cascades(t *testing.T) {
	db := newTestDB(t)

	provider := testProvider()
	if err := CreateProvider(db, provider); err != nil {
		t.Fatalf("CreateProvider failed: %v", err)
	}

	service := &Service{ProviderID: provider.ID, Name: "nginx", Type: ServiceTypeDocker, Status: ServiceStatusRunning}
	if err := CreateService(db, service); err != nil {
		t.Fatalf("CreateService failed: %v", err)
	}

	tag := &Tag{Name: "web", Color: "#3366ff"}
	if err := CreateTag(db, tag); err != nil {
		t.Fatalf("CreateTag failed: %v", err)
	}
	if err := AttachTag(db, service.ID, tag.ID); err != nil {
		t.Fatalf("AttachTag failed: %v", err)
	}

	field := &CustomField{Name: "owner"}
	if err := CreateCustomField(db, field); err != nil {
		t.Fatalf("CreateCustomField failed: %v", err)
	}
	if err := SetServiceCustomField(db, service.ID, field.ID, "team-a"); err != nil {
		t.Fatalf("SetServiceCustomField failed: %v", err)
	}

	if err := DeleteProvider(db, provider.ID); err != nil {
		t.Fatalf("DeleteProvider failed: %v", err)
	}

	if _, err := GetProvider(db, provider.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("provider should be gone")
	}
	if _, err := GetService(db, service.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("service should cascade with its provider")
	}

	var linkCount int64
	db.Model(&ServiceTag{}).Count(&linkCount)
	if linkCount != 0 {
		t.Errorf("service_tags count = %d, want 0", linkCount)
	}
	db.Model(&ServiceCustomField{}).Count(&linkCount)
	if linkCount != 0 {
		t.Errorf("service_custom_fields count = %d, want 0", linkCount)
	}

	// The tag definition itself survives; only the link is removed
	if _, err := GetTag(db, tag.ID); err != nil {
		t.Errorf("tag should survive provider deletion: %v", err)
	}
}
