package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateIntegration inserts a new integration, assigning it a UUID. The
// credentials field is expected to be encrypted by the caller before storage.
func CreateIntegration(db *gorm.DB, integration *Integration) error {
	if integration.UUID == "" {
		integration.UUID = uuid.New().String()
	}
	return db.Create(integration).Error
}

// GetIntegration returns an integration by ID.
func GetIntegration(db *gorm.DB, id uint) (*Integration, error) {
	var integration Integration
	if err := db.First(&integration, id).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

// ListIntegrations returns all configured integrations.
func ListIntegrations(db *gorm.DB) ([]Integration, error) {
	var integrations []Integration
	if err := db.Order("id asc").Find(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

// ListIntegrationsByType returns integrations of one type.
func ListIntegrationsByType(db *gorm.DB, integrationType IntegrationType) ([]Integration, error) {
	var integrations []Integration
	if err := db.Where("type = ?", integrationType).Find(&integrations).Error; err != nil {
		return nil, err
	}
	return integrations, nil
}

// UpdateIntegration updates the mutable fields of an integration. An empty
// credentials value keeps the stored one.
func UpdateIntegration(db *gorm.DB, integration *Integration) error {
	updates := map[string]interface{}{
		"name":         integration.Name,
		"external_url": integration.ExternalURL,
	}
	if integration.Credentials != "" {
		updates["credentials"] = integration.Credentials
	}
	return db.Model(&Integration{}).Where("id = ?", integration.ID).Updates(updates).Error
}

// DeleteIntegration removes an integration.
func DeleteIntegration(db *gorm.DB, id uint) error {
	return db.Delete(&Integration{}, id).Error
}
