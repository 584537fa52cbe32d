package database

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateProvider inserts a new provider, assigning it a UUID.
func CreateProvider(db *gorm.DB, provider *Provider) error {
	if provider.UUID == "" {
		provider.UUID = uuid.New().String()
	}
	return db.Create(provider).Error
}

// GetProvider returns a provider by ID, or gorm.ErrRecordNotFound.
func GetProvider(db *gorm.DB, id uint) (*Provider, error) {
	var provider Provider
	if err := db.First(&provider, id).Error; err != nil {
		return nil, err
	}
	return &provider, nil
}

// ListProviders returns all registered providers.
func ListProviders(db *gorm.DB) ([]Provider, error) {
	var providers []Provider
	if err := db.Order("id asc").Find(&providers).Error; err != nil {
		return nil, err
	}
	return providers, nil
}

// UpdateProvider updates the mutable fields of a provider.
func UpdateProvider(db *gorm.DB, provider *Provider) error {
	return db.Model(&Provider{}).Where("id = ?", provider.ID).Updates(map[string]interface{}{
		"name":        provider.Name,
		"host":        provider.Host,
		"port":        provider.Port,
		"username":    provider.Username,
		"private_key": provider.PrivateKey,
		"kubeconfig":  provider.Kubeconfig,
	}).Error
}

// DeleteProvider removes a provider and cascades to its services, their tag
// links and custom-field values. The cascade is explicit so it behaves the
// same on SQLite, where foreign-key enforcement is off by default.
func DeleteProvider(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var serviceIDs []uint
		if err := tx.Model(&Service{}).Where("provider_id = ?", id).Pluck("id", &serviceIDs).Error; err != nil {
			return err
		}

		if len(serviceIDs) > 0 {
			if err := tx.Where("service_id IN ?", serviceIDs).Delete(&ServiceTag{}).Error; err != nil {
				return err
			}
			if err := tx.Where("service_id IN ?", serviceIDs).Delete(&ServiceCustomField{}).Error; err != nil {
				return err
			}
			if err := tx.Where("provider_id = ?", id).Delete(&Service{}).Error; err != nil {
				return err
			}
		}

		return tx.Delete(&Provider{}, id).Error
	})
}
