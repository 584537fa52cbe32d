package database

import "gorm.io/gorm"

// CreateService inserts a new service row.
func CreateService(db *gorm.DB, service *Service) error {
	return db.Create(service).Error
}

// CreateServices bulk-inserts service rows (used by discovery import).
func CreateServices(db *gorm.DB, services []Service) error {
	if len(services) == 0 {
		return nil
	}
	return db.Create(&services).Error
}

// GetService returns a service with its tags preloaded.
func GetService(db *gorm.DB, id uint) (*Service, error) {
	var service Service
	if err := db.Preload("Tags").First(&service, id).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// ListServices returns all services with tags preloaded.
func ListServices(db *gorm.DB) ([]Service, error) {
	var services []Service
	if err := db.Preload("Tags").Order("id asc").Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// ListServicesByProvider returns all services under one provider.
func ListServicesByProvider(db *gorm.DB, providerID uint) ([]Service, error) {
	var services []Service
	if err := db.Preload("Tags").Where("provider_id = ?", providerID).Find(&services).Error; err != nil {
		return nil, err
	}
	return services, nil
}

// UpdateServiceStatus writes a new status for a service. The write is skipped
// entirely when the status already matches, to minimize database writes during
// refresh cycles. Returns true if a write happened.
func UpdateServiceStatus(db *gorm.DB, serviceID uint, status ServiceStatus) (bool, error) {
	var current Service
	if err := db.Select("id", "status").First(&current, serviceID).Error; err != nil {
		return false, err
	}
	if current.Status == status {
		return false, nil
	}
	if err := db.Model(&Service{}).Where("id = ?", serviceID).Update("status", status).Error; err != nil {
		return false, err
	}
	return true, nil
}

// UpdateService updates the mutable fields of a service.
func UpdateService(db *gorm.DB, service *Service) error {
	return db.Model(&Service{}).Where("id = ?", service.ID).Updates(map[string]interface{}{
		"name":              service.Name,
		"type":              service.Type,
		"status":            service.Status,
		"ip":                service.IP,
		"container_details": service.ContainerDetails,
	}).Error
}

// DeleteService removes a service row along with its tag links and
// custom-field values.
func DeleteService(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_id = ?", id).Delete(&ServiceTag{}).Error; err != nil {
			return err
		}
		if err := tx.Where("service_id = ?", id).Delete(&ServiceCustomField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Service{}, id).Error
	})
}

// GetServiceCustomFields returns the custom-field values of one service.
func GetServiceCustomFields(db *gorm.DB, serviceID uint) (map[uint]string, error) {
	var rows []ServiceCustomField
	if err := db.Where("service_id = ?", serviceID).Find(&rows).Error; err != nil {
		return nil, err
	}
	values := make(map[uint]string, len(rows))
	for _, row := range rows {
		values[row.CustomFieldID] = row.Value
	}
	return values, nil
}

// SetServiceCustomField upserts one custom-field value on a service.
func SetServiceCustomField(db *gorm.DB, serviceID, fieldID uint, value string) error {
	var existing ServiceCustomField
	err := db.Where("service_id = ? AND custom_field_id = ?", serviceID, fieldID).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		return db.Create(&ServiceCustomField{
			ServiceID:     serviceID,
			CustomFieldID: fieldID,
			Value:         value,
		}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&existing).Update("value", value).Error
}
