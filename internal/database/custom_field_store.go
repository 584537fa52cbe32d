package database

import "gorm.io/gorm"

// CreateCustomField inserts a new custom field definition.
func CreateCustomField(db *gorm.DB, field *CustomField) error {
	return db.Create(field).Error
}

// ListCustomFields returns all custom field definitions.
func ListCustomFields(db *gorm.DB) ([]CustomField, error) {
	var fields []CustomField
	if err := db.Order("id asc").Find(&fields).Error; err != nil {
		return nil, err
	}
	return fields, nil
}

// UpdateCustomField renames a custom field.
func UpdateCustomField(db *gorm.DB, field *CustomField) error {
	return db.Model(&CustomField{}).Where("id = ?", field.ID).Update("name", field.Name).Error
}

// DeleteCustomField removes a custom field definition and all values stored
// against it.
func DeleteCustomField(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("custom_field_id = ?", id).Delete(&ServiceCustomField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&CustomField{}, id).Error
	})
}
