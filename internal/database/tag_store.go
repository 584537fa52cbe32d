package database

import "gorm.io/gorm"

// CreateTag inserts a new tag.
func CreateTag(db *gorm.DB, tag *Tag) error {
	return db.Create(tag).Error
}

// GetTag returns a tag by ID.
func GetTag(db *gorm.DB, id uint) (*Tag, error) {
	var tag Tag
	if err := db.First(&tag, id).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns all tags.
func ListTags(db *gorm.DB) ([]Tag, error) {
	var tags []Tag
	if err := db.Order("name asc").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// UpdateTag updates a tag's name and color.
func UpdateTag(db *gorm.DB, tag *Tag) error {
	return db.Model(&Tag{}).Where("id = ?", tag.ID).Updates(map[string]interface{}{
		"name":  tag.Name,
		"color": tag.Color,
	}).Error
}

// DeleteTag removes a tag and its service links.
func DeleteTag(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&ServiceTag{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Tag{}, id).Error
	})
}

// AttachTag links a tag to a service. Attaching an already-attached tag is a
// no-op.
func AttachTag(db *gorm.DB, serviceID, tagID uint) error {
	var existing ServiceTag
	err := db.Where("service_id = ? AND tag_id = ?", serviceID, tagID).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return db.Create(&ServiceTag{ServiceID: serviceID, TagID: tagID}).Error
}

// DetachTag unlinks a tag from a service.
func DetachTag(db *gorm.DB, serviceID, tagID uint) error {
	return db.Where("service_id = ? AND tag_id = ?", serviceID, tagID).Delete(&ServiceTag{}).Error
}
