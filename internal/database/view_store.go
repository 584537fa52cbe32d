package database

import "gorm.io/gorm"

// CreateView saves a new view. Filters are serialized on write by the JSONB
// valuer and deserialized on read; handlers never see the raw blob.
func CreateView(db *gorm.DB, view *View) error {
	return db.Create(view).Error
}

// GetView returns a view by ID.
func GetView(db *gorm.DB, id uint) (*View, error) {
	var view View
	if err := db.First(&view, id).Error; err != nil {
		return nil, err
	}
	return &view, nil
}

// ListViews returns all saved views.
func ListViews(db *gorm.DB) ([]View, error) {
	var views []View
	if err := db.Order("id asc").Find(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

// UpdateView updates a view's name and filters.
func UpdateView(db *gorm.DB, view *View) error {
	return db.Model(&View{}).Where("id = ?", view.ID).Updates(map[string]interface{}{
		"name":    view.Name,
		"filters": view.Filters,
	}).Error
}

// SetDefaultView marks one view as default and clears the flag on all others.
func SetDefaultView(db *gorm.DB, id uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&View{}).Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&View{}).Where("id = ?", id).Update("is_default", true).Error
	})
}

// DeleteView removes a view.
func DeleteView(db *gorm.DB, id uint) error {
	return db.Delete(&View{}, id).Error
}
