package database

import (
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsertOrUpdateAlert upserts an alert keyed on its ID. On conflict every field
// from the source is overwritten except created_at and is_dismissed, which
// persist across re-ingestion. Returns the number of rows affected.
func InsertOrUpdateAlert(db *gorm.DB, alert *Alert) (int64, error) {
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "source_type", "tag", "tags", "service_id",
			"starts_at", "alert_url", "alert_name", "summary", "runbook_url",
			"updated_at",
		}),
	}).Create(alert)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetAllAlerts returns every active alert. The stored tag blob is deserialized
// back into a structured map by the JSONB scanner.
func GetAllAlerts(db *gorm.DB) ([]Alert, error) {
	var alerts []Alert
	if err := db.Order("starts_at desc").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetAlertByID returns a single active alert, or gorm.ErrRecordNotFound.
func GetAlertByID(db *gorm.DB, id string) (*Alert, error) {
	var alert Alert
	if err := db.First(&alert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// DismissAlert marks an alert as dismissed. Idempotent; returns
// gorm.ErrRecordNotFound if the id is unknown.
func DismissAlert(db *gorm.DB, id string) (*Alert, error) {
	return setDismissed(db, id, true)
}

// UndismissAlert clears the dismissed flag. Idempotent; returns
// gorm.ErrRecordNotFound if the id is unknown.
func UndismissAlert(db *gorm.DB, id string) (*Alert, error) {
	return setDismissed(db, id, false)
}

func setDismissed(db *gorm.DB, id string, dismissed bool) (*Alert, error) {
	var alert Alert
	if err := db.First(&alert, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if alert.IsDismissed != dismissed {
		if err := db.Model(&alert).Update("is_dismissed", dismissed).Error; err != nil {
			return nil, err
		}
		alert.IsDismissed = dismissed
	}
	return &alert, nil
}

// GetAlertsNotInIDs returns every stored alert of the given source type whose
// id is absent from activeIDs. An empty activeIDs set matches ALL alerts of
// that type: the source reported nothing currently active.
func GetAlertsNotInIDs(db *gorm.DB, activeIDs []string, sourceType string) ([]Alert, error) {
	var alerts []Alert
	q := db.Where("source_type = ?", sourceType)
	if len(activeIDs) > 0 {
		q = q.Where("id NOT IN ?", activeIDs)
	}
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// DeleteAlertsNotInIDs deletes the same set GetAlertsNotInIDs matches.
// Used after the matched alerts have been written to the archive.
func DeleteAlertsNotInIDs(db *gorm.DB, activeIDs []string, sourceType string) (int64, error) {
	q := db.Where("source_type = ?", sourceType)
	if len(activeIDs) > 0 {
		q = q.Where("id NOT IN ?", activeIDs)
	}
	result := q.Delete(&Alert{})
	return result.RowsAffected, result.Error
}

// ArchiveAlert writes an alert into the archive table (upsert keyed on id) and
// appends a row to the history ledger. Archiving an alert that no longer exists
// in the active table is the caller's race to tolerate; this function only
// needs the alert value itself.
func ArchiveAlert(db *gorm.DB, alert *Alert, archivedAt time.Time) error {
	archived := ArchivedAlert{
		ID:          alert.ID,
		Status:      alert.Status,
		SourceType:  alert.SourceType,
		Tag:         alert.Tag,
		Tags:        alert.Tags,
		ServiceID:   alert.ServiceID,
		StartsAt:    alert.StartsAt,
		AlertURL:    alert.AlertURL,
		AlertName:   alert.AlertName,
		Summary:     alert.Summary,
		RunbookURL:  alert.RunbookURL,
		IsDismissed: alert.IsDismissed,
		ArchivedAt:  archivedAt,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "source_type", "tag", "tags", "service_id",
				"starts_at", "alert_url", "alert_name", "summary", "runbook_url",
				"is_dismissed", "archived_at", "updated_at",
			}),
		}).Create(&archived).Error; err != nil {
			return err
		}

		// History append mirrors the archive-table trigger of the original
		// schema: one ledger row per archive insert/update.
		entry := AlertHistoryEntry{
			AlertID:    alert.ID,
			Status:     alert.Status,
			ArchivedAt: archivedAt,
		}
		return tx.Create(&entry).Error
	})
}

// ArchiveAlertByID archives a single active alert by id and removes it from the
// active table. A missing id is a no-op with a warning, not an error: two
// reconciliation passes may race on the same alert.
func ArchiveAlertByID(db *gorm.DB, id string) error {
	alert, err := GetAlertByID(db, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("Warning: cannot archive alert %s: not found", id)
			return nil
		}
		return err
	}

	if err := ArchiveAlert(db, alert, time.Now()); err != nil {
		return err
	}
	return db.Delete(&Alert{}, "id = ?", id).Error
}

// ResolveAlert handles the explicit point-event resolution path (e.g. a GCP
// incident reported as closed). The alert is moved to the archive with the
// closed status rather than hard-deleted, so history is preserved the same way
// reconciliation preserves it.
func ResolveAlert(db *gorm.DB, id, status string) error {
	alert, err := GetAlertByID(db, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			log.Printf("Warning: cannot resolve alert %s: not found", id)
			return nil
		}
		return err
	}

	alert.Status = status
	if err := ArchiveAlert(db, alert, time.Now()); err != nil {
		return err
	}
	return db.Delete(&Alert{}, "id = ?", id).Error
}

// GetArchivedAlerts returns archived alerts, newest first.
func GetArchivedAlerts(db *gorm.DB) ([]ArchivedAlert, error) {
	var alerts []ArchivedAlert
	if err := db.Order("archived_at desc").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetAlertHistory returns the status-transition ledger for one alert id.
func GetAlertHistory(db *gorm.DB, alertID string) ([]AlertHistoryEntry, error) {
	var entries []AlertHistoryEntry
	if err := db.Where("alert_id = ?", alertID).Order("archived_at asc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
