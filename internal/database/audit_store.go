package database

import "gorm.io/gorm"

// RecordAudit appends an audit log row. Audit failures are surfaced to the
// caller, which logs and continues; auditing never blocks the operation itself.
func RecordAudit(db *gorm.DB, entry *AuditLog) error {
	return db.Create(entry).Error
}

// ListAuditLogs returns audit entries, newest first, bounded by limit.
func ListAuditLogs(db *gorm.DB, limit int) ([]AuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []AuditLog
	if err := db.Order("created_at desc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
