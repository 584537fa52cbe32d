package database

import "time"

// Alert is the canonical representation of an externally-reported condition.
// The primary key is the source's native incident/alert ID, so re-ingestion of
// the same ID is an upsert.
type Alert struct {
	ID         string    `gorm:"primaryKey;size:255" json:"id"`
	Status     string    `gorm:"size:64;not null" json:"status"`           // free-form source vocabulary, not an enum
	SourceType string    `gorm:"size:64;not null;index" json:"source_type"` // originating source, e.g. "gcp", "custom"
	Tag        string    `gorm:"size:255;index" json:"tag"`                 // primary tag used for correlation
	Tags       JSONB     `gorm:"type:jsonb" json:"tags"`                    // full tag map from the source
	ServiceID  *uint     `gorm:"index" json:"service_id,omitempty"`         // explicit service reference, optional
	StartsAt   time.Time `json:"starts_at"`
	AlertURL   string    `gorm:"size:1024;not null" json:"alert_url"`
	AlertName  string    `gorm:"size:255;not null" json:"alert_name"`
	Summary    string    `gorm:"type:text" json:"summary"`
	RunbookURL string    `gorm:"size:1024" json:"runbook_url"`
	IsDismissed bool     `gorm:"default:false" json:"is_dismissed"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArchivedAlert is an alert that a reconciliation pass determined is no longer
// reported as active by its source. Same shape as Alert plus ArchivedAt.
type ArchivedAlert struct {
	ID          string    `gorm:"primaryKey;size:255" json:"id"`
	Status      string    `gorm:"size:64;not null" json:"status"`
	SourceType  string    `gorm:"size:64;not null;index" json:"source_type"`
	Tag         string    `gorm:"size:255" json:"tag"`
	Tags        JSONB     `gorm:"type:jsonb" json:"tags"`
	ServiceID   *uint     `json:"service_id,omitempty"`
	StartsAt    time.Time `json:"starts_at"`
	AlertURL    string    `gorm:"size:1024" json:"alert_url"`
	AlertName   string    `gorm:"size:255" json:"alert_name"`
	Summary     string    `gorm:"type:text" json:"summary"`
	RunbookURL  string    `gorm:"size:1024" json:"runbook_url"`
	IsDismissed bool      `json:"is_dismissed"`
	ArchivedAt  time.Time `gorm:"not null;index" json:"archived_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AlertHistoryEntry is an append-only ledger row recording a status at the time
// an alert was written to the archive. Produces a time-series of status
// transitions usable for audit and graphing.
type AlertHistoryEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AlertID    string    `gorm:"size:255;not null;index" json:"alert_id"`
	Status     string    `gorm:"size:64;not null" json:"status"`
	ArchivedAt time.Time `gorm:"not null" json:"archived_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (ArchivedAlert) TableName() string {
	return "alerts_archived"
}

func (AlertHistoryEntry) TableName() string {
	return "alerts_history"
}
