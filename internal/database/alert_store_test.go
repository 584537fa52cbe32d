package database

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"
)

func testAlert(id string) *Alert {
	return &Alert{
		ID:         id,
		Status:     "firing",
		SourceType: "custom",
		Tag:        "payments",
		Tags:       JSONB{"tag": "payments"},
		StartsAt:   time.Now().UTC(),
		AlertURL:   "https://alerts.example.com/" + id,
		AlertName:  "HighLatency",
		Summary:    "p99 above threshold",
	}
}

func TestInsertOrUpdateAlert_Upsert(t *testing.T) {
	db := newTestDB(t)

	alert := testAlert("a-1")
	if _, err := InsertOrUpdateAlert(db, alert); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	stored, err := GetAlertByID(db, "a-1")
	if err != nil {
		t.Fatalf("GetAlertByID failed: %v", err)
	}
	createdAt := stored.CreatedAt

	// Dismiss, then re-ingest with a new status. The dismissal and the original
	// created_at must both survive the upsert.
	if _, err := DismissAlert(db, "a-1"); err != nil {
		t.Fatalf("DismissAlert failed: %v", err)
	}

	update := testAlert("a-1")
	update.Status = "resolved"
	update.Summary = "recovered"
	if _, err := InsertOrUpdateAlert(db, update); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	var count int64
	db.Model(&Alert{}).Count(&count)
	if count != 1 {
		t.Fatalf("alert count = %d, want 1", count)
	}

	stored, err = GetAlertByID(db, "a-1")
	if err != nil {
		t.Fatalf("GetAlertByID after upsert failed: %v", err)
	}
	if stored.Status != "resolved" {
		t.Errorf("Status = %q, want resolved", stored.Status)
	}
	if stored.Summary != "recovered" {
		t.Errorf("Summary = %q, want recovered", stored.Summary)
	}
	if !stored.IsDismissed {
		t.Error("IsDismissed should survive re-ingestion")
	}
	if !stored.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt changed on upsert: %v -> %v", createdAt, stored.CreatedAt)
	}
}

func TestGetAlertByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := GetAlertByID(db, "missing")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("err = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestDismissUndismissAlert(t *testing.T) {
	db := newTestDB(t)

	if _, err := InsertOrUpdateAlert(db, testAlert("a-1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	alert, err := DismissAlert(db, "a-1")
	if err != nil {
		t.Fatalf("DismissAlert failed: %v", err)
	}
	if !alert.IsDismissed {
		t.Error("alert should be dismissed")
	}

	// Dismissing again is a no-op, not an error
	if _, err := DismissAlert(db, "a-1"); err != nil {
		t.Fatalf("second DismissAlert failed: %v", err)
	}

	alert, err = UndismissAlert(db, "a-1")
	if err != nil {
		t.Fatalf("UndismissAlert failed: %v", err)
	}
	if alert.IsDismissed {
		t.Error("alert should no longer be dismissed")
	}

	if _, err := DismissAlert(db, "unknown"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("dismissing unknown alert: err = %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestGetAlertsNotInIDs(t *testing.T) {
	db := newTestDB(t)

	for _, id := range []string{"g-1", "g-2", "g-3"} {
		a := testAlert(id)
		a.SourceType = "grafana"
		if _, err := InsertOrUpdateAlert(db, a); err != nil {
			t.Fatalf("insert %s failed: %v", id, err)
		}
	}
	other := testAlert("c-1")
	if _, err := InsertOrUpdateAlert(db, other); err != nil {
		t.Fatalf("insert c-1 failed: %v", err)
	}

	stale, err := GetAlertsNotInIDs(db, []string{"g-1"}, "grafana")
	if err != nil {
		t.Fatalf("GetAlertsNotInIDs failed: %v", err)
	}
	if len(stale) != 2 {
		t.Errorf("len(stale) = %d, want 2", len(stale))
	}

	// An empty active set matches everything of that source type, and never
	// touches other source types.
	stale, err = GetAlertsNotInIDs(db, nil, "grafana")
	if err != nil {
		t.Fatalf("GetAlertsNotInIDs with empty set failed: %v", err)
	}
	if len(stale) != 3 {
		t.Errorf("len(stale) with empty set = %d, want 3", len(stale))
	}
	for _, a := range stale {
		if a.SourceType != "grafana" {
			t.Errorf("matched alert %s of source type %q", a.ID, a.SourceType)
		}
	}
}

func TestArchiveAlert_WritesHistory(t *testing.T) {
	db := newTestDB(t)

	alert := testAlert("a-1")
	if _, err := InsertOrUpdateAlert(db, alert); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	archivedAt := time.Now()
	if err := ArchiveAlert(db, alert, archivedAt); err != nil {
		t.Fatalf("ArchiveAlert failed: %v", err)
	}

	archived, err := GetArchivedAlerts(db)
	if err != nil {
		t.Fatalf("GetArchivedAlerts failed: %v", err)
	}
	if len(archived) != 1 || archived[0].ID != "a-1" {
		t.Fatalf("archived = %v, want one entry for a-1", archived)
	}

	history, err := GetAlertHistory(db, "a-1")
	if err != nil {
		t.Fatalf("GetAlertHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("len(history) = %d, want 1", len(history))
	}
	if history[0].Status != "firing" {
		t.Errorf("history status = %q, want firing", history[0].Status)
	}

	// Archiving the same alert again upserts the archive row but appends a
	// second ledger entry.
	alert.Status = "resolved"
	if err := ArchiveAlert(db, alert, time.Now()); err != nil {
		t.Fatalf("second ArchiveAlert failed: %v", err)
	}
	archived, _ = GetArchivedAlerts(db)
	if len(archived) != 1 {
		t.Errorf("archive rows = %d, want 1", len(archived))
	}
	history, _ = GetAlertHistory(db, "a-1")
	if len(history) != 2 {
		t.Errorf("len(history) = %d, want 2", len(history))
	}
}

func TestResolveAlert(t *testing.T) {
	db := newTestDB(t)

	if _, err := InsertOrUpdateAlert(db, testAlert("a-1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := ResolveAlert(db, "a-1", "closed"); err != nil {
		t.Fatalf("ResolveAlert failed: %v", err)
	}

	if _, err := GetAlertByID(db, "a-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("resolved alert should leave the active table")
	}

	archived, err := GetArchivedAlerts(db)
	if err != nil {
		t.Fatalf("GetArchivedAlerts failed: %v", err)
	}
	if len(archived) != 1 || archived[0].Status != "closed" {
		t.Errorf("archived = %+v, want one closed entry", archived)
	}

	// Resolving an unknown alert is tolerated
	if err := ResolveAlert(db, "unknown", "closed"); err != nil {
		t.Errorf("ResolveAlert on unknown id should be a no-op, got %v", err)
	}
}

func TestArchiveAlertByID(t *testing.T) {
	db := newTestDB(t)

	if _, err := InsertOrUpdateAlert(db, testAlert("a-1")); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := ArchiveAlertByID(db, "a-1"); err != nil {
		t.Fatalf("ArchiveAlertByID failed: %v", err)
	}
	if _, err := GetAlertByID(db, "a-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Error("archived alert should leave the active table")
	}

	if err := ArchiveAlertByID(db, "missing"); err != nil {
		t.Errorf("ArchiveAlertByID on missing id should be a no-op, got %v", err)
	}
}
