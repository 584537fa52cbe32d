package alerts

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsimate/opsimate/internal/database"
)

func reconcilerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedAlert(t *testing.T, db *gorm.DB, id, sourceType string) {
	t.Helper()
	alert := &database.Alert{
		ID:         id,
		Status:     "firing",
		SourceType: sourceType,
		AlertName:  "Test",
		AlertURL:   "https://example.com/" + id,
		StartsAt:   time.Now().UTC(),
		Tags:       database.JSONB{},
	}
	if _, err := database.InsertOrUpdateAlert(db, alert); err != nil {
		t.Fatalf("failed to seed alert %s: %v", id, err)
	}
}

func TestReconciler_ArchivesStaleAlerts(t *testing.T) {
	db := reconcilerTestDB(t)
	seedAlert(t, db, "g-1", "grafana")
	seedAlert(t, db, "g-2", "grafana")
	seedAlert(t, db, "g-3", "grafana")

	archived, err := NewReconciler(db).ArchiveAlertsNotInIDs([]string{"g-1"}, "grafana")
	if err != nil {
		t.Fatalf("ArchiveAlertsNotInIDs failed: %v", err)
	}
	if archived != 2 {
		t.Errorf("archived = %d, want 2", archived)
	}

	remaining, err := database.GetAllAlerts(db)
	if err != nil {
		t.Fatalf("GetAllAlerts failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "g-1" {
		t.Errorf("remaining = %v, want only g-1", remaining)
	}

	archivedRows, err := database.GetArchivedAlerts(db)
	if err != nil {
		t.Fatalf("GetArchivedAlerts failed: %v", err)
	}
	if len(archivedRows) != 2 {
		t.Errorf("archive rows = %d, want 2", len(archivedRows))
	}
}

func TestReconciler_EmptyActiveSetArchivesAll(t *testing.T) {
	db := reconcilerTestDB(t)
	seedAlert(t, db, "g-1", "grafana")
	seedAlert(t, db, "g-2", "grafana")
	seedAlert(t, db, "c-1", "custom")

	archived, err := NewReconciler(db).ArchiveAlertsNotInIDs(nil, "grafana")
	if err != nil {
		t.Fatalf("ArchiveAlertsNotInIDs failed: %v", err)
	}
	if archived != 2 {
		t.Errorf("archived = %d, want 2", archived)
	}

	// Alerts of other source types are untouched
	remaining, _ := database.GetAllAlerts(db)
	if len(remaining) != 1 || remaining[0].ID != "c-1" {
		t.Errorf("remaining = %v, want only c-1", remaining)
	}
}

func TestReconciler_NothingStale(t *testing.T) {
	db := reconcilerTestDB(t)
	seedAlert(t, db, "g-1", "grafana")

	archived, err := NewReconciler(db).ArchiveAlertsNotInIDs([]string{"g-1"}, "grafana")
	if err != nil {
		t.Fatalf("ArchiveAlertsNotInIDs failed: %v", err)
	}
	if archived != 0 {
		t.Errorf("archived = %d, want 0", archived)
	}
}

func TestReconciler_DoesNotMutateCallerSlice(t *testing.T) {
	db := reconcilerTestDB(t)
	seedAlert(t, db, "g-1", "grafana")
	seedAlert(t, db, "g-2", "grafana")

	active := []string{"g-1"}
	if _, err := NewReconciler(db).ArchiveAlertsNotInIDs(active, "grafana"); err != nil {
		t.Fatalf("ArchiveAlertsNotInIDs failed: %v", err)
	}
	if len(active) != 1 || active[0] != "g-1" {
		t.Errorf("caller slice mutated: %v", active)
	}
}
