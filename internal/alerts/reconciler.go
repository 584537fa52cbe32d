package alerts

import (
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/database"
)

// Reconciler transitions alerts to the archive when their source stops
// reporting them as active.
type Reconciler struct {
	db *gorm.DB
}

// NewReconciler creates a new reconciler
func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// ArchiveAlertsNotInIDs archives every stored alert of the given source type
// whose id is absent from activeAlertIDs, then removes the archived set from
// the active table. An empty activeAlertIDs set means the source currently
// reports nothing active, so ALL alerts of that type are archived. Alerts of
// other source types are untouched.
//
// A failure archiving one alert leaves that alert in the active table for the
// next pass; both the archive upsert and the delete are idempotent, so a
// retry of the whole pass self-heals.
//
// Returns the number of alerts archived.
func (r *Reconciler) ArchiveAlertsNotInIDs(activeAlertIDs []string, sourceType string) (int, error) {
	stale, err := database.GetAlertsNotInIDs(r.db, activeAlertIDs, sourceType)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	now := time.Now()
	keep := append([]string(nil), activeAlertIDs...)
	archived := 0
	for i := range stale {
		if err := database.ArchiveAlert(r.db, &stale[i], now); err != nil {
			log.Printf("Failed to archive alert %s: %v", stale[i].ID, err)
			keep = append(keep, stale[i].ID) // leave in active table for retry
			continue
		}
		archived++
	}

	if archived > 0 {
		if _, err := database.DeleteAlertsNotInIDs(r.db, keep, sourceType); err != nil {
			return archived, err
		}
	}

	return archived, nil
}
