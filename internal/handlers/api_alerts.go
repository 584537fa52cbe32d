package handlers

import (
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
)

// handleListAlerts handles GET /api/alerts
func (h *APIHandler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := database.GetAllAlerts(h.db)
	if err != nil {
		log.Printf("Failed to list alerts: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	api.RespondJSON(w, http.StatusOK, alerts)
}

// handleListArchivedAlerts handles GET /api/alerts/archived
func (h *APIHandler) handleListArchivedAlerts(w http.ResponseWriter, r *http.Request) {
	archived, err := database.GetArchivedAlerts(h.db)
	if err != nil {
		log.Printf("Failed to list archived alerts: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list archived alerts")
		return
	}
	api.RespondJSON(w, http.StatusOK, archived)
}

// handleDismissAlert handles POST /api/alerts/{id}/dismiss
func (h *APIHandler) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	alert, err := database.DismissAlert(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Alert not found")
			return
		}
		log.Printf("Failed to dismiss alert %s: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to dismiss alert")
		return
	}

	h.audit(r, "update", "alert", id, "dismissed")
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleUndismissAlert handles POST /api/alerts/{id}/undismiss
func (h *APIHandler) handleUndismissAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	alert, err := database.UndismissAlert(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Alert not found")
			return
		}
		log.Printf("Failed to undismiss alert %s: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to undismiss alert")
		return
	}

	h.audit(r, "update", "alert", id, "undismissed")
	api.RespondJSON(w, http.StatusOK, alert)
}

// handleAlertHistory handles GET /api/alerts/{id}/history, returning the
// append-only archive ledger for one alert id.
func (h *APIHandler) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	history, err := database.GetAlertHistory(h.db, id)
	if err != nil {
		log.Printf("Failed to load history for alert %s: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to load alert history")
		return
	}
	api.RespondJSON(w, http.StatusOK, history)
}
