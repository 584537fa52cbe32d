package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/notify"
)

// AlertHandler handles webhook requests from multiple alert sources
type AlertHandler struct {
	db       *gorm.DB
	registry *alerts.Registry
	notifier *notify.SlackNotifier
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(db *gorm.DB, registry *alerts.Registry, notifier *notify.SlackNotifier) *AlertHandler {
	return &AlertHandler{
		db:       db,
		registry: registry,
		notifier: notifier,
	}
}

// HandleWebhook processes incoming webhook requests
// Route: /webhook/alert/{source}
func (h *AlertHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	// Extract source type from path
	path := strings.TrimPrefix(r.URL.Path, "/webhook/alert/")
	sourceType := strings.TrimSuffix(path, "/")

	if sourceType == "" {
		api.RespondError(w, http.StatusBadRequest, "Missing source type")
		return
	}

	adapter := h.registry.Get(sourceType)
	if adapter == nil {
		log.Printf("No adapter for source type: %s", sourceType)
		api.RespondError(w, http.StatusNotFound,
			fmt.Sprintf("Unsupported source type %q, supported: %s", sourceType, strings.Join(h.registry.SourceTypes(), ", ")))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxBodySize))
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		api.RespondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	defer r.Body.Close()

	parsed, err := adapter.Parse(body)
	if err != nil {
		var validationErr *alerts.ValidationError
		if errors.As(err, &validationErr) {
			api.RespondJSON(w, http.StatusBadRequest, api.ErrorResponse{
				Error:   "Alert payload validation failed",
				Code:    "validation_error",
				Details: validationErr.Fields,
			})
			return
		}
		log.Printf("Error parsing %s alert payload: %v", sourceType, err)
		api.RespondError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	acceptedIDs := make([]string, 0, len(parsed))
	for _, p := range parsed {
		if p.Resolve {
			if err := database.ResolveAlert(h.db, p.Alert.ID, p.Alert.Status); err != nil {
				log.Printf("Failed to resolve alert %s: %v", p.Alert.ID, err)
				continue
			}
			acceptedIDs = append(acceptedIDs, p.Alert.ID)
			continue
		}

		// Existence check before the upsert so only genuinely new alerts
		// trigger a notification
		isNew := false
		if _, err := database.GetAlertByID(h.db, p.Alert.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				isNew = true
			} else {
				log.Printf("Failed to look up alert %s: %v", p.Alert.ID, err)
			}
		}

		alert := p.Alert
		if _, err := database.InsertOrUpdateAlert(h.db, &alert); err != nil {
			log.Printf("Failed to store alert %s: %v", alert.ID, err)
			continue
		}
		acceptedIDs = append(acceptedIDs, alert.ID)

		if isNew && h.notifier != nil {
			go h.notifier.NotifyNewAlert(&alert)
		}
	}

	log.Printf("Received %d alerts from %s, accepted %d", len(parsed), sourceType, len(acceptedIDs))

	// Senders correlate on the returned ids (GCP in particular expects the
	// incident id echoed back)
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"received":  len(parsed),
		"accepted":  len(acceptedIDs),
		"alert_ids": acceptedIDs,
	})
}
