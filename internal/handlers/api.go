package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/integrations"
	"github.com/opsimate/opsimate/internal/middleware"
	"github.com/opsimate/opsimate/internal/providers"
)

// APIHandler handles API endpoints for the dashboard UI
type APIHandler struct {
	db                  *gorm.DB
	providerRegistry    *providers.Registry
	integrationRegistry *integrations.Registry
	encryptionKey       string
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(db *gorm.DB, providerRegistry *providers.Registry, integrationRegistry *integrations.Registry, encryptionKey string) *APIHandler {
	return &APIHandler{
		db:                  db,
		providerRegistry:    providerRegistry,
		integrationRegistry: integrationRegistry,
		encryptionKey:       encryptionKey,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Providers
	mux.HandleFunc("GET /api/providers", h.handleListProviders)
	mux.HandleFunc("POST /api/providers", h.handleCreateProvider)
	mux.HandleFunc("GET /api/providers/{id}", h.handleGetProvider)
	mux.HandleFunc("PUT /api/providers/{id}", h.handleUpdateProvider)
	mux.HandleFunc("DELETE /api/providers/{id}", h.handleDeleteProvider)
	mux.HandleFunc("POST /api/providers/{id}/discover", h.handleDiscoverServices)
	mux.HandleFunc("POST /api/providers/{id}/services", h.handleBulkAddServices)

	// Services
	mux.HandleFunc("GET /api/services", h.handleListServices)
	mux.HandleFunc("POST /api/services", h.handleCreateService)
	mux.HandleFunc("GET /api/services/{id}", h.handleGetService)
	mux.HandleFunc("PUT /api/services/{id}", h.handleUpdateService)
	mux.HandleFunc("DELETE /api/services/{id}", h.handleDeleteService)
	mux.HandleFunc("POST /api/services/start", h.handleStartServices)
	mux.HandleFunc("POST /api/services/stop", h.handleStopServices)
	mux.HandleFunc("GET /api/services/{id}/logs", h.handleServiceLogs)
	mux.HandleFunc("POST /api/services/{id}/tags/{tagID}", h.handleAttachTag)
	mux.HandleFunc("DELETE /api/services/{id}/tags/{tagID}", h.handleDetachTag)
	mux.HandleFunc("PUT /api/services/{id}/custom-fields/{fieldID}", h.handleSetCustomFieldValue)

	// Tags
	mux.HandleFunc("GET /api/tags", h.handleListTags)
	mux.HandleFunc("POST /api/tags", h.handleCreateTag)
	mux.HandleFunc("PUT /api/tags/{id}", h.handleUpdateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", h.handleDeleteTag)

	// Alerts
	mux.HandleFunc("GET /api/alerts", h.handleListAlerts)
	mux.HandleFunc("GET /api/alerts/archived", h.handleListArchivedAlerts)
	mux.HandleFunc("POST /api/alerts/{id}/dismiss", h.handleDismissAlert)
	mux.HandleFunc("POST /api/alerts/{id}/undismiss", h.handleUndismissAlert)
	mux.HandleFunc("GET /api/alerts/{id}/history", h.handleAlertHistory)

	// Integrations
	mux.HandleFunc("GET /api/integrations", h.handleListIntegrations)
	mux.HandleFunc("POST /api/integrations", h.handleCreateIntegration)
	mux.HandleFunc("GET /api/integrations/urls", h.handleIntegrationURLs)
	mux.HandleFunc("GET /api/integrations/{id}", h.handleGetIntegration)
	mux.HandleFunc("PUT /api/integrations/{id}", h.handleUpdateIntegration)
	mux.HandleFunc("DELETE /api/integrations/{id}", h.handleDeleteIntegration)

	// Views
	mux.HandleFunc("GET /api/views", h.handleListViews)
	mux.HandleFunc("POST /api/views", h.handleCreateView)
	mux.HandleFunc("GET /api/views/{id}", h.handleGetView)
	mux.HandleFunc("PUT /api/views/{id}", h.handleUpdateView)
	mux.HandleFunc("DELETE /api/views/{id}", h.handleDeleteView)
	mux.HandleFunc("POST /api/views/{id}/default", h.handleSetDefaultView)

	// Custom fields
	mux.HandleFunc("GET /api/custom-fields", h.handleListCustomFields)
	mux.HandleFunc("POST /api/custom-fields", h.handleCreateCustomField)
	mux.HandleFunc("PUT /api/custom-fields/{id}", h.handleUpdateCustomField)
	mux.HandleFunc("DELETE /api/custom-fields/{id}", h.handleDeleteCustomField)

	// Settings
	mux.HandleFunc("GET /api/settings/slack", h.handleGetSlackSettings)
	mux.HandleFunc("PUT /api/settings/slack", h.handleUpdateSlackSettings)

	// Audit log
	mux.HandleFunc("GET /api/audit-logs", h.handleListAuditLogs)
}

// actor returns the authenticated user for audit entries, or "anonymous"
func (h *APIHandler) actor(r *http.Request) string {
	if user := middleware.GetUserFromContext(r.Context()); user != "" {
		return user
	}
	return "anonymous"
}

// audit records a mutating operation. Failures are logged, never surfaced:
// the operation itself already succeeded.
func (h *APIHandler) audit(r *http.Request, action, resourceType, resourceID, resourceName string) {
	entry := &database.AuditLog{
		Actor:        h.actor(r),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		ResourceName: resourceName,
	}
	if err := database.RecordAudit(h.db, entry); err != nil {
		log.Printf("Failed to record audit entry (%s %s %s): %v", action, resourceType, resourceID, err)
	}
}
