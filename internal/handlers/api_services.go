package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/correlator"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/providers"
)

// actionTimeout bounds one remote start/stop/logs operation
const actionTimeout = 45 * time.Second

// contextWithTimeout derives a bounded context from the request
func contextWithTimeout(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), timeout)
}

// handleListServices handles GET /api/services. Each service is returned with
// its correlated alerts and undismissed alert count.
func (h *APIHandler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services, err := database.ListServices(h.db)
	if err != nil {
		log.Printf("Failed to list services: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list services")
		return
	}

	alerts, err := database.GetAllAlerts(h.db)
	if err != nil {
		log.Printf("Failed to load alerts for correlation: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to load alerts")
		return
	}

	matched := correlator.MatchAlerts(services, alerts)
	byService := make(map[uint]correlator.ServiceAlerts, len(matched))
	for _, m := range matched {
		byService[m.ServiceID] = m
	}

	response := make([]api.ServiceResponse, 0, len(services))
	for _, svc := range services {
		entry := api.ServiceResponse{Service: svc, Alerts: []database.Alert{}}
		if m, ok := byService[svc.ID]; ok {
			entry.Alerts = m.Alerts
			entry.AlertsCount = m.AlertsCount
		}
		response = append(response, entry)
	}

	api.RespondJSON(w, http.StatusOK, response)
}

// handleCreateService handles POST /api/services, for manually registered
// services that discovery cannot see.
func (h *APIHandler) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req api.CreateServiceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if _, err := database.GetProvider(h.db, req.ProviderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusBadRequest, "Unknown provider_id")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to check provider")
		return
	}

	service := &database.Service{
		ProviderID:       req.ProviderID,
		Name:             req.Name,
		Type:             database.ServiceType(req.Type),
		Status:           database.ServiceStatusUnknown,
		IP:               req.IP,
		ContainerDetails: req.ContainerDetails,
	}
	if err := database.CreateService(h.db, service); err != nil {
		log.Printf("Failed to create service: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to create service")
		return
	}

	h.audit(r, "create", "service", strconv.FormatUint(uint64(service.ID), 10), service.Name)
	api.RespondJSON(w, http.StatusCreated, service)
}

// handleGetService handles GET /api/services/{id}, including custom field values
func (h *APIHandler) handleGetService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	service, err := database.GetService(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Service not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get service")
		return
	}

	customFields, err := database.GetServiceCustomFields(h.db, id)
	if err != nil {
		log.Printf("Failed to load custom fields for service %d: %v", id, err)
		customFields = map[uint]string{}
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"service":       service,
		"custom_fields": customFields,
	})
}

// handleUpdateService handles PUT /api/services/{id}
func (h *APIHandler) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateServiceRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	service, err := database.GetService(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Service not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get service")
		return
	}

	if req.Name != nil {
		service.Name = *req.Name
	}
	if req.IP != nil {
		service.IP = *req.IP
	}
	if req.ContainerDetails != nil {
		service.ContainerDetails = *req.ContainerDetails
	}

	if err := database.UpdateService(h.db, service); err != nil {
		log.Printf("Failed to update service %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update service")
		return
	}

	h.audit(r, "update", "service", strconv.FormatUint(uint64(id), 10), service.Name)
	api.RespondJSON(w, http.StatusOK, service)
}

// handleDeleteService handles DELETE /api/services/{id}
func (h *APIHandler) handleDeleteService(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	service, err := database.GetService(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Service not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get service")
		return
	}

	if err := database.DeleteService(h.db, id); err != nil {
		log.Printf("Failed to delete service %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete service")
		return
	}

	h.audit(r, "delete", "service", strconv.FormatUint(uint64(id), 10), service.Name)
	api.RespondNoContent(w)
}

// serviceIDsRequest is the body for bulk start/stop
type serviceIDsRequest struct {
	ServiceIDs []uint `json:"service_ids" validate:"required,min=1"`
}

// handleStartServices handles POST /api/services/start
func (h *APIHandler) handleStartServices(w http.ResponseWriter, r *http.Request) {
	h.handleServiceAction(w, r, "start")
}

// handleStopServices handles POST /api/services/stop
func (h *APIHandler) handleStopServices(w http.ResponseWriter, r *http.Request) {
	h.handleServiceAction(w, r, "stop")
}

// handleServiceAction runs start or stop across a set of services. One
// failure never aborts the rest; the response reports how many succeeded.
func (h *APIHandler) handleServiceAction(w http.ResponseWriter, r *http.Request, action string) {
	var req serviceIDsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	result := api.ServiceActionResult{Requested: len(req.ServiceIDs)}

	for _, serviceID := range req.ServiceIDs {
		if err := h.runServiceAction(r, serviceID, action); err != nil {
			log.Printf("Failed to %s service %d: %v", action, serviceID, err)
			result.Failures = append(result.Failures, fmt.Sprintf("service %d: %v", serviceID, err))
			continue
		}
		result.Succeeded++
	}

	verb := "Started"
	if action == "stop" {
		verb = "Stopped"
	}
	result.Message = fmt.Sprintf("%s %d of %d services", verb, result.Succeeded, result.Requested)

	status := http.StatusOK
	if result.Succeeded == 0 {
		status = http.StatusBadGateway
	}
	api.RespondJSON(w, status, result)
}

// runServiceAction performs one remote action and records the new status
func (h *APIHandler) runServiceAction(r *http.Request, serviceID uint, action string) error {
	service, err := database.GetService(h.db, serviceID)
	if err != nil {
		return fmt.Errorf("not found")
	}

	provider, err := database.GetProvider(h.db, service.ProviderID)
	if err != nil {
		return fmt.Errorf("provider not found")
	}

	connector := h.providerRegistry.Get(provider.Type)
	if connector == nil {
		return fmt.Errorf("no connector for provider type %q", provider.Type)
	}

	ctx, cancel := contextWithTimeout(r, actionTimeout)
	defer cancel()

	newStatus := database.ServiceStatusRunning
	if action == "stop" {
		err = connector.StopService(ctx, provider, service)
		newStatus = database.ServiceStatusStopped
	} else {
		err = connector.StartService(ctx, provider, service)
	}
	if err != nil {
		return err
	}

	if _, err := database.UpdateServiceStatus(h.db, serviceID, newStatus); err != nil {
		log.Printf("Action succeeded but status update failed for service %d: %v", serviceID, err)
	}

	h.audit(r, action, "service", strconv.FormatUint(uint64(serviceID), 10), service.Name)
	return nil
}

// handleServiceLogs handles GET /api/services/{id}/logs
func (h *APIHandler) handleServiceLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	service, err := database.GetService(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Service not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get service")
		return
	}

	provider, err := database.GetProvider(h.db, service.ProviderID)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}

	connector := h.providerRegistry.Get(provider.Type)
	if connector == nil {
		api.RespondError(w, http.StatusBadRequest, fmt.Sprintf("No connector for provider type %q", provider.Type))
		return
	}

	ctx, cancel := contextWithTimeout(r, actionTimeout)
	defer cancel()

	lines, err := connector.ServiceLogs(ctx, provider, service)
	if err != nil {
		log.Printf("Log fetch failed for service %s: %v", service.Name, err)
		api.RespondErrorWithCode(w, http.StatusBadGateway, "logs_failed",
			fmt.Sprintf("Log fetch failed: %v", err))
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"service_id": service.ID,
		"lines":      lines,
		"empty":      len(lines) == 1 && lines[0] == providers.NoLogsSentinel,
	})
}

// handleAttachTag handles POST /api/services/{id}/tags/{tagID}
func (h *APIHandler) handleAttachTag(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}

	if _, err := database.GetService(h.db, serviceID); err != nil {
		api.RespondError(w, http.StatusNotFound, "Service not found")
		return
	}
	tag, err := database.GetTag(h.db, tagID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "Tag not found")
		return
	}

	if err := database.AttachTag(h.db, serviceID, tagID); err != nil {
		log.Printf("Failed to attach tag %d to service %d: %v", tagID, serviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to attach tag")
		return
	}

	h.audit(r, "update", "service", strconv.FormatUint(uint64(serviceID), 10),
		fmt.Sprintf("attached tag %s", tag.Name))
	api.RespondNoContent(w)
}

// handleDetachTag handles DELETE /api/services/{id}/tags/{tagID}
func (h *APIHandler) handleDetachTag(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}

	if err := database.DetachTag(h.db, serviceID, tagID); err != nil {
		log.Printf("Failed to detach tag %d from service %d: %v", tagID, serviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to detach tag")
		return
	}

	h.audit(r, "update", "service", strconv.FormatUint(uint64(serviceID), 10),
		fmt.Sprintf("detached tag %d", tagID))
	api.RespondNoContent(w)
}

// handleSetCustomFieldValue handles PUT /api/services/{id}/custom-fields/{fieldID}
func (h *APIHandler) handleSetCustomFieldValue(w http.ResponseWriter, r *http.Request) {
	serviceID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	fieldID, ok := pathID(w, r, "fieldID")
	if !ok {
		return
	}

	var req api.SetCustomFieldValueRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := database.GetService(h.db, serviceID); err != nil {
		api.RespondError(w, http.StatusNotFound, "Service not found")
		return
	}

	if err := database.SetServiceCustomField(h.db, serviceID, fieldID, req.Value); err != nil {
		log.Printf("Failed to set custom field %d on service %d: %v", fieldID, serviceID, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to set custom field value")
		return
	}

	api.RespondNoContent(w)
}
