package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
)

// discoveryTimeout bounds one interactive discovery request
const discoveryTimeout = 30 * time.Second

// pathID parses a numeric {name} path value, responding 400 on garbage
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	raw := r.PathValue(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		api.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s %q", name, raw))
		return 0, false
	}
	return uint(id), true
}

// handleListProviders handles GET /api/providers
func (h *APIHandler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := database.ListProviders(h.db)
	if err != nil {
		log.Printf("Failed to list providers: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list providers")
		return
	}
	api.RespondJSON(w, http.StatusOK, providers)
}

// handleCreateProvider handles POST /api/providers
func (h *APIHandler) handleCreateProvider(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProviderRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	providerType := database.ProviderType(req.Type)
	if providerType == database.ProviderTypeVM && (req.Host == "" || req.Username == "" || req.PrivateKey == "") {
		api.RespondError(w, http.StatusBadRequest, "VM providers require host, username and private_key")
		return
	}
	if providerType == database.ProviderTypeKubernetes && req.Kubeconfig == "" {
		api.RespondError(w, http.StatusBadRequest, "Kubernetes providers require a kubeconfig")
		return
	}

	provider := &database.Provider{
		Name:       req.Name,
		Type:       providerType,
		Host:       req.Host,
		Port:       req.Port,
		Username:   req.Username,
		PrivateKey: req.PrivateKey,
		Kubeconfig: req.Kubeconfig,
	}
	if provider.Port == 0 {
		provider.Port = 22
	}

	if err := database.CreateProvider(h.db, provider); err != nil {
		log.Printf("Failed to create provider: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to create provider")
		return
	}

	h.audit(r, "create", "provider", strconv.FormatUint(uint64(provider.ID), 10), provider.Name)
	api.RespondJSON(w, http.StatusCreated, provider)
}

// handleGetProvider handles GET /api/providers/{id}
func (h *APIHandler) handleGetProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	provider, err := database.GetProvider(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Provider not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}
	api.RespondJSON(w, http.StatusOK, provider)
}

// handleUpdateProvider handles PUT /api/providers/{id}
func (h *APIHandler) handleUpdateProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateProviderRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	provider, err := database.GetProvider(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Provider not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}

	if req.Name != nil {
		provider.Name = *req.Name
	}
	if req.Host != nil {
		provider.Host = *req.Host
	}
	if req.Port != nil {
		provider.Port = *req.Port
	}
	if req.Username != nil {
		provider.Username = *req.Username
	}
	if req.PrivateKey != nil && *req.PrivateKey != "" {
		provider.PrivateKey = *req.PrivateKey
	}
	if req.Kubeconfig != nil && *req.Kubeconfig != "" {
		provider.Kubeconfig = *req.Kubeconfig
	}

	if err := database.UpdateProvider(h.db, provider); err != nil {
		log.Printf("Failed to update provider %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update provider")
		return
	}

	h.audit(r, "update", "provider", strconv.FormatUint(uint64(id), 10), provider.Name)
	api.RespondJSON(w, http.StatusOK, provider)
}

// handleDeleteProvider handles DELETE /api/providers/{id}.
// Deleting a provider removes its services and their tag assignments.
func (h *APIHandler) handleDeleteProvider(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	provider, err := database.GetProvider(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Provider not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}

	if err := database.DeleteProvider(h.db, id); err != nil {
		log.Printf("Failed to delete provider %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete provider")
		return
	}

	h.audit(r, "delete", "provider", strconv.FormatUint(uint64(id), 10), provider.Name)
	api.RespondNoContent(w)
}

// handleDiscoverServices handles POST /api/providers/{id}/discover. It runs a
// live discovery against the provider and returns the result without
// persisting anything; the operator picks which services to track.
func (h *APIHandler) handleDiscoverServices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	provider, err := database.GetProvider(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Provider not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}

	connector := h.providerRegistry.Get(provider.Type)
	if connector == nil {
		api.RespondError(w, http.StatusBadRequest, fmt.Sprintf("No connector for provider type %q", provider.Type))
		return
	}

	ctx, cancel := contextWithTimeout(r, discoveryTimeout)
	defer cancel()

	discovered, err := connector.DiscoverServices(ctx, provider)
	if err != nil {
		log.Printf("Discovery failed for provider %s: %v", provider.Name, err)
		api.RespondErrorWithCode(w, http.StatusBadGateway, "discovery_failed",
			fmt.Sprintf("Discovery failed: %v", err))
		return
	}

	api.RespondJSON(w, http.StatusOK, discovered)
}

// handleBulkAddServices handles POST /api/providers/{id}/services, persisting
// a chosen subset of discovered services in one call.
func (h *APIHandler) handleBulkAddServices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	provider, err := database.GetProvider(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Provider not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get provider")
		return
	}

	var req api.BulkAddServicesRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	services := make([]database.Service, 0, len(req.Services))
	for _, entry := range req.Services {
		status := database.ServiceStatus(entry.Status)
		if status == "" {
			status = database.ServiceStatusUnknown
		}
		services = append(services, database.Service{
			ProviderID:       provider.ID,
			Name:             entry.Name,
			Type:             database.ServiceType(entry.Type),
			Status:           status,
			IP:               entry.IP,
			ContainerDetails: entry.ContainerDetails,
		})
	}

	if err := database.CreateServices(h.db, services); err != nil {
		log.Printf("Failed to bulk add services for provider %s: %v", provider.Name, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to add services")
		return
	}

	h.audit(r, "create", "service", "bulk", fmt.Sprintf("%d services on %s", len(services), provider.Name))
	api.RespondJSON(w, http.StatusCreated, services)
}
