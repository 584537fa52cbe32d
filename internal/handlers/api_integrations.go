package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/integrations"
	"github.com/opsimate/opsimate/internal/utils"
)

// urlsTimeout bounds the aggregate dashboard URL lookup
const urlsTimeout = 20 * time.Second

// handleListIntegrations handles GET /api/integrations
func (h *APIHandler) handleListIntegrations(w http.ResponseWriter, r *http.Request) {
	list, err := database.ListIntegrations(h.db)
	if err != nil {
		log.Printf("Failed to list integrations: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list integrations")
		return
	}
	api.RespondJSON(w, http.StatusOK, api.IntegrationsToResponses(list))
}

// handleCreateIntegration handles POST /api/integrations
func (h *APIHandler) handleCreateIntegration(w http.ResponseWriter, r *http.Request) {
	var req api.CreateIntegrationRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	encrypted, err := h.encryptCredentials(req.Credentials)
	if err != nil {
		log.Printf("Failed to encrypt credentials: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to store credentials")
		return
	}

	integration := &database.Integration{
		Name:        req.Name,
		Type:        database.IntegrationType(req.Type),
		ExternalURL: strings.TrimSuffix(req.ExternalURL, "/"),
		Credentials: encrypted,
	}
	if err := database.CreateIntegration(h.db, integration); err != nil {
		log.Printf("Failed to create integration: %v", err)
		api.RespondError(w, http.StatusConflict, "Integration name already exists")
		return
	}

	h.audit(r, "create", "integration", strconv.FormatUint(uint64(integration.ID), 10), integration.Name)
	api.RespondJSON(w, http.StatusCreated, api.IntegrationToResponse(*integration))
}

// handleGetIntegration handles GET /api/integrations/{id}
func (h *APIHandler) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	integration, err := database.GetIntegration(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Integration not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get integration")
		return
	}
	api.RespondJSON(w, http.StatusOK, api.IntegrationToResponse(*integration))
}

// handleUpdateIntegration handles PUT /api/integrations/{id}. An empty
// credentials map keeps the stored blob.
func (h *APIHandler) handleUpdateIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateIntegrationRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	integration, err := database.GetIntegration(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Integration not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get integration")
		return
	}

	if req.Name != nil {
		integration.Name = *req.Name
	}
	if req.ExternalURL != nil {
		integration.ExternalURL = strings.TrimSuffix(*req.ExternalURL, "/")
	}
	if len(req.Credentials) > 0 {
		encrypted, err := h.encryptCredentials(req.Credentials)
		if err != nil {
			log.Printf("Failed to encrypt credentials: %v", err)
			api.RespondError(w, http.StatusInternalServerError, "Failed to store credentials")
			return
		}
		integration.Credentials = encrypted
	}

	if err := database.UpdateIntegration(h.db, integration); err != nil {
		log.Printf("Failed to update integration %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update integration")
		return
	}

	h.audit(r, "update", "integration", strconv.FormatUint(uint64(id), 10), integration.Name)
	api.RespondJSON(w, http.StatusOK, api.IntegrationToResponse(*integration))
}

// handleDeleteIntegration handles DELETE /api/integrations/{id}
func (h *APIHandler) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	integration, err := database.GetIntegration(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Integration not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get integration")
		return
	}

	if err := database.DeleteIntegration(h.db, id); err != nil {
		log.Printf("Failed to delete integration %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete integration")
		return
	}

	h.audit(r, "delete", "integration", strconv.FormatUint(uint64(id), 10), integration.Name)
	api.RespondNoContent(w)
}

// handleIntegrationURLs handles GET /api/integrations/urls?tags=a,b. It fans
// out to every configured integration, collects dashboard links matching any
// of the tags, and deduplicates by URL. A failing integration contributes
// nothing rather than failing the request.
func (h *APIHandler) handleIntegrationURLs(w http.ResponseWriter, r *http.Request) {
	rawTags := r.URL.Query().Get("tags")
	if rawTags == "" {
		api.RespondError(w, http.StatusBadRequest, "Missing tags query parameter")
		return
	}
	var tags []string
	for _, t := range strings.Split(rawTags, ",") {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	if len(tags) == 0 {
		api.RespondError(w, http.StatusBadRequest, "Missing tags query parameter")
		return
	}

	list, err := database.ListIntegrations(h.db)
	if err != nil {
		log.Printf("Failed to list integrations: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list integrations")
		return
	}

	ctx, cancel := contextWithTimeout(r, urlsTimeout)
	defer cancel()

	var links []integrations.DashboardLink
	for i := range list {
		integration := &list[i]

		connector := h.integrationRegistry.Get(integration.Type)
		if connector == nil {
			log.Printf("No connector for integration type %q, skipping %s", integration.Type, integration.Name)
			continue
		}

		creds, err := h.decryptCredentials(integration)
		if err != nil {
			log.Printf("Failed to decrypt credentials for %s: %v", integration.Name, err)
			continue
		}

		found, err := connector.DashboardURLsByTags(ctx, integration, creds, tags)
		if err != nil {
			log.Printf("Dashboard lookup failed for %s: %v", integration.Name, err)
			continue
		}
		links = append(links, found...)
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"tags": tags,
		"urls": integrations.DeduplicateByURL(links),
	})
}

// encryptCredentials serializes and encrypts a credentials map
func (h *APIHandler) encryptCredentials(creds map[string]string) (string, error) {
	if len(creds) == 0 {
		return "", nil
	}
	blob, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to serialize credentials: %w", err)
	}
	return utils.EncryptString(h.encryptionKey, string(blob))
}

// decryptCredentials decrypts an integration's stored credentials blob
func (h *APIHandler) decryptCredentials(integration *database.Integration) (map[string]string, error) {
	if integration.Credentials == "" {
		return map[string]string{}, nil
	}
	plain, err := utils.DecryptString(h.encryptionKey, integration.Credentials)
	if err != nil {
		return nil, err
	}
	var creds map[string]string
	if err := json.Unmarshal([]byte(plain), &creds); err != nil {
		return nil, fmt.Errorf("invalid credentials blob: %w", err)
	}
	return creds, nil
}
