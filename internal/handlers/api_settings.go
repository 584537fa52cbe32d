package handlers

import (
	"log"
	"net/http"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
)

// handleGetSlackSettings handles GET /api/settings/slack. The bot token is
// masked: its presence matters to the UI, its value does not.
func (h *APIHandler) handleGetSlackSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := database.GetSlackSettings(h.db)
	if err != nil {
		log.Printf("Failed to load Slack settings: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to load Slack settings")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":        settings.Enabled,
		"alerts_channel": settings.AlertsChannel,
		"has_bot_token":  settings.BotToken != "",
	})
}

// handleUpdateSlackSettings handles PUT /api/settings/slack
func (h *APIHandler) handleUpdateSlackSettings(w http.ResponseWriter, r *http.Request) {
	var req api.UpdateSlackSettingsRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	settings, err := database.GetSlackSettings(h.db)
	if err != nil {
		log.Printf("Failed to load Slack settings: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to load Slack settings")
		return
	}

	if req.BotToken != nil && *req.BotToken != "" {
		settings.BotToken = *req.BotToken
	}
	if req.AlertsChannel != nil {
		settings.AlertsChannel = *req.AlertsChannel
	}
	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}

	if err := database.UpdateSlackSettings(h.db, settings); err != nil {
		log.Printf("Failed to update Slack settings: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update Slack settings")
		return
	}

	h.audit(r, "update", "settings", "slack", "")
	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":        settings.Enabled,
		"alerts_channel": settings.AlertsChannel,
		"has_bot_token":  settings.BotToken != "",
	})
}
