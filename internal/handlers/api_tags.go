package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
)

// handleListTags handles GET /api/tags
func (h *APIHandler) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := database.ListTags(h.db)
	if err != nil {
		log.Printf("Failed to list tags: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list tags")
		return
	}
	api.RespondJSON(w, http.StatusOK, tags)
}

// handleCreateTag handles POST /api/tags
func (h *APIHandler) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTagRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	tag := &database.Tag{Name: req.Name, Color: req.Color}
	if err := database.CreateTag(h.db, tag); err != nil {
		log.Printf("Failed to create tag %q: %v", req.Name, err)
		api.RespondError(w, http.StatusConflict, "Tag name already exists")
		return
	}

	h.audit(r, "create", "tag", strconv.FormatUint(uint64(tag.ID), 10), tag.Name)
	api.RespondJSON(w, http.StatusCreated, tag)
}

// handleUpdateTag handles PUT /api/tags/{id}
func (h *APIHandler) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.UpdateTagRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tag, err := database.GetTag(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Tag not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get tag")
		return
	}

	if req.Name != nil {
		tag.Name = *req.Name
	}
	if req.Color != nil {
		tag.Color = *req.Color
	}

	if err := database.UpdateTag(h.db, tag); err != nil {
		log.Printf("Failed to update tag %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update tag")
		return
	}

	h.audit(r, "update", "tag", strconv.FormatUint(uint64(id), 10), tag.Name)
	api.RespondJSON(w, http.StatusOK, tag)
}

// handleDeleteTag handles DELETE /api/tags/{id}. Assignments to services are
// removed along with the tag.
func (h *APIHandler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tag, err := database.GetTag(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "Tag not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get tag")
		return
	}

	if err := database.DeleteTag(h.db, id); err != nil {
		log.Printf("Failed to delete tag %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete tag")
		return
	}

	h.audit(r, "delete", "tag", strconv.FormatUint(uint64(id), 10), tag.Name)
	api.RespondNoContent(w)
}
