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

// handleListViews handles GET /api/views
func (h *APIHandler) handleListViews(w http.ResponseWriter, r *http.Request) {
	views, err := database.ListViews(h.db)
	if err != nil {
		log.Printf("Failed to list views: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list views")
		return
	}
	api.RespondJSON(w, http.StatusOK, views)
}

// handleCreateView handles POST /api/views
func (h *APIHandler) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req api.SaveViewRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	view := &database.View{
		Name:      req.Name,
		Filters:   req.Filters,
		CreatedBy: h.actor(r),
	}
	if err := database.CreateView(h.db, view); err != nil {
		log.Printf("Failed to create view: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to create view")
		return
	}

	h.audit(r, "create", "view", strconv.FormatUint(uint64(view.ID), 10), view.Name)
	api.RespondJSON(w, http.StatusCreated, view)
}

// handleGetView handles GET /api/views/{id}
func (h *APIHandler) handleGetView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := database.GetView(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "View not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get view")
		return
	}
	api.RespondJSON(w, http.StatusOK, view)
}

// handleUpdateView handles PUT /api/views/{id}
func (h *APIHandler) handleUpdateView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.SaveViewRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	view, err := database.GetView(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "View not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get view")
		return
	}

	view.Name = req.Name
	view.Filters = req.Filters

	if err := database.UpdateView(h.db, view); err != nil {
		log.Printf("Failed to update view %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update view")
		return
	}

	h.audit(r, "update", "view", strconv.FormatUint(uint64(id), 10), view.Name)
	api.RespondJSON(w, http.StatusOK, view)
}

// handleDeleteView handles DELETE /api/views/{id}
func (h *APIHandler) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := database.GetView(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "View not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get view")
		return
	}
	if view.IsDefault {
		api.RespondError(w, http.StatusBadRequest, "Cannot delete the default view")
		return
	}

	if err := database.DeleteView(h.db, id); err != nil {
		log.Printf("Failed to delete view %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete view")
		return
	}

	h.audit(r, "delete", "view", strconv.FormatUint(uint64(id), 10), view.Name)
	api.RespondNoContent(w)
}

// handleSetDefaultView handles POST /api/views/{id}/default
func (h *APIHandler) handleSetDefaultView(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := database.GetView(h.db, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "View not found")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to get view")
		return
	}

	if err := database.SetDefaultView(h.db, id); err != nil {
		log.Printf("Failed to set default view %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to set default view")
		return
	}

	h.audit(r, "update", "view", strconv.FormatUint(uint64(id), 10), "set default")
	api.RespondNoContent(w)
}

// handleListCustomFields handles GET /api/custom-fields
func (h *APIHandler) handleListCustomFields(w http.ResponseWriter, r *http.Request) {
	fields, err := database.ListCustomFields(h.db)
	if err != nil {
		log.Printf("Failed to list custom fields: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list custom fields")
		return
	}
	api.RespondJSON(w, http.StatusOK, fields)
}

// handleCreateCustomField handles POST /api/custom-fields
func (h *APIHandler) handleCreateCustomField(w http.ResponseWriter, r *http.Request) {
	var req api.CreateCustomFieldRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	field := &database.CustomField{Name: req.Name}
	if err := database.CreateCustomField(h.db, field); err != nil {
		log.Printf("Failed to create custom field %q: %v", req.Name, err)
		api.RespondError(w, http.StatusConflict, "Custom field name already exists")
		return
	}

	h.audit(r, "create", "custom_field", strconv.FormatUint(uint64(field.ID), 10), field.Name)
	api.RespondJSON(w, http.StatusCreated, field)
}

// handleUpdateCustomField handles PUT /api/custom-fields/{id}
func (h *APIHandler) handleUpdateCustomField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req api.CreateCustomFieldRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	field := &database.CustomField{ID: id, Name: req.Name}
	if err := database.UpdateCustomField(h.db, field); err != nil {
		log.Printf("Failed to update custom field %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to update custom field")
		return
	}

	h.audit(r, "update", "custom_field", strconv.FormatUint(uint64(id), 10), req.Name)
	api.RespondJSON(w, http.StatusOK, field)
}

// handleDeleteCustomField handles DELETE /api/custom-fields/{id}. Stored
// values on services are removed along with the field.
func (h *APIHandler) handleDeleteCustomField(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := database.DeleteCustomField(h.db, id); err != nil {
		log.Printf("Failed to delete custom field %d: %v", id, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete custom field")
		return
	}

	h.audit(r, "delete", "custom_field", strconv.FormatUint(uint64(id), 10), "")
	api.RespondNoContent(w)
}
