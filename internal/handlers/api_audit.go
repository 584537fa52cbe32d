package handlers

import (
	"log"
	"net/http"

	"github.com/opsimate/opsimate/internal/api"
	"github.com/opsimate/opsimate/internal/database"
)

// handleListAuditLogs handles GET /api/audit-logs with page/per_page
// pagination, newest entries first.
func (h *APIHandler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	p := api.ParsePagination(r)

	var total int64
	if err := h.db.Model(&database.AuditLog{}).Count(&total).Error; err != nil {
		log.Printf("Failed to count audit logs: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}

	var entries []database.AuditLog
	if err := h.db.Order("created_at desc").
		Offset(p.Offset()).
		Limit(p.PerPage).
		Find(&entries).Error; err != nil {
		log.Printf("Failed to list audit logs: %v", err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to list audit logs")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
		Data: entries,
		Pagination: api.PaginationMeta{
			Page:       p.Page,
			PerPage:    p.PerPage,
			Total:      total,
			TotalPages: p.TotalPages(total),
		},
	})
}
