package api

import (
	"time"

	"github.com/opsimate/opsimate/internal/database"
)

// ========== Provider Types ==========

// CreateProviderRequest is the request body for POST /api/providers.
type CreateProviderRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=255"`
	Type       string `json:"type" validate:"required,oneof=vm k8s"`
	Host       string `json:"host" validate:"omitempty,max=255"`
	Port       int    `json:"port" validate:"omitempty,min=1,max=65535"`
	Username   string `json:"username" validate:"omitempty,max=255"`
	PrivateKey string `json:"private_key"`
	Kubeconfig string `json:"kubeconfig"`
}

// UpdateProviderRequest is the request body for PUT /api/providers/:id.
// Pointer fields distinguish "not sent" from "set to zero value".
type UpdateProviderRequest struct {
	Name       *string `json:"name"`
	Host       *string `json:"host"`
	Port       *int    `json:"port"`
	Username   *string `json:"username"`
	PrivateKey *string `json:"private_key"`
	Kubeconfig *string `json:"kubeconfig"`
}

// BulkAddServicesRequest is the request body for POST /api/providers/:id/services.
// It carries the subset of discovered services the operator chose to track.
type BulkAddServicesRequest struct {
	Services []BulkServiceEntry `json:"services" validate:"required,min=1,dive"`
}

// BulkServiceEntry is one service to persist from a discovery result.
type BulkServiceEntry struct {
	Name             string         `json:"name" validate:"required,min=1,max=255"`
	Type             string         `json:"type" validate:"required,oneof=MANUAL DOCKER SYSTEMD K8S"`
	Status           string         `json:"status"`
	IP               string         `json:"ip"`
	ContainerDetails database.JSONB `json:"container_details"`
}

// ========== Service Types ==========

// CreateServiceRequest is the request body for POST /api/services.
type CreateServiceRequest struct {
	ProviderID       uint           `json:"provider_id" validate:"required"`
	Name             string         `json:"name" validate:"required,min=1,max=255"`
	Type             string         `json:"type" validate:"required,oneof=MANUAL DOCKER SYSTEMD K8S"`
	IP               string         `json:"ip"`
	ContainerDetails database.JSONB `json:"container_details"`
}

// UpdateServiceRequest is the request body for PUT /api/services/:id.
type UpdateServiceRequest struct {
	Name             *string         `json:"name"`
	IP               *string         `json:"ip"`
	ContainerDetails *database.JSONB `json:"container_details"`
}

// ServiceResponse is a service enriched with its alert correlation result.
type ServiceResponse struct {
	database.Service
	Alerts      []database.Alert `json:"alerts"`
	AlertsCount int              `json:"alerts_count"`
}

// ServiceActionResult summarizes a start or stop across several services.
type ServiceActionResult struct {
	Requested int      `json:"requested"`
	Succeeded int      `json:"succeeded"`
	Message   string   `json:"message"`
	Failures  []string `json:"failures,omitempty"`
}

// ========== Tag Types ==========

// CreateTagRequest is the request body for POST /api/tags.
type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=255"`
	Color string `json:"color" validate:"omitempty,max=32"`
}

// UpdateTagRequest is the request body for PUT /api/tags/:id.
type UpdateTagRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// ========== Integration Types ==========

// CreateIntegrationRequest is the request body for POST /api/integrations.
// Credentials is a plain key-value map; it is encrypted before storage and
// never echoed back.
type CreateIntegrationRequest struct {
	Name        string            `json:"name" validate:"required,min=1,max=255"`
	Type        string            `json:"type" validate:"required,oneof=grafana kibana datadog"`
	ExternalURL string            `json:"external_url" validate:"required,url"`
	Credentials map[string]string `json:"credentials"`
}

// UpdateIntegrationRequest is the request body for PUT /api/integrations/:id.
// An absent or empty Credentials map keeps the stored credentials.
type UpdateIntegrationRequest struct {
	Name        *string           `json:"name"`
	ExternalURL *string           `json:"external_url" validate:"omitempty,url"`
	Credentials map[string]string `json:"credentials"`
}

// IntegrationResponse is an integration without its credentials.
type IntegrationResponse struct {
	ID          uint                     `json:"id"`
	UUID        string                   `json:"uuid"`
	Name        string                   `json:"name"`
	Type        database.IntegrationType `json:"type"`
	ExternalURL string                   `json:"external_url"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// ========== View Types ==========

// SaveViewRequest is the request body for POST /api/views and PUT /api/views/:id.
type SaveViewRequest struct {
	Name    string         `json:"name" validate:"required,min=1,max=255"`
	Filters database.JSONB `json:"filters"`
}

// ========== Custom Field Types ==========

// CreateCustomFieldRequest is the request body for POST /api/custom-fields.
type CreateCustomFieldRequest struct {
	Name string `json:"name" validate:"required,min=1,max=255"`
}

// SetCustomFieldValueRequest is the request body for
// PUT /api/services/:id/custom-fields/:fieldID.
type SetCustomFieldValueRequest struct {
	Value string `json:"value"`
}

// ========== Auth Types ==========

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// ========== Settings Types ==========

// UpdateSlackSettingsRequest is the request body for PUT /api/settings/slack.
type UpdateSlackSettingsRequest struct {
	BotToken      *string `json:"bot_token"`
	AlertsChannel *string `json:"alerts_channel"`
	Enabled       *bool   `json:"enabled"`
}

// ========== Pagination Types ==========

// PaginationMeta contains pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps a list response with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}
