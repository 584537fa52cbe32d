package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONB is a custom type for JSON blob columns (jsonb on PostgreSQL, TEXT on SQLite)
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ProviderType represents the kind of infrastructure a provider exposes
type ProviderType string

const (
	ProviderTypeVM         ProviderType = "vm"
	ProviderTypeKubernetes ProviderType = "k8s"
)

// Provider represents a reachable host or cluster OpsiMate can connect to
type Provider struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UUID      string       `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name      string       `gorm:"size:128;not null" json:"name"`
	Type      ProviderType `gorm:"type:varchar(20);not null;index" json:"type"`
	Host      string       `gorm:"size:255" json:"host"`
	Port      int          `gorm:"default:22" json:"port"`
	Username  string       `gorm:"size:128" json:"username"`
	PrivateKey string      `gorm:"type:text" json:"-"` // SSH private key (vm providers), never exposed in JSON
	Kubeconfig string      `gorm:"type:text" json:"-"` // kubeconfig YAML (k8s providers), never exposed in JSON
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	// Relationships
	Services []Service `gorm:"foreignKey:ProviderID;constraint:OnDelete:CASCADE" json:"services,omitempty"`
}

// ServiceType discriminates how a service was registered and how it is operated
type ServiceType string

const (
	ServiceTypeManual     ServiceType = "MANUAL"
	ServiceTypeDocker     ServiceType = "DOCKER"
	ServiceTypeSystemd    ServiceType = "SYSTEMD"
	ServiceTypeKubernetes ServiceType = "K8S"
)

// ServiceStatus is the last known operational status of a service
type ServiceStatus string

const (
	ServiceStatusRunning ServiceStatus = "running"
	ServiceStatusStopped ServiceStatus = "stopped"
	ServiceStatusError   ServiceStatus = "error"
	ServiceStatusUnknown ServiceStatus = "unknown"
)

// Service is a discovered or manually-registered unit of work on a provider
type Service struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	ProviderID       uint          `gorm:"not null;index" json:"provider_id"`
	Name             string        `gorm:"size:255;not null" json:"name"`
	Type             ServiceType   `gorm:"type:varchar(20);not null" json:"type"`
	Status           ServiceStatus `gorm:"type:varchar(20);not null;default:'unknown'" json:"status"`
	IP               string        `gorm:"size:64" json:"ip"`
	ContainerDetails JSONB         `gorm:"type:jsonb" json:"container_details"` // image, namespace, container id
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// Relationships
	Provider Provider `gorm:"foreignKey:ProviderID" json:"-"`
	Tags     []Tag    `gorm:"many2many:service_tags;" json:"tags,omitempty"`
}

// Tag is a user-defined label used for service organization and alert correlation
type Tag struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Color     string    `gorm:"size:16" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceTag is the join table between services and tags.
// GORM auto-manages this table via the many2many:service_tags tag
type ServiceTag struct {
	ServiceID uint      `gorm:"primaryKey" json:"service_id"`
	TagID     uint      `gorm:"primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// IntegrationType represents a supported external monitoring system
type IntegrationType string

const (
	IntegrationTypeGrafana IntegrationType = "grafana"
	IntegrationTypeKibana  IntegrationType = "kibana"
	IntegrationTypeDatadog IntegrationType = "datadog"
)

// Integration is a configured connection to an external dashboard/monitoring system
type Integration struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UUID        string          `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Name        string          `gorm:"uniqueIndex;size:128;not null" json:"name"`
	Type        IntegrationType `gorm:"type:varchar(20);not null;index" json:"type"`
	ExternalURL string          `gorm:"size:512;not null" json:"external_url"`
	Credentials string          `gorm:"type:text" json:"-"` // AES-GCM encrypted JSON blob, never exposed
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// View stores a saved filter configuration for the dashboard
type View struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Filters   JSONB     `gorm:"type:jsonb" json:"filters"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	CreatedBy string    `gorm:"size:128" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CustomField is a user-defined field attachable to any service
type CustomField struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:128;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ServiceCustomField holds a custom field value for one service
type ServiceCustomField struct {
	ServiceID     uint      `gorm:"primaryKey" json:"service_id"`
	CustomFieldID uint      `gorm:"primaryKey" json:"custom_field_id"`
	Value         string    `gorm:"type:text" json:"value"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// AuditLog records a mutating operation performed through the API
type AuditLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Actor        string    `gorm:"size:128" json:"actor"`
	Action       string    `gorm:"size:64;not null;index" json:"action"` // create, update, delete, start, stop
	ResourceType string    `gorm:"size:64;not null;index" json:"resource_type"`
	ResourceID   string    `gorm:"size:64" json:"resource_id"`
	ResourceName string    `gorm:"size:255" json:"resource_name"`
	Details      JSONB     `gorm:"type:jsonb" json:"details"`
	CreatedAt    time.Time `json:"created_at"`
}

// SlackSettings stores the optional Slack notification configuration
type SlackSettings struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	BotToken      string    `gorm:"type:text" json:"bot_token"`
	AlertsChannel string    `gorm:"size:255" json:"alerts_channel"`
	Enabled       bool      `gorm:"default:false" json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsActive returns true if Slack notifications are enabled and configured
func (s *SlackSettings) IsActive() bool {
	return s.Enabled && s.BotToken != "" && s.AlertsChannel != ""
}

// TableName overrides for explicit table naming
func (Provider) TableName() string {
	return "providers"
}

func (Service) TableName() string {
	return "services"
}

func (Tag) TableName() string {
	return "tags"
}

func (ServiceTag) TableName() string {
	return "service_tags"
}

func (Integration) TableName() string {
	return "integrations"
}

func (View) TableName() string {
	return "views"
}

func (CustomField) TableName() string {
	return "custom_fields"
}

func (ServiceCustomField) TableName() string {
	return "service_custom_fields"
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (SlackSettings) TableName() string {
	return "slack_settings"
}
