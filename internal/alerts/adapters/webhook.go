package adapters

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/database"
)

// SourceTypeCustom is the source type for the generic HTTP webhook
const SourceTypeCustom = "custom"

var validate = newValidator()

// newValidator builds a validator that reports errors under the payload's
// JSON field names rather than Go struct field names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// WebhookAdapter handles the generic HTTP webhook with a strict schema
type WebhookAdapter struct{}

// NewWebhookAdapter creates a new generic webhook adapter
func NewWebhookAdapter() *WebhookAdapter {
	return &WebhookAdapter{}
}

// SourceType returns the source type name
func (a *WebhookAdapter) SourceType() string {
	return SourceTypeCustom
}

// WebhookPayload is the strict schema for the generic webhook. Either the
// structured tags map or the legacy bare tag string must be present.
type WebhookPayload struct {
	ID         string            `json:"id" validate:"required"`
	Status     string            `json:"status"`
	Tags       map[string]string `json:"tags" validate:"required_without=Tag"`
	Tag        string            `json:"tag" validate:"required_without=Tags"`
	StartsAt   string            `json:"startsAt" validate:"required"`
	UpdatedAt  string            `json:"updatedAt" validate:"required"`
	CreatedAt  string            `json:"createdAt" validate:"required"`
	AlertURL   string            `json:"alertUrl" validate:"required,url"`
	AlertName  string            `json:"alertName" validate:"required"`
	Summary    string            `json:"summary"`
	RunbookURL string            `json:"runbookUrl" validate:"omitempty,url"`
	ServiceID  *uint             `json:"serviceId"`
}

// Parse validates the payload against the schema and maps it to the canonical
// alert. Every violated field is reported, not just the first.
func (a *WebhookAdapter) Parse(body []byte) ([]alerts.ParsedAlert, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &alerts.ValidationError{Fields: map[string]string{"body": "must be valid JSON"}}
	}

	fieldErrors := make(map[string]string)

	if err := validate.Struct(payload); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fieldErrors[fe.Field()] = validationMessage(fe)
			}
		} else {
			fieldErrors["body"] = err.Error()
		}
	}

	startsAt := parseISOField(payload.StartsAt, "startsAt", fieldErrors)
	updatedAt := parseISOField(payload.UpdatedAt, "updatedAt", fieldErrors)
	createdAt := parseISOField(payload.CreatedAt, "createdAt", fieldErrors)

	if len(fieldErrors) > 0 {
		return nil, &alerts.ValidationError{Fields: fieldErrors}
	}

	status := payload.Status
	if status == "" {
		status = "firing"
	}

	// Legacy bare-string inputs set only the primary tag; structured inputs
	// set the map and derive the primary tag from it.
	tag := payload.Tag
	if tag == "" {
		tag = alerts.PrimaryTag(payload.Tags)
	}

	alert := database.Alert{
		ID:         payload.ID,
		Status:     status,
		SourceType: SourceTypeCustom,
		Tag:        tag,
		Tags:       alerts.TagMap(payload.Tags),
		ServiceID:  payload.ServiceID,
		StartsAt:   startsAt,
		AlertURL:   payload.AlertURL,
		AlertName:  payload.AlertName,
		Summary:    payload.Summary,
		RunbookURL: payload.RunbookURL,
		// Source timestamps win over ingest time; gorm only fills these
		// when they are zero.
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}

	return []alerts.ParsedAlert{{Alert: alert}}, nil
}

// parseISOField parses an ISO-8601 date string, recording a field error on
// failure. Validation has already required the field to be present.
func parseISOField(value, field string, fieldErrors map[string]string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		fieldErrors[field] = "must be an ISO-8601 date string"
		return time.Time{}
	}
	return t.UTC()
}

// validationMessage returns a human-readable message for a validation error
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + strings.ToLower(fe.Param()) + " is absent"
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
