package api

import (
	"testing"
)

// Mirrors the shape of the real request types: json tags carry the wire names
type integrationForm struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Type        string `json:"type" validate:"omitempty,oneof=grafana kibana datadog"`
	ExternalURL string `json:"external_url" validate:"omitempty,url"`
	Contact     string `json:"contact" validate:"omitempty,email"`
}

func TestValidate_ValidInput(t *testing.T) {
	form := integrationForm{
		Name:        "prod-grafana",
		Type:        "grafana",
		ExternalURL: "https://grafana.example.com",
	}
	if errs := Validate(form); errs != nil {
		t.Errorf("expected no errors, got %v", errs)
	}
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	form := integrationForm{Name: "prod-grafana", ExternalURL: "not a url"}
	errs := Validate(form)
	if errs == nil {
		t.Fatal("expected validation errors")
	}

	// Violations are keyed by the wire name, not the Go field name
	if errs["external_url"] != "must be a valid URL" {
		t.Errorf("external_url error = %q, want %q", errs["external_url"], "must be a valid URL")
	}
	if _, ok := errs["ExternalURL"]; ok {
		t.Error("Go field names must not leak into error details")
	}
}

func TestValidate_Messages(t *testing.T) {
	tests := []struct {
		name    string
		form    integrationForm
		field   string
		message string
	}{
		{
			name:    "missing required",
			form:    integrationForm{},
			field:   "name",
			message: "is required",
		},
		{
			name:    "over max length",
			form:    integrationForm{Name: string(make([]byte, 65))},
			field:   "name",
			message: "must be at most 64 characters",
		},
		{
			name:    "invalid oneof",
			form:    integrationForm{Name: "x", Type: "splunk"},
			field:   "type",
			message: "must be one of: grafana kibana datadog",
		},
		{
			name:    "invalid email",
			form:    integrationForm{Name: "x", Contact: "not-an-email"},
			field:   "contact",
			message: "must be a valid email",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.form)
			if errs == nil {
				t.Fatal("expected validation errors")
			}
			if errs[tt.field] != tt.message {
				t.Errorf("errs[%q] = %q, want %q", tt.field, errs[tt.field], tt.message)
			}
		})
	}
}

func TestValidate_OmitsEmptyOptional(t *testing.T) {
	if errs := Validate(integrationForm{Name: "prod-grafana"}); errs != nil {
		t.Errorf("expected no errors for empty optional fields, got %v", errs)
	}
}

func TestValidate_UntaggedFieldFallsBackToSnakeCase(t *testing.T) {
	var form struct {
		DisplayName string `validate:"required"`
	}
	errs := Validate(form)
	if errs == nil {
		t.Fatal("expected validation errors")
	}
	if errs["display_name"] != "is required" {
		t.Errorf("errs = %v, want a display_name entry", errs)
	}
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Name", "name"},
		{"FirstName", "first_name"},
		{"simple", "simple"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := snakeCase(tt.input); got != tt.expected {
			t.Errorf("snakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
