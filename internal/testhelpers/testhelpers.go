// Package testhelpers provides reusable testing utilities for OpsiMate.
//
// This package contains:
// - HTTP test helpers (creating test requests, asserting responses)
// - An in-memory test database constructor
// - Mock implementations (alert adapters, provider connectors)
// - Test data builders
package testhelpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsimate/opsimate/internal/alerts"
	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/providers"
)

// ========================================
// Database Test Helpers
// ========================================

// NewTestDB opens an in-memory SQLite database with all migrations applied
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

// ========================================
// HTTP Test Helpers
// ========================================

// HTTPTestContext holds components for HTTP handler testing
type HTTPTestContext struct {
	T        *testing.T
	Recorder *httptest.ResponseRecorder
	Request  *http.Request
}

// NewHTTPTestContext creates a new HTTP test context
func NewHTTPTestContext(t *testing.T, method, path string, body io.Reader) *HTTPTestContext {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	return &HTTPTestContext{
		T:        t,
		Recorder: httptest.NewRecorder(),
		Request:  req,
	}
}

// WithHeader adds a header to the request
func (ctx *HTTPTestContext) WithHeader(key, value string) *HTTPTestContext {
	ctx.Request.Header.Set(key, value)
	return ctx
}

// WithJSONBody sets JSON body on the request
func (ctx *HTTPTestContext) WithJSONBody(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		ctx.T.Fatalf("failed to marshal JSON body: %v", err)
	}
	ctx.Request = httptest.NewRequest(ctx.Request.Method, ctx.Request.URL.String(), bytes.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx
}

// WithBearerToken adds Authorization Bearer header
func (ctx *HTTPTestContext) WithBearerToken(token string) *HTTPTestContext {
	return ctx.WithHeader("Authorization", "Bearer "+token)
}

// Execute runs the handler and returns the response
func (ctx *HTTPTestContext) Execute(handler http.Handler) *HTTPTestContext {
	handler.ServeHTTP(ctx.Recorder, ctx.Request)
	return ctx
}

// ExecuteFunc runs the handler func and returns the response
func (ctx *HTTPTestContext) ExecuteFunc(handler http.HandlerFunc) *HTTPTestContext {
	handler(ctx.Recorder, ctx.Request)
	return ctx
}

// AssertStatus checks the response status code
func (ctx *HTTPTestContext) AssertStatus(expected int) *HTTPTestContext {
	ctx.T.Helper()
	if ctx.Recorder.Code != expected {
		ctx.T.Errorf("expected status %d, got %d. Body: %s", expected, ctx.Recorder.Code, ctx.Recorder.Body.String())
	}
	return ctx
}

// AssertBodyContains checks if response body contains substring
func (ctx *HTTPTestContext) AssertBodyContains(substr string) *HTTPTestContext {
	ctx.T.Helper()
	body := ctx.Recorder.Body.String()
	if !strings.Contains(body, substr) {
		ctx.T.Errorf("expected body to contain %q, got: %s", substr, body)
	}
	return ctx
}

// DecodeJSON decodes response body as JSON
func (ctx *HTTPTestContext) DecodeJSON(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	if err := json.NewDecoder(ctx.Recorder.Body).Decode(v); err != nil {
		ctx.T.Fatalf("failed to decode JSON response: %v", err)
	}
	return ctx
}

// ========================================
// Mock Alert Adapter
// ========================================

// MockAlertAdapter implements alerts.Adapter for testing
type MockAlertAdapter struct {
	Source       string
	ParsedAlerts []alerts.ParsedAlert
	ParseError   error
	ParseCalled  bool
}

// NewMockAlertAdapter creates a new mock adapter
func NewMockAlertAdapter(sourceType string) *MockAlertAdapter {
	return &MockAlertAdapter{
		Source:       sourceType,
		ParsedAlerts: []alerts.ParsedAlert{},
	}
}

// SourceType returns the source type
func (m *MockAlertAdapter) SourceType() string {
	return m.Source
}

// Parse returns the configured alerts or error
func (m *MockAlertAdapter) Parse(body []byte) ([]alerts.ParsedAlert, error) {
	m.ParseCalled = true
	if m.ParseError != nil {
		return nil, m.ParseError
	}
	return m.ParsedAlerts, nil
}

// WithAlerts configures alerts to return from Parse
func (m *MockAlertAdapter) WithAlerts(parsed ...alerts.ParsedAlert) *MockAlertAdapter {
	m.ParsedAlerts = parsed
	return m
}

// WithParseError configures Parse to return an error
func (m *MockAlertAdapter) WithParseError(err error) *MockAlertAdapter {
	m.ParseError = err
	return m
}

// ========================================
// Mock Provider Connector
// ========================================

// MockConnector implements providers.Connector for testing. Every method
// returns the configured results; call counts are recorded for assertions.
type MockConnector struct {
	Discovered    []providers.DiscoveredService
	DiscoverError error
	Status        database.ServiceStatus
	ProbeError    error
	ActionError   error
	Logs          []string
	LogsError     error

	DiscoverCalls int
	ProbeCalls    int
	StartCalls    int
	StopCalls     int
	LogsCalls     int
}

// NewMockConnector creates a mock connector reporting everything as running
func NewMockConnector() *MockConnector {
	return &MockConnector{Status: database.ServiceStatusRunning}
}

func (m *MockConnector) DiscoverServices(ctx context.Context, provider *database.Provider) ([]providers.DiscoveredService, error) {
	m.DiscoverCalls++
	if m.DiscoverError != nil {
		return nil, m.DiscoverError
	}
	return m.Discovered, nil
}

func (m *MockConnector) StartService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	m.StartCalls++
	return m.ActionError
}

func (m *MockConnector) StopService(ctx context.Context, provider *database.Provider, service *database.Service) error {
	m.StopCalls++
	return m.ActionError
}

func (m *MockConnector) ProbeStatus(ctx context.Context, provider *database.Provider, service *database.Service) (database.ServiceStatus, error) {
	m.ProbeCalls++
	if m.ProbeError != nil {
		return database.ServiceStatusUnknown, m.ProbeError
	}
	return m.Status, nil
}

func (m *MockConnector) ServiceLogs(ctx context.Context, provider *database.Provider, service *database.Service) ([]string, error) {
	m.LogsCalls++
	if m.LogsError != nil {
		return nil, m.LogsError
	}
	return m.Logs, nil
}

// ========================================
// Timing Helpers
// ========================================

// MustCompleteWithin fails the test if the function takes longer than the timeout
func MustCompleteWithin(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()

	select {
	case <-done:
		return
	case <-time.After(timeout):
		t.Fatalf("function did not complete within %v", timeout)
	}
}
