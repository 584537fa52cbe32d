package handlers

import (
	"net/http"
	"testing"

	"gorm.io/gorm"

	"github.com/opsimate/opsimate/internal/database"
	"github.com/opsimate/opsimate/internal/integrations"
	"github.com/opsimate/opsimate/internal/providers"
	"github.com/opsimate/opsimate/internal/testhelpers"
)

const testEncryptionKey = "test-encryption-key"

// apiFixture wires an APIHandler against an in-memory database and a mock
// provider connector, serving through a real mux so path parameters resolve.
type apiFixture struct {
	mux       *http.ServeMux
	db        *gorm.DB
	connector *testhelpers.MockConnector
	handler   *APIHandler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := testhelpers.NewTestDB(t)
	if err := database.InitializeDefaults(db); err != nil {
		t.Fatalf("InitializeDefaults failed: %v", err)
	}

	connector := testhelpers.NewMockConnector()
	providerRegistry := providers.NewRegistry()
	providerRegistry.Register(database.ProviderTypeVM, connector)

	integrationRegistry := integrations.NewRegistry()

	handler := NewAPIHandler(db, providerRegistry, integrationRegistry, testEncryptionKey)
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	return &apiFixture{mux: mux, db: db, connector: connector, handler: handler}
}

// seedProvider stores a VM provider directly
func (f *apiFixture) seedProvider(t *testing.T) *database.Provider {
	t.Helper()
	provider := testhelpers.NewProviderBuilder().Build()
	if err := database.CreateProvider(f.db, &provider); err != nil {
		t.Fatalf("failed to seed provider: %v", err)
	}
	return &provider
}

// seedService stores a docker service under the given provider
func (f *apiFixture) seedService(t *testing.T, providerID uint, name string) *database.Service {
	t.Helper()
	service := testhelpers.NewServiceBuilder(providerID).
		WithName(name).
		WithType(database.ServiceTypeDocker).
		Build()
	if err := database.CreateService(f.db, &service); err != nil {
		t.Fatalf("failed to seed service: %v", err)
	}
	return &service
}

func (f *apiFixture) auditCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	f.db.Model(&database.AuditLog{}).Count(&count)
	return count
}
