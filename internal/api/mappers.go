package api

import "github.com/opsimate/opsimate/internal/database"

// IntegrationToResponse converts a database Integration to its API shape,
// dropping the encrypted credentials blob.
func IntegrationToResponse(i database.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:          i.ID,
		UUID:        i.UUID,
		Name:        i.Name,
		Type:        i.Type,
		ExternalURL: i.ExternalURL,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// IntegrationsToResponses converts a slice of database Integrations.
func IntegrationsToResponses(integrations []database.Integration) []IntegrationResponse {
	items := make([]IntegrationResponse, len(integrations))
	for i, integration := range integrations {
		items[i] = IntegrationToResponse(integration)
	}
	return items
}
