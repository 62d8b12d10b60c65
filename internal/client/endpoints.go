package client

import (
	"errors"
	"net/http"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/registry"
)

type endpointDefinition struct {
	name string
	path string
	verb string
}

var portalEndpoints = []endpointDefinition{
	{constants.EndpointTokens, "/identity/api/tokens", http.MethodPost},
	{constants.EndpointTokensWithID, "/identity/api/tokens/{tokenId}", http.MethodHead},
	{constants.EndpointTokensWithID, "/identity/api/tokens/{tokenId}", http.MethodDelete},
	{constants.EndpointSubtenants, "/identity/api/tenants/{tenantId}/principals/{userId}/subtenants", http.MethodGet},
	{constants.EndpointEntitledCatalogItems, "/catalog-service/api/consumer/entitledCatalogItems", http.MethodGet},
	{constants.EndpointEntitledCatalogRequestSchema, "/catalog-service/api/consumer/entitledCatalogItems/{catalogId}/requests/schema", http.MethodGet},
	{constants.EndpointEntitledCatalogRequestTemplate, "/catalog-service/api/consumer/entitledCatalogItems/{catalogId}/requests/template", http.MethodGet},
	{constants.EndpointEntitledCatalogRequest, "/catalog-service/api/consumer/entitledCatalogItems/{catalogId}/requests", http.MethodPost},
	{constants.EndpointRequests, "/catalog-service/api/consumer/requests", http.MethodGet},
	{constants.EndpointRequestsWithID, "/catalog-service/api/consumer/requests/{requestId}", http.MethodGet},
	{constants.EndpointResourceViews, "/catalog-service/api/consumer/resourceViews", http.MethodGet},
	{constants.EndpointResourceActionForms, "/catalog-service/api/consumer/resources/{resourceId}/actions/{resourceActionId}/forms/request", http.MethodGet},
	{constants.EndpointResourceActionFormValues, "/catalog-service/api/consumer/resources/{resourceId}/actions/{resourceActionId}/forms/request/{elementId}/values", http.MethodPost},
	{constants.EndpointCostsUpfront, "/composition-service/api/blueprints/{blueprintId}/costs/upfront", http.MethodPost},
}

// registerEndpoints registers every portal endpoint on r.
func registerEndpoints(r *registry.Registry) error {
	var errs []error

	for _, endpoint := range portalEndpoints {
		err := r.RegisterEndpoint(endpoint.name, endpoint.path, endpoint.verb)
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
