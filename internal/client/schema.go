package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

func schemaCacheKey(catalogID string) string {
	return "schema:" + catalogID
}

// CatalogSchema returns the request schema of a catalog item. Schemas are
// served from the schema cache when present.
func (c *Client) CatalogSchema(ctx context.Context, catalogID string) (*vra.Schema, error) {
	key := schemaCacheKey(catalogID)

	if data, err := c.schemas.Get(ctx, key); err == nil {
		var schema vra.Schema

		if json.Unmarshal(data, &schema) == nil {
			return &schema, nil
		}

		_ = c.schemas.Invalidate(ctx, key)
	}

	call, err := c.registry.BuildRequest(constants.EndpointEntitledCatalogRequestSchema, http.MethodGet, registry.Params{
		Path: map[string]string{"catalogId": catalogID},
	}, nil)
	if err != nil {
		return nil, err
	}

	body, err := call.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting catalog item schema: %w", err)
	}

	var schema vra.Schema

	err = json.Unmarshal(body, &schema)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog item schema: %w", err)
	}

	err = c.schemas.Set(ctx, key, body, constants.SchemaCacheTTL)
	if err != nil {
		c.logger.Warn("Failed to cache catalog item schema", map[string]interface{}{
			"catalog_id": catalogID,
			"error":      err.Error(),
		})
	}

	return &schema, nil
}

// CatalogItemDetail returns the sizing detail of a catalog item.
func (c *Client) CatalogItemDetail(ctx context.Context, catalogID string) (*ItemDetail, error) {
	schema, err := c.CatalogSchema(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	return ItemDetailFromSchema(schema), nil
}
