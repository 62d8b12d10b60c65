package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fivetwenty-io/vra/internal/async"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/internal/table"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// Static errors for err113 compliance.
var (
	ErrRequestFailed = errors.New("request failed")
)

type requestListing struct {
	client *Client
}

func (requestListing) Endpoint() string { return constants.EndpointRequests }

func (l requestListing) Filters() []string {
	return []string{
		vra.EqFilter("catalogItem/providerBinding/provider/providerType", constants.CompositionProviderType),
		vra.EqFilter("requestedBy", l.client.Username()),
	}
}

func (requestListing) DefaultSort() (string, bool) { return "requestNumber", true }
func (requestListing) SearchField() string         { return "catalogItem/name" }
func (requestListing) ExtendedData() bool          { return false }
func (requestListing) Operations() bool            { return false }

func (l requestListing) RenderRow(ctx context.Context, row vra.Request) *RequestItem {
	return newRequestItem(ctx, l.client, row)
}

// Requests creates the listing of blueprint requests made by the session
// user, newest first.
func (c *Client) Requests(opts ...table.Option) *table.View[vra.Request, *RequestItem] {
	return table.New[vra.Request, *RequestItem](c.registry, requestListing{client: c}, c.viewOptions(opts)...)
}

// RequestDetail is what a request resolved to. Sizing comes from the
// request data and falls back to the catalog item schema.
type RequestDetail struct {
	CPU        any    `json:"cpu,omitempty"         yaml:"cpu,omitempty"`
	Memory     any    `json:"memory,omitempty"      yaml:"memory,omitempty"`
	Storage    any    `json:"storage,omitempty"     yaml:"storage,omitempty"`
	CostCenter any    `json:"cost_center,omitempty" yaml:"cost_center,omitempty"`
	LeaseDays  any    `json:"lease_days,omitempty"  yaml:"lease_days,omitempty"`
	DailyCost  string `json:"daily_cost,omitempty"  yaml:"daily_cost,omitempty"`
}

// RequestItem is the companion of one request row.
type RequestItem struct {
	request vra.Request
	detail  *async.Future[*RequestDetail]
}

func newRequestItem(ctx context.Context, client *Client, request vra.Request) *RequestItem {
	item := &RequestItem{request: request}

	item.detail = async.Go(ctx, func(ctx context.Context) (*RequestDetail, error) {
		catalogDetail, err := client.CatalogItemDetail(ctx, request.CatalogItemRef.ID)
		if err != nil {
			return nil, err
		}

		return ResolveRequestDetail(request, catalogDetail), nil
	})

	return item
}

// Request returns the listing row.
func (i *RequestItem) Request() vra.Request {
	return i.request
}

// Name returns the requested item name.
func (i *RequestItem) Name() string {
	return i.request.RequestedItemName
}

// Detail waits for the resolved request detail.
func (i *RequestItem) Detail(ctx context.Context) (*RequestDetail, error) {
	return i.detail.Wait(ctx)
}

// ResolveRequestDetail combines a request with the detail of its catalog
// item schema.
func ResolveRequestDetail(request vra.Request, catalogDetail *ItemDetail) *RequestDetail {
	if catalogDetail == nil {
		catalogDetail = &ItemDetail{}
	}

	machine := catalogDetail.BlueprintMachineName
	detail := &RequestDetail{
		CPU:        orElse(requestProperty(request.RequestData, machine, "cpu"), catalogDetail.CPU),
		Memory:     orElse(requestProperty(request.RequestData, machine, "memory"), catalogDetail.Memory),
		Storage:    orElse(requestProperty(request.RequestData, machine, "storage"), catalogDetail.Storage),
		CostCenter: requestProperty(request.RequestData, machine, constants.CostCenterField),
	}

	if request.Quote.LeasePeriod != nil {
		detail.LeaseDays = request.Quote.LeasePeriod.Amount
	}

	if request.Quote.LeaseRate != nil {
		detail.DailyCost = "$" + vra.Stringify(request.Quote.LeaseRate.Cost.Amount)
	}

	return detail
}

// requestProperty reads a machine property from request data, where each
// machine is stored under "provider-<machine>" as a nested literal map.
func requestProperty(data vra.LiteralMap, machine, property string) any {
	machineData, ok := data.Lookup(constants.ProviderFieldPrefix + machine)
	if !ok {
		return nil
	}

	component, ok := machineData.(map[string]any)
	if !ok {
		return nil
	}

	values, ok := component["values"].(map[string]any)
	if !ok {
		return nil
	}

	entries, ok := values["entries"].([]any)
	if !ok {
		return nil
	}

	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok || entry["key"] != property {
			continue
		}

		typed, ok := entry["value"].(map[string]any)
		if !ok {
			return nil
		}

		return typed["value"]
	}

	return nil
}

// orElse returns value unless it is empty, zero or nil.
func orElse(value, fallback any) any {
	switch typed := value.(type) {
	case nil:
		return fallback
	case string:
		if typed == "" {
			return fallback
		}
	case float64:
		if typed == 0 {
			return fallback
		}
	case bool:
		if !typed {
			return fallback
		}
	}

	return value
}

// GetRequest fetches one request by id.
func (c *Client) GetRequest(ctx context.Context, id string) (*vra.Request, error) {
	call, err := c.registry.BuildRequest(constants.EndpointRequestsWithID, http.MethodGet, registry.Params{
		Path: map[string]string{"requestId": id},
	}, nil)
	if err != nil {
		return nil, err
	}

	var request vra.Request

	err = call.Decode(ctx, &request)
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}

	return &request, nil
}

// WaitForRequest polls a request until it reaches a terminal state.
func (c *Client) WaitForRequest(ctx context.Context, id string, interval time.Duration) (*vra.Request, error) {
	if interval <= 0 {
		interval = constants.DefaultPollInterval
	}

	pollCtx, cancel := context.WithTimeout(ctx, constants.DefaultRequestPollTimeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		request, err := c.GetRequest(pollCtx, id)
		if err != nil {
			return nil, err
		}

		if isRequestComplete(request) {
			if isRequestFailed(request) {
				return request, fmt.Errorf("%w: %s", ErrRequestFailed, request.State)
			}

			return request, nil
		}

		select {
		case <-pollCtx.Done():
			return request, fmt.Errorf("timeout waiting for request to complete: %w", pollCtx.Err())
		case <-ticker.C:
		}
	}
}

func isRequestComplete(request *vra.Request) bool {
	switch strings.ToUpper(request.State) {
	case constants.RequestStateSuccessful, constants.RequestStatePartiallySuccessful,
		constants.RequestStateFailed, constants.RequestStateRejected:
		return true
	default:
		return false
	}
}

func isRequestFailed(request *vra.Request) bool {
	state := strings.ToUpper(request.State)

	return state == constants.RequestStateFailed || state == constants.RequestStateRejected
}
