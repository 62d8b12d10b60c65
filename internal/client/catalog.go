package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"

	"github.com/mohae/deepcopy"

	"github.com/fivetwenty-io/vra/internal/async"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/pipeline"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/internal/table"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// Static errors for err113 compliance.
var (
	ErrNoBlueprintMachine = errors.New("catalog item schema has no blueprint machine")
	ErrNoCostAvailable    = errors.New("no total cost in upfront cost response")
)

var blueprintIDPattern = regexp.MustCompile(`!([\w\-]*)$`)

func (c *Client) viewOptions(opts []table.Option) []table.Option {
	return append([]table.Option{
		table.WithPageSize(c.pageSize),
		table.WithNotifier(c.notifier),
		table.WithLogger(c.logger),
	}, opts...)
}

type catalogListing struct {
	catalog *Catalog
}

func (catalogListing) Endpoint() string { return constants.EndpointEntitledCatalogItems }

func (catalogListing) Filters() []string {
	return []string{vra.EqFilter("catalogItemType/name", constants.CompositeBlueprintType)}
}

func (catalogListing) DefaultSort() (string, bool) { return "name", false }
func (catalogListing) SearchField() string         { return "name" }
func (catalogListing) ExtendedData() bool          { return false }
func (catalogListing) Operations() bool            { return false }

func (l catalogListing) RenderRow(ctx context.Context, row vra.CatalogEntitlement) *CatalogItem {
	return newCatalogItem(ctx, l.catalog.client, row, l.catalog.BusinessGroupID())
}

// Catalog is the listing of blueprint catalog items entitled to the
// selected business group.
type Catalog struct {
	*table.View[vra.CatalogEntitlement, *CatalogItem]

	client          *Client
	mu              sync.RWMutex
	businessGroupID string
}

// Catalog creates the catalog listing. Nothing is fetched until Refresh.
func (c *Client) Catalog(opts ...table.Option) *Catalog {
	catalog := &Catalog{
		client:          c,
		businessGroupID: c.BusinessGroupID(),
	}

	catalog.View = table.New[vra.CatalogEntitlement, *CatalogItem](c.registry, catalogListing{catalog: catalog}, c.viewOptions(opts)...)
	catalog.Pipeline().AddStage(pipeline.Filter(catalog.entitled))

	return catalog
}

// entitled keeps rows entitled to the selected business group. Without a
// selection every row is kept.
func (c *Catalog) entitled(row vra.CatalogEntitlement) bool {
	businessGroupID := c.BusinessGroupID()

	return businessGroupID == "" || row.EntitledTo(businessGroupID)
}

// BusinessGroupID returns the business group rows are filtered by.
func (c *Catalog) BusinessGroupID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.businessGroupID
}

// FilterByBusinessGroup selects a business group and re-filters the loaded
// page without fetching it again.
func (c *Catalog) FilterByBusinessGroup(ctx context.Context, businessGroupID string) error {
	c.mu.Lock()
	c.businessGroupID = businessGroupID
	c.mu.Unlock()

	return c.Relist(ctx)
}

// CatalogItem is the companion of one catalog row. Its schema, request
// template and daily cost load in the background as soon as it is created.
type CatalogItem struct {
	client          *Client
	entitlement     vra.CatalogEntitlement
	blueprintID     string
	businessGroupID string

	detail   *async.Future[*ItemDetail]
	template *async.Future[vra.Template]
	cost     *async.Future[string]
}

func newCatalogItem(ctx context.Context, client *Client, entitlement vra.CatalogEntitlement, businessGroupID string) *CatalogItem {
	item := &CatalogItem{
		client:          client,
		entitlement:     entitlement,
		businessGroupID: businessGroupID,
	}

	if match := blueprintIDPattern.FindStringSubmatch(entitlement.CatalogItem.ProviderBinding.BindingID); match != nil {
		item.blueprintID = match[1]
	}

	item.cost = async.Go(ctx, item.loadCost)
	item.detail = async.Go(ctx, item.loadDetail)
	item.template = async.Go(ctx, item.loadTemplate)

	return item
}

func (i *CatalogItem) loadDetail(ctx context.Context) (*ItemDetail, error) {
	detail, err := i.client.CatalogItemDetail(ctx, i.ID())
	if err != nil {
		i.client.notifier.Notify(vra.LevelDanger, vra.ErrorMessage(err), constants.ErrorTitle)

		return nil, err
	}

	return detail, nil
}

func (i *CatalogItem) loadTemplate(ctx context.Context) (vra.Template, error) {
	call, err := i.client.registry.BuildRequest(constants.EndpointEntitledCatalogRequestTemplate, http.MethodGet, registry.Params{
		Path: map[string]string{"catalogId": i.ID()},
	}, nil)
	if err != nil {
		return nil, err
	}

	var template vra.Template

	err = call.Decode(ctx, &template)
	if err != nil {
		i.client.notifier.Notify(vra.LevelDanger, vra.ErrorMessage(err), constants.ErrorTitle)

		return nil, fmt.Errorf("getting catalog request template: %w", err)
	}

	return template, nil
}

func (i *CatalogItem) loadCost(ctx context.Context) (string, error) {
	return i.fetchCost(ctx, nil)
}

type costRequest struct {
	BlueprintID  string         `json:"blueprintId"`
	RequestData  vra.LiteralMap `json:"requestData"`
	RequestedFor string         `json:"requestedFor"`
	SubTenantID  string         `json:"subTenantId"`
}

// fetchCost asks the cost service for the average daily price. Cost
// information is optional, so failures are only logged.
func (i *CatalogItem) fetchCost(ctx context.Context, leaseDays *int) (string, error) {
	requestData := vra.LiteralMap{Entries: []vra.Entry{}}
	if leaseDays != nil {
		requestData.Entries = append(requestData.Entries, vra.Entry{
			Key:   constants.LeaseDaysField,
			Value: vra.TypedValue{Type: "integer", Value: *leaseDays},
		})
	}

	call, err := i.client.registry.BuildRequest(constants.EndpointCostsUpfront, http.MethodPost, registry.Params{
		Path: map[string]string{"blueprintId": i.blueprintID},
	}, costRequest{
		BlueprintID:  i.blueprintID,
		RequestData:  requestData,
		RequestedFor: i.client.Username(),
		SubTenantID:  i.businessGroupID,
	})
	if err != nil {
		return "", err
	}

	var components []vra.CostComponent

	err = call.Decode(ctx, &components)
	if err != nil {
		i.client.logger.Warn("Failed to get catalog item cost", map[string]interface{}{
			"catalog_item":   i.Name(),
			"system_message": systemMessage(err),
		})

		return "", fmt.Errorf("getting upfront cost: %w", err)
	}

	for _, component := range components {
		if component.ComponentID == constants.TotalCostComponent {
			return component.AverageDailyPriceInfo.DisplayString, nil
		}
	}

	return "", ErrNoCostAvailable
}

func systemMessage(err error) string {
	var respErr *vra.ResponseError
	if errors.As(err, &respErr) {
		if message := respErr.SystemMessage(); message != "" {
			return message
		}
	}

	return err.Error()
}

// Entitlement returns the listing row.
func (i *CatalogItem) Entitlement() vra.CatalogEntitlement {
	return i.entitlement
}

// ID returns the catalog item id.
func (i *CatalogItem) ID() string {
	return i.entitlement.CatalogItem.ID
}

// Name returns the catalog item name.
func (i *CatalogItem) Name() string {
	return i.entitlement.CatalogItem.Name
}

// Description returns the catalog item description.
func (i *CatalogItem) Description() string {
	return i.entitlement.CatalogItem.Description
}

// BlueprintID returns the blueprint the item provisions.
func (i *CatalogItem) BlueprintID() string {
	return i.blueprintID
}

// BusinessGroupID returns the business group costs are quoted for.
func (i *CatalogItem) BusinessGroupID() string {
	return i.businessGroupID
}

// Detail waits for the schema detail.
func (i *CatalogItem) Detail(ctx context.Context) (*ItemDetail, error) {
	return i.detail.Wait(ctx)
}

// Template waits for the request template.
func (i *CatalogItem) Template(ctx context.Context) (vra.Template, error) {
	return i.template.Wait(ctx)
}

// DailyCost waits for the daily cost. It is empty when the cost service is
// unavailable.
func (i *CatalogItem) DailyCost(ctx context.Context) string {
	cost, err := i.cost.Wait(ctx)
	if err != nil {
		return ""
	}

	return cost
}

// Wait blocks until schema, template and cost have all settled. Only schema
// and template failures are reported.
func (i *CatalogItem) Wait(ctx context.Context) error {
	_, _ = i.cost.Wait(ctx)
	_, detailErr := i.detail.Wait(ctx)
	_, templateErr := i.template.Wait(ctx)

	return errors.Join(detailErr, templateErr)
}

// EstimateDailyCost quotes the daily cost for a lease of leaseDays.
func (i *CatalogItem) EstimateDailyCost(ctx context.Context, leaseDays int) (string, error) {
	return i.fetchCost(ctx, &leaseDays)
}

// CatalogRequestInput are the user inputs of a catalog request.
type CatalogRequestInput struct {
	Description string
	Reasons     string
	// LeaseDays is the requested lease. Zero keeps the schema's lease.
	LeaseDays  float64
	CostCenter string
}

// Submit requests the catalog item. The request template is copied and
// filled with input; the template itself is left untouched.
func (i *CatalogItem) Submit(ctx context.Context, input CatalogRequestInput) (*vra.Request, error) {
	template, err := i.Template(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := i.Detail(ctx)
	if err != nil {
		return nil, err
	}

	if detail.BlueprintMachineName == "" {
		return nil, ErrNoBlueprintMachine
	}

	payload, _ := deepcopy.Copy(template).(vra.Template)
	if payload == nil {
		payload = vra.Template{}
	}

	payload["description"] = input.Description
	payload["reasons"] = input.Reasons

	leaseDays := input.LeaseDays
	if leaseDays == 0 {
		leaseDays = number(detail.LeaseDays)
	}

	payload.SetData(constants.LeaseDaysField, leaseDays)
	machineData(payload, detail.BlueprintMachineName)[constants.CostCenterField] = input.CostCenter

	call, err := i.client.registry.BuildRequest(constants.EndpointEntitledCatalogRequest, http.MethodPost, registry.Params{
		Path: map[string]string{"catalogId": vra.Stringify(payload["catalogItemId"])},
	}, payload)
	if err != nil {
		return nil, err
	}

	body, err := call.Do(ctx)
	if err != nil {
		i.client.notifier.Notify(vra.LevelDanger, vra.ErrorMessage(err), constants.ErrorTitle)

		return nil, fmt.Errorf("submitting catalog request: %w", err)
	}

	i.client.notifier.Notify(vra.LevelSuccess, constants.RequestSubmittedMessage, "")

	var request vra.Request

	err = json.Unmarshal(body, &request)
	if err != nil {
		return nil, fmt.Errorf("decoding submitted request: %w", err)
	}

	return &request, nil
}

// machineData returns the data object of the named blueprint machine,
// creating the intermediate objects when missing.
func machineData(payload vra.Template, machine string) map[string]any {
	data := payload.Data()

	component, ok := data[machine].(map[string]any)
	if !ok {
		component = make(map[string]any)
		data[machine] = component
	}

	inner, ok := component["data"].(map[string]any)
	if !ok {
		inner = make(map[string]any)
		component["data"] = inner
	}

	return inner
}

func number(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case int:
		return float64(typed)
	case json.Number:
		f, _ := typed.Float64()

		return f
	default:
		return 0
	}
}
