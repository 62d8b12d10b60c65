package vra

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Link represents a hypermedia link attached to a resource.
type Link struct {
	Rel  string `json:"rel"  yaml:"rel"`
	Href string `json:"href" yaml:"href"`
}

// PageMetadata describes the page returned by a listing endpoint.
type PageMetadata struct {
	Size          int `json:"size"          yaml:"size"`
	TotalElements int `json:"totalElements" yaml:"total_elements"`
	TotalPages    int `json:"totalPages"    yaml:"total_pages"`
	Number        int `json:"number"        yaml:"number"`
	Offset        int `json:"offset"        yaml:"offset"`
}

// Page represents a paged listing response.
type Page[T any] struct {
	Links    []Link       `json:"links,omitempty" yaml:"links,omitempty"`
	Content  []T          `json:"content"         yaml:"content"`
	Metadata PageMetadata `json:"metadata"        yaml:"metadata"`
}

// Ref is a lightweight reference to another resource.
type Ref struct {
	ID    string `json:"id"              yaml:"id"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// Entry is a single key/value pair of a literal map.
type Entry struct {
	Key   string `json:"key"             yaml:"key"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// LiteralMap is the server's list-of-entries encoding of a map.
type LiteralMap struct {
	Type    string  `json:"type,omitempty" yaml:"type,omitempty"`
	Entries []Entry `json:"entries"        yaml:"entries"`
}

// Lookup returns the value stored under key.
func (m LiteralMap) Lookup(key string) (any, bool) {
	for _, entry := range m.Entries {
		if entry.Key == key {
			return entry.Value, true
		}
	}

	return nil, false
}

// Clone returns a copy of the map whose entry slice can be appended to freely.
func (m LiteralMap) Clone() LiteralMap {
	entries := make([]Entry, len(m.Entries))
	copy(entries, m.Entries)

	return LiteralMap{Type: m.Type, Entries: entries}
}

// TypedValue is a value tagged with its server-side type.
type TypedValue struct {
	Type  string `json:"type"  yaml:"type"`
	Value any    `json:"value" yaml:"value"`
}

// FacetClause wraps the typed value of a facet.
type FacetClause struct {
	Type  string      `json:"type"            yaml:"type"`
	Value *TypedValue `json:"value,omitempty" yaml:"value,omitempty"`
}

// Facet is one constraint attached to a schema field.
type Facet struct {
	Type  string       `json:"type"            yaml:"type"`
	Value *FacetClause `json:"value,omitempty" yaml:"value,omitempty"`
}

// Facet types understood when resolving a field's effective value.
const (
	FacetDerivedValue = "derivedValue"
	FacetDefaultValue = "defaultValue"
	FacetMinValue     = "minValue"
)

// Inner returns the innermost value of the facet, or nil when absent.
func (f Facet) Inner() any {
	if f.Value == nil || f.Value.Value == nil {
		return nil
	}

	return f.Value.Value.Value
}

// FieldState holds the facets that constrain a field.
type FieldState struct {
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Facets       []Facet  `json:"facets"                 yaml:"facets"`
}

// DataType describes a field's type; composite fields carry a nested schema.
type DataType struct {
	Type   string  `json:"type"             yaml:"type"`
	TypeID string  `json:"typeId,omitempty" yaml:"type_id,omitempty"`
	Schema *Schema `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Field is a single entry of a request schema.
type Field struct {
	ID       string     `json:"id"              yaml:"id"`
	Label    string     `json:"label,omitempty" yaml:"label,omitempty"`
	DataType DataType   `json:"dataType"        yaml:"data_type"`
	State    FieldState `json:"state"           yaml:"state"`
}

// Schema is the request schema of a catalog item.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields"`
}

// Form is a resource action request form.
type Form struct {
	Layout json.RawMessage `json:"layout,omitempty" yaml:"-"`
	Values LiteralMap      `json:"values"           yaml:"values"`
}

// PermittedValue is one allowed value returned for a dependent form field.
type PermittedValue struct {
	UnderlyingValue map[string]any `json:"underlyingValue" yaml:"underlying_value"`
	Label           string         `json:"label"           yaml:"label"`
}

// ID returns the identifier carried by the underlying value.
func (v PermittedValue) ID() string {
	if v.UnderlyingValue == nil {
		return ""
	}

	return Stringify(v.UnderlyingValue["id"])
}

// PermittedValues is the response of a form values lookup.
type PermittedValues struct {
	Values []PermittedValue `json:"values" yaml:"values"`
}

// Template is an opaque JSON document returned by a template endpoint.
type Template map[string]any

// Data returns the template's data object, creating it when missing.
func (t Template) Data() map[string]any {
	data, ok := t["data"].(map[string]any)
	if !ok {
		data = make(map[string]any)
		t["data"] = data
	}

	return data
}

// SetData sets key inside the template's data object.
func (t Template) SetData(key string, value any) {
	t.Data()[key] = value
}

// ProviderBinding binds a catalog item to its provider.
type ProviderBinding struct {
	BindingID   string `json:"bindingId"             yaml:"binding_id"`
	ProviderRef *Ref   `json:"providerRef,omitempty" yaml:"provider_ref,omitempty"`
}

// CatalogItem describes an entitled catalog item.
type CatalogItem struct {
	ID              string          `json:"id"                    yaml:"id"`
	Name            string          `json:"name"                  yaml:"name"`
	Description     string          `json:"description,omitempty" yaml:"description,omitempty"`
	Status          string          `json:"status,omitempty"      yaml:"status,omitempty"`
	IconID          string          `json:"iconId,omitempty"      yaml:"icon_id,omitempty"`
	ProviderBinding ProviderBinding `json:"providerBinding"       yaml:"provider_binding"`
}

// EntitledOrganization is a business group a catalog item is entitled to.
type EntitledOrganization struct {
	TenantRef      string `json:"tenantRef"      yaml:"tenant_ref"`
	TenantLabel    string `json:"tenantLabel"    yaml:"tenant_label"`
	SubtenantRef   string `json:"subtenantRef"   yaml:"subtenant_ref"`
	SubtenantLabel string `json:"subtenantLabel" yaml:"subtenant_label"`
}

// CatalogEntitlement is one row of the entitled catalog item listing.
type CatalogEntitlement struct {
	CatalogItem           CatalogItem            `json:"catalogItem"           yaml:"catalog_item"`
	EntitledOrganizations []EntitledOrganization `json:"entitledOrganizations" yaml:"entitled_organizations"`
}

// EntitledTo reports whether the item is entitled to the business group.
func (e CatalogEntitlement) EntitledTo(businessGroupID string) bool {
	for _, org := range e.EntitledOrganizations {
		if org.SubtenantRef == businessGroupID {
			return true
		}
	}

	return false
}

// Money is an amount in a currency.
type Money struct {
	Type         string  `json:"type,omitempty"         yaml:"type,omitempty"`
	Amount       float64 `json:"amount"                 yaml:"amount"`
	CurrencyCode string  `json:"currencyCode,omitempty" yaml:"currency_code,omitempty"`
}

// Rate is a cost per time unit.
type Rate struct {
	Type  string `json:"type,omitempty"  yaml:"type,omitempty"`
	Cost  Money  `json:"cost"            yaml:"cost"`
	Basis any    `json:"basis,omitempty" yaml:"basis,omitempty"`
}

// TimeSpan is a duration expressed in a unit.
type TimeSpan struct {
	Type   string  `json:"type,omitempty" yaml:"type,omitempty"`
	Unit   string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Amount float64 `json:"amount"         yaml:"amount"`
}

// Quote is the cost quote attached to a request.
type Quote struct {
	LeasePeriod    *TimeSpan `json:"leasePeriod,omitempty"    yaml:"lease_period,omitempty"`
	LeaseRate      *Rate     `json:"leaseRate,omitempty"      yaml:"lease_rate,omitempty"`
	TotalLeaseCost *Money    `json:"totalLeaseCost,omitempty" yaml:"total_lease_cost,omitempty"`
}

// Request is one row of the request listing.
type Request struct {
	ID                       string     `json:"id"                                 yaml:"id"`
	RequestNumber            int        `json:"requestNumber"                      yaml:"request_number"`
	RequestedItemName        string     `json:"requestedItemName"                  yaml:"requested_item_name"`
	RequestedItemDescription string     `json:"requestedItemDescription,omitempty" yaml:"requested_item_description,omitempty"`
	RequestedBy              string     `json:"requestedBy"                        yaml:"requested_by"`
	DateSubmitted            *time.Time `json:"dateSubmitted,omitempty"            yaml:"date_submitted,omitempty"`
	State                    string     `json:"state,omitempty"                    yaml:"state,omitempty"`
	StateName                string     `json:"stateName"                          yaml:"state_name"`
	Phase                    string     `json:"phase,omitempty"                    yaml:"phase,omitempty"`
	CatalogItemRef           Ref        `json:"catalogItemRef"                     yaml:"catalog_item_ref"`
	RequestData              LiteralMap `json:"requestData"                        yaml:"request_data"`
	Quote                    Quote      `json:"quote"                              yaml:"quote"`
}

// Costs holds the cost information of a provisioned resource.
type Costs struct {
	LeaseRate *Rate `json:"leaseRate,omitempty" yaml:"lease_rate,omitempty"`
}

// ResourceView is one row of the machine listing.
type ResourceView struct {
	ResourceID   string         `json:"resourceId"            yaml:"resource_id"`
	Name         string         `json:"name"                  yaml:"name"`
	Description  string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status       string         `json:"status"                yaml:"status"`
	ResourceType string         `json:"resourceType"          yaml:"resource_type"`
	DateCreated  *time.Time     `json:"dateCreated,omitempty" yaml:"date_created,omitempty"`
	Costs        *Costs         `json:"costs,omitempty"       yaml:"costs,omitempty"`
	Data         map[string]any `json:"data,omitempty"        yaml:"data,omitempty"`
	Links        []Link         `json:"links"                 yaml:"links"`
}

// DataString returns the extended data value stored under key as a string.
func (r ResourceView) DataString(key string) string {
	if r.Data == nil {
		return ""
	}

	return Stringify(r.Data[key])
}

// Subtenant is a business group the user belongs to.
type Subtenant struct {
	ID          string `json:"id"                    yaml:"id"`
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	TenantID    string `json:"tenant,omitempty"      yaml:"tenant,omitempty"`
}

// Token is the session token issued by the identity service.
type Token struct {
	ID      string    `json:"id"      yaml:"id"`
	Expires time.Time `json:"expires" yaml:"expires"`
	Tenant  string    `json:"tenant"  yaml:"tenant"`
}

// TokenRequest is the payload used to obtain a session token.
type TokenRequest struct {
	Tenant   string `json:"tenant"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// CostComponent is one component of an upfront cost response.
type CostComponent struct {
	ComponentID           string `json:"componentId" yaml:"component_id"`
	AverageDailyPriceInfo struct {
		DisplayString string `json:"displayString" yaml:"display_string"`
	} `json:"averageDailyPriceInfo" yaml:"average_daily_price_info"`
}

// Stringify renders a scalar JSON value without exponent notation.
func Stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
