package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as token checks.
	ShortHTTPTimeout = 10 * time.Second
)

// Listing defaults.
const (
	// DefaultPageSize is the number of rows requested per page.
	DefaultPageSize = 10

	// DefaultPage is the first page of a listing.
	DefaultPage = 1

	// PermittedValuesPageSize is the count requested for dependent form values.
	PermittedValuesPageSize = 20
)

// Cache defaults.
const (
	// DefaultCacheSize is the number of entries held by the memory cache.
	DefaultCacheSize = 256

	// SchemaCacheTTL is how long a catalog request schema stays cached.
	SchemaCacheTTL = 10 * time.Minute

	// DefaultNATSBucket is the key/value bucket used by the NATS cache.
	DefaultNATSBucket = "vra-schemas"
)

// Registry endpoint names.
const (
	EndpointTokens                         = "tokens"
	EndpointTokensWithID                   = "tokensWithId"
	EndpointSubtenants                     = "subtenantsWithTenantAndUser"
	EndpointEntitledCatalogItems           = "entitledCatalogItems"
	EndpointEntitledCatalogRequestSchema   = "entitledCatalogRequestSchema"
	EndpointEntitledCatalogRequestTemplate = "entitledCatalogRequestTemplate"
	EndpointEntitledCatalogRequest         = "entitledCatalogRequest"
	EndpointRequests                       = "requests"
	EndpointRequestsWithID                 = "requestsWithId"
	EndpointResourceViews                  = "resourceViews"
	EndpointResourceActionForms            = "resourceActionFormsRequest"
	EndpointResourceActionFormValues       = "resourceActionFormsRequestValues"
	EndpointCostsUpfront                   = "costsUpfront"
)

// Request polling.
const (
	// DefaultPollInterval is the delay between request status checks.
	DefaultPollInterval = 5 * time.Second

	// DefaultRequestPollTimeout bounds waiting for a request to finish.
	DefaultRequestPollTimeout = 30 * time.Minute
)

// Request states.
const (
	RequestStateSuccessful          = "SUCCESSFUL"
	RequestStatePartiallySuccessful = "PARTIALLY_SUCCESSFUL"
	RequestStateFailed              = "FAILED"
	RequestStateRejected            = "REJECTED"
)

// Server-side identifiers.
const (
	// CompositionProviderType is the provider type of blueprint requests.
	CompositionProviderType = "com.vmware.csp.component.cafe.composition"

	// CompositeBlueprintType is the catalog item type of blueprints.
	CompositeBlueprintType = "Composite Blueprint"

	// VirtualMachineResourceType is the resource type of provisioned machines.
	VirtualMachineResourceType = "Infrastructure.Virtual"

	// LeaseDaysField is the schema field holding the requested lease.
	LeaseDaysField = "_leaseDays"

	// CostCenterField is the blueprint machine field holding the cost center.
	CostCenterField = "cost_center"

	// TotalCostComponent is the upfront cost component carrying the total.
	TotalCostComponent = "Total"

	// ExpirationDateField is the change-lease form field.
	ExpirationDateField = "provider-ExpirationDate"

	// SnapshotNameField is the create-snapshot form field.
	SnapshotNameField = "provider-SnapshotInputName"

	// SnapshotReferenceField is the revert/delete-snapshot form field.
	SnapshotReferenceField = "provider-SnapshotReference"

	// ProviderFieldPrefix prefixes machine component entries in request data.
	ProviderFieldPrefix = "provider-"
)

// Messages shown to the user.
const (
	// RequestSubmittedMessage is shown after a catalog request is accepted.
	RequestSubmittedMessage = "Your request has been submitted!"

	// ErrorTitle titles failure notifications.
	ErrorTitle = "Error"
)

// Format constants.
const (
	// FormatJSON represents JSON output format.
	FormatJSON = "json"

	// FormatYAML represents YAML output format.
	FormatYAML = "yaml"

	// FormatTable represents table output format.
	FormatTable = "table"
)

// Display constants.
const (
	// ExpirationTimestampFormat renders a lease expiration in UTC with milliseconds.
	ExpirationTimestampFormat = "2006-01-02T15:04:05.000Z"

	// LeaseDateFormat is the date layout accepted for a new lease expiration.
	LeaseDateFormat = "2006-01-02"

	// NotAvailable is shown for missing values.
	NotAvailable = "N/A"

	// MinimumArgumentCount is the argument count of KEY VALUE commands.
	MinimumArgumentCount = 2
)
