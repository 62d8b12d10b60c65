package constants

import "errors"

// Configuration errors.
var (
	ErrNoEndpointConfigured = errors.New("no vRA endpoint configured, use 'vra login --endpoint <host>'")
	ErrNotLoggedIn          = errors.New("not logged in, use 'vra login' first")
	ErrUnknownConfigKey     = errors.New("unknown configuration key")
	ErrTenantRequired       = errors.New("tenant is required")
	ErrUsernameRequired     = errors.New("username is required")
)

// Command errors.
var (
	ErrInvalidOutputFormat   = errors.New("invalid output format")
	ErrCatalogItemNotFound   = errors.New("catalog item not found")
	ErrRequestNotFound       = errors.New("request not found")
	ErrMachineNotFound       = errors.New("machine not found")
	ErrActionNotAvailable    = errors.New("action not available on this machine")
	ErrActionNeedsInput      = errors.New("action needs input, use the lease or snapshots commands")
	ErrSnapshotNotFound      = errors.New("snapshot not found")
	ErrInvalidLeaseDate      = errors.New("invalid lease expiration date")
	ErrBusinessGroupNotFound = errors.New("business group not found")
)
