package vraclient

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// DevModeEnv enables development-only settings such as SkipTLSVerify.
const DevModeEnv = "VRA_DEV_MODE"

// Options selects what New builds beyond config itself.
type Options struct {
	// Cache configures the schema cache. Ignored when config.Cache is set.
	Cache *vra.CacheConfig
}

// New creates a portal client for config.
func New(ctx context.Context, config *vra.Config) (*client.Client, error) {
	return NewWithOptions(ctx, config, nil)
}

// NewWithOptions creates a portal client for config, building the schema
// cache described by opts when config carries none.
func NewWithOptions(ctx context.Context, config *vra.Config, opts *Options) (*client.Client, error) {
	if config == nil {
		return nil, vra.ErrConfigRequired
	}

	normalized := *config

	normalized.Endpoint = strings.TrimSuffix(strings.TrimSpace(normalized.Endpoint), "/")
	if normalized.Endpoint == "" {
		return nil, vra.ErrAPIEndpointRequired
	}

	if !strings.HasPrefix(normalized.Endpoint, "http://") && !strings.HasPrefix(normalized.Endpoint, "https://") {
		normalized.Endpoint = "https://" + normalized.Endpoint
	}

	if normalized.SkipTLSVerify && !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set %s=true)", vra.ErrSkipTLSOnlyInDev, DevModeEnv)
	}

	if normalized.Cache == nil && opts != nil && opts.Cache != nil {
		cache, err := vra.NewCacheFromConfig(opts.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating schema cache: %w", err)
		}

		normalized.Cache = cache
	}

	c, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithToken creates a client that reuses an existing session token.
func NewWithToken(ctx context.Context, endpoint, token string) (*client.Client, error) {
	return New(ctx, &vra.Config{
		Endpoint:    endpoint,
		AccessToken: token,
	})
}

// NewWithPassword creates a client that requests a session token for the
// given tenant user on its first call.
func NewWithPassword(ctx context.Context, endpoint, tenant, username, password string) (*client.Client, error) {
	return New(ctx, &vra.Config{
		Endpoint: endpoint,
		Tenant:   tenant,
		Username: username,
		Password: password,
	})
}

func isDevelopmentEnvironment() bool {
	devMode := os.Getenv(DevModeEnv)

	return devMode == "true" || devMode == "1"
}
