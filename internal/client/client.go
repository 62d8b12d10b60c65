package client

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fivetwenty-io/vra/internal/action"
	"github.com/fivetwenty-io/vra/internal/auth"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/http"
	"github.com/fivetwenty-io/vra/internal/registry"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// Static errors for err113 compliance.
var (
	ErrEndpointRequired = errors.New("vRA endpoint is required")
	ErrNotAuthenticated = errors.New("no session token")
)

// Client is the self-service portal client. It owns the registry every
// listing, companion item and capability sends its calls through.
type Client struct {
	httpClient   *http.Client
	registry     *registry.Registry
	tokenManager auth.TokenManager
	baseURL      string
	logger       vra.Logger
	notifier     vra.Notifier
	confirmer    vra.Confirmer
	schemas      *vra.CacheManager
	pageSize     int

	mu              sync.RWMutex
	tenant          string
	username        string
	businessGroupID string
}

// createTokenManager picks the token manager for config. Credentials, or a
// persister to receive tokens from Login, select the refreshing manager; a
// bare access token is served as is.
func (c *Client) createTokenManager(config *vra.Config) auth.TokenManager {
	credentials := auth.Credentials{
		Tenant:   config.Tenant,
		Username: config.Username,
		Password: config.Password,
	}

	if config.AccessToken != "" && !credentials.Complete() && config.TokenPersister == nil {
		return auth.NewStaticTokenManager(config.AccessToken, config.TokenExpiresAt)
	}

	var persister auth.ConfigPersister
	if config.TokenPersister != nil {
		persister = config.TokenPersister
	}

	return auth.NewConfigTokenManager(
		c.issueToken,
		credentials,
		persister,
		config.Endpoint,
		config.AccessToken,
		config.TokenExpiresAt,
	)
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *vra.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.SkipTLSVerify {
		httpOpts = append(httpOpts, http.WithSkipTLSVerify(true))
	}

	if config.Interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(config.Interceptors))
	}

	return httpOpts
}

// New creates a portal client for config.Endpoint and registers every
// portal endpoint. Nothing is sent until a call is made.
func New(_ context.Context, config *vra.Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, ErrEndpointRequired
	}

	cache := config.Cache
	if cache == nil {
		cache = vra.NewMemoryCache(constants.DefaultCacheSize)
	}

	client := &Client{
		logger:          config.Logger,
		notifier:        config.Notifier,
		confirmer:       config.Confirmer,
		pageSize:        config.PageSize,
		tenant:          config.Tenant,
		username:        config.Username,
		businessGroupID: config.BusinessGroupID,
		schemas:         vra.NewCacheManager(cache, &vra.CacheOptions{DefaultTTL: constants.SchemaCacheTTL}),
	}

	if client.logger == nil {
		client.logger = vra.NopLogger{}
	}

	if client.notifier == nil {
		client.notifier = vra.NopNotifier{}
	}

	if client.confirmer == nil {
		client.confirmer = vra.AutoConfirm{}
	}

	if client.pageSize <= 0 {
		client.pageSize = constants.DefaultPageSize
	}

	client.tokenManager = client.createTokenManager(config)
	client.baseURL = normalizeEndpoint(config.Endpoint)
	client.httpClient = http.NewClient(client.baseURL, client.tokenManager, createHTTPClientOptions(config)...)
	client.registry = registry.New(client.httpClient, client.logger)
	client.registry.SetServer(client.baseURL)

	err := registerEndpoints(client.registry)
	if err != nil {
		return nil, err
	}

	if config.AccessToken != "" {
		client.adoptSession(config.AccessToken)
	}

	return client, nil
}

func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// Registry returns the endpoint registry.
func (c *Client) Registry() *registry.Registry {
	return c.registry
}

// HTTPClient returns the underlying transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// GetTokenManager returns the token manager for this client.
func (c *Client) GetTokenManager() auth.TokenManager {
	return c.tokenManager
}

// BaseURL returns the server every endpoint is resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the client's logger.
func (c *Client) Logger() vra.Logger {
	return c.logger
}

// Notifier returns the client's notifier.
func (c *Client) Notifier() vra.Notifier {
	return c.notifier
}

// PageSize returns the listing page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Tenant returns the tenant of the current session.
func (c *Client) Tenant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.tenant
}

// Username returns the user of the current session.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.username
}

// BusinessGroupID returns the selected business group.
func (c *Client) BusinessGroupID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.businessGroupID
}

// SchemaCacheStats returns the statistics of the catalog schema cache.
func (c *Client) SchemaCacheStats() vra.CacheStats {
	return c.schemas.GetStats()
}

func (c *Client) actionDeps() action.Deps {
	return action.Deps{
		Caller:    c.registry,
		Notifier:  c.notifier,
		Confirmer: c.confirmer,
		Logger:    c.logger,
	}
}
