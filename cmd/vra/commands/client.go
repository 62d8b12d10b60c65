package commands

import (
	"fmt"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/fivetwenty-io/vra/pkg/vraclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// userAgent is reported to the server; main sets the version.
var userAgent = "vra-cli/dev"

// SetVersion sets the version reported in the user agent.
func SetVersion(version string) {
	userAgent = "vra-cli/" + version
}

// cacheConfig returns the schema cache selected by the configuration.
func cacheConfig(config *Config) (*vra.CacheConfig, error) {
	cacheType, err := vra.ParseCacheType(config.CacheType)
	if err != nil {
		return nil, err
	}

	cache := &vra.CacheConfig{
		Type:   cacheType,
		Memory: &vra.MemoryCacheConfig{MaxSize: constants.DefaultCacheSize},
	}

	if cacheType == vra.CacheTypeNATS {
		bucket := config.NATSBucket
		if bucket == "" {
			bucket = constants.DefaultNATSBucket
		}

		cache.NATS = &vra.NATSKVConfig{
			URL:    config.NATSURL,
			Bucket: bucket,
			TTL:    constants.SchemaCacheTTL,
		}
	}

	return cache, nil
}

// newPortalClient builds a client for the configured endpoint. Tokens issued
// or cleared while the command runs are written back to the config file.
func newPortalClient(cmd *cobra.Command, config *Config) (*client.Client, error) {
	if config.Endpoint == "" {
		return nil, constants.ErrNoEndpointConfigured
	}

	zl, err := newCLILogger(viper.GetBool("verbose"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	cache, err := cacheConfig(config)
	if err != nil {
		return nil, err
	}

	clientConfig := &vra.Config{
		Endpoint:        config.Endpoint,
		Tenant:          config.Tenant,
		Username:        config.Username,
		AccessToken:     config.Token,
		UserAgent:       userAgent,
		SkipTLSVerify:   config.SkipSSLValidation,
		Debug:           viper.GetBool("verbose"),
		PageSize:        config.PageSize,
		BusinessGroupID: config.BusinessGroupID,
		TokenPersister:  NewConfigPersister(path),
		Confirmer:       newTerminalConfirmer(cmd.InOrStdin(), cmd.ErrOrStderr(), viper.GetBool("yes")),
		Logger:          newZapLogger(zl),
		Notifier:        newColorNotifier(cmd.ErrOrStderr(), config.NoColor),
	}

	if config.TokenExpiresAt != nil {
		clientConfig.TokenExpiresAt = *config.TokenExpiresAt
	}

	return vraclient.NewWithOptions(cmd.Context(), clientConfig, &vraclient.Options{Cache: cache})
}

// sessionClient builds a client for commands that need a logged-in user.
func sessionClient(cmd *cobra.Command) (*client.Client, *Config, error) {
	config := loadConfig()

	if config.Token == "" {
		return nil, nil, constants.ErrNotLoggedIn
	}

	c, err := newPortalClient(cmd, config)
	if err != nil {
		return nil, nil, err
	}

	return c, config, nil
}
