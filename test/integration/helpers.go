//go:build integration

package integration

import (
	"context"
	"os"
	"testing"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/fivetwenty-io/vra/pkg/vraclient"
	"github.com/joho/godotenv"
)

// TestConfig holds the portal the integration tests run against.
type TestConfig struct {
	Endpoint        string
	Tenant          string
	Username        string
	Password        string
	BusinessGroupID string
	Verbose         bool
}

// LoadTestConfig reads VRA_* variables, from a .env file when present.
func LoadTestConfig() *TestConfig {
	_ = godotenv.Load()

	return &TestConfig{
		Endpoint:        os.Getenv("VRA_ENDPOINT"),
		Tenant:          os.Getenv("VRA_TENANT"),
		Username:        os.Getenv("VRA_USERNAME"),
		Password:        os.Getenv("VRA_PASSWORD"),
		BusinessGroupID: os.Getenv("VRA_BUSINESS_GROUP_ID"),
		Verbose:         os.Getenv("VRA_VERBOSE") == "true",
	}
}

// SkipIfMissingConfig skips the test unless a portal and user are configured.
func (config *TestConfig) SkipIfMissingConfig(t *testing.T) {
	t.Helper()

	if config.Endpoint == "" {
		t.Skip("VRA_ENDPOINT not set, skipping integration test")
	}

	if config.Tenant == "" || config.Username == "" || config.Password == "" {
		t.Skip("VRA_TENANT, VRA_USERNAME and VRA_PASSWORD are required")
	}
}

// NewClient builds a client that logs in with the configured user. Every
// lifecycle action is declined.
func (config *TestConfig) NewClient(ctx context.Context) (*client.Client, error) {
	return vraclient.New(ctx, &vra.Config{
		Endpoint:        config.Endpoint,
		Tenant:          config.Tenant,
		Username:        config.Username,
		Password:        config.Password,
		BusinessGroupID: config.BusinessGroupID,
		Debug:           config.Verbose,
		Confirmer: vra.ConfirmerFunc(func(context.Context, string) bool {
			return false
		}),
	})
}
