package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestSetConfigValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		value   string
		check   func(t *testing.T, config *Config)
		wantErr error
		anyErr  bool
	}{
		{
			name:  "endpoint",
			key:   "endpoint",
			value: "vra.example.com",
			check: func(t *testing.T, config *Config) {
				t.Helper()
				assert.Equal(t, "vra.example.com", config.Endpoint)
			},
		},
		{
			name:  "business group",
			key:   "business_group_id",
			value: "bg-1",
			check: func(t *testing.T, config *Config) {
				t.Helper()
				assert.Equal(t, "bg-1", config.BusinessGroupID)
			},
		},
		{
			name:  "output",
			key:   "output",
			value: "json",
			check: func(t *testing.T, config *Config) {
				t.Helper()
				assert.Equal(t, "json", config.Output)
			},
		},
		{
			name:    "invalid output",
			key:     "output",
			value:   "xml",
			wantErr: constants.ErrInvalidOutputFormat,
		},
		{
			name:  "no color",
			key:   "no_color",
			value: "true",
			check: func(t *testing.T, config *Config) {
				t.Helper()
				assert.True(t, config.NoColor)
			},
		},
		{
			name:   "invalid bool",
			key:    "skip_ssl_validation",
			value:  "maybe",
			anyErr: true,
		},
		{
			name:  "page size",
			key:   "page_size",
			value: "25",
			check: func(t *testing.T, config *Config) {
				t.Helper()
				assert.Equal(t, 25, config.PageSize)
			},
		},
		{
			name:   "zero page size",
			key:    "page_size",
			value:  "0",
			anyErr: true,
		},
		{
			name:    "unknown key",
			key:     "password",
			value:   "secret",
			wantErr: constants.ErrUnknownConfigKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := &Config{}
			err := setConfigValue(config, tt.key, tt.value)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
				tt.check(t, config)
			}
		})
	}
}

func TestReadConfigFile_Missing(t *testing.T) {
	t.Parallel()

	config, err := readConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, &Config{}, config)
}

func TestReadConfigFile_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("endpoint: [unterminated"), 0o600))

	_, err := readConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestWriteConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yml")
	config := &Config{
		Endpoint:        "https://vra.example.com",
		Tenant:          "vsphere.local",
		Username:        "jdoe",
		BusinessGroupID: "bg-1",
		PageSize:        20,
	}

	require.NoError(t, writeConfigFile(path, config))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.ConfigFilePerm), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "business_group_id: bg-1")
	assert.NotContains(t, string(data), "token:")

	loaded, err := readConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, config, loaded)
}

func TestConfigPersister_UpdateSessionToken(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, writeConfigFile(path, &Config{Tenant: "vsphere.local", Username: "jdoe"}))

	persister := NewConfigPersister(path)
	expires := time.Date(2030, 1, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))

	require.NoError(t, persister.UpdateSessionToken("https://vra.example.com", "tok-1", expires))

	config, err := readConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://vra.example.com", config.Endpoint)
	assert.Equal(t, "vsphere.local", config.Tenant)
	assert.Equal(t, "tok-1", config.Token)
	require.NotNil(t, config.TokenExpiresAt)
	assert.True(t, expires.Equal(*config.TokenExpiresAt))
	assert.Equal(t, time.UTC, config.TokenExpiresAt.Location())

	require.NoError(t, persister.UpdateSessionToken("https://other.example.com", "", time.Time{}))

	config, err = readConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://vra.example.com", config.Endpoint, "a saved endpoint is kept")
	assert.Empty(t, config.Token)
	assert.Nil(t, config.TokenExpiresAt)
}

func TestConfigRows_MaskedToken(t *testing.T) {
	t.Parallel()

	rows := configRows(&Config{Token: masked, PageSize: 10})

	values := map[string]string{}
	for _, row := range rows {
		values[row[0]] = row[1]
	}

	assert.Equal(t, "***", values["Token"])
	assert.Equal(t, "N/A", values["Endpoint"])
	assert.Equal(t, "10", values["Page Size"])
	assert.Equal(t, "false", values["No Color"])
}
