package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configDirName  = ".vra"
	configFileName = "config.yml"
	masked         = "***"
)

// Config represents the CLI configuration. The session token is the only
// state the CLI keeps between runs; passwords are never stored.
type Config struct {
	Endpoint          string     `json:"endpoint,omitempty"          yaml:"endpoint,omitempty"`
	Tenant            string     `json:"tenant,omitempty"            yaml:"tenant,omitempty"`
	Username          string     `json:"username,omitempty"          yaml:"username,omitempty"`
	Token             string     `json:"token,omitempty"             yaml:"token,omitempty"`
	TokenExpiresAt    *time.Time `json:"token_expires_at,omitempty"  yaml:"token_expires_at,omitempty"`
	BusinessGroupID   string     `json:"business_group_id,omitempty" yaml:"business_group_id,omitempty"`
	Output            string     `json:"output,omitempty"            yaml:"output,omitempty"`
	NoColor           bool       `json:"no_color"                    yaml:"no_color"`
	SkipSSLValidation bool       `json:"skip_ssl_validation"         yaml:"skip_ssl_validation"`
	PageSize          int        `json:"page_size,omitempty"         yaml:"page_size,omitempty"`
	CacheType         string     `json:"cache_type,omitempty"        yaml:"cache_type,omitempty"`
	NATSURL           string     `json:"nats_url,omitempty"          yaml:"nats_url,omitempty"`
	NATSBucket        string     `json:"nats_bucket,omitempty"       yaml:"nats_bucket,omitempty"`
}

// settableKeys maps the keys accepted by "config set" to their setters.
var settableKeys = map[string]func(config *Config, value string) error{
	"endpoint":          stringKey(func(c *Config) *string { return &c.Endpoint }),
	"tenant":            stringKey(func(c *Config) *string { return &c.Tenant }),
	"username":          stringKey(func(c *Config) *string { return &c.Username }),
	"business_group_id": stringKey(func(c *Config) *string { return &c.BusinessGroupID }),
	"cache_type":        stringKey(func(c *Config) *string { return &c.CacheType }),
	"nats_url":          stringKey(func(c *Config) *string { return &c.NATSURL }),
	"nats_bucket":       stringKey(func(c *Config) *string { return &c.NATSBucket }),
	"output": func(c *Config, v string) error {
		switch v {
		case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
			c.Output = v

			return nil
		default:
			return fmt.Errorf("%w: %s", constants.ErrInvalidOutputFormat, v)
		}
	},
	"no_color": func(c *Config, v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for no_color: %w", err)
		}

		c.NoColor = parsed

		return nil
	},
	"skip_ssl_validation": func(c *Config, v string) error {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid value for skip_ssl_validation: %w", err)
		}

		c.SkipSSLValidation = parsed

		return nil
	},
	"page_size": func(c *Config, v string) error {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return fmt.Errorf("invalid value for page_size: %q", v)
		}

		c.PageSize = parsed

		return nil
	},
}

func stringKey(field func(config *Config) *string) func(config *Config, value string) error {
	return func(config *Config, value string) error {
		*field(config) = value

		return nil
	}
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show and change the vRA CLI configuration stored in ~/.vra/config.yml",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration. The session token is masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()

			shown := *config
			if shown.Token != "" {
				shown.Token = masked
			}

			return render(cmd.OutOrStdout(), shown, []string{"Property", "Value"}, func() [][]string {
				return configRows(&shown)
			})
		},
	}
}

func configRows(config *Config) [][]string {
	expires := ""
	if config.TokenExpiresAt != nil {
		expires = config.TokenExpiresAt.Format(time.RFC3339)
	}

	return [][]string{
		{"Endpoint", orNotAvailable(config.Endpoint)},
		{"Tenant", orNotAvailable(config.Tenant)},
		{"Username", orNotAvailable(config.Username)},
		{"Token", orNotAvailable(config.Token)},
		{"Token Expires", orNotAvailable(expires)},
		{"Business Group", orNotAvailable(config.BusinessGroupID)},
		{"Output", orNotAvailable(config.Output)},
		{"No Color", strconv.FormatBool(config.NoColor)},
		{"Skip SSL Validation", strconv.FormatBool(config.SkipSSLValidation)},
		{"Page Size", strconv.Itoa(config.PageSize)},
		{"Cache", orNotAvailable(config.CacheType)},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Keys: " + settableKeyList(),
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}

			config, err := readConfigFile(path)
			if err != nil {
				return err
			}

			err = setConfigValue(config, args[0], args[1])
			if err != nil {
				return err
			}

			err = writeConfigFile(path, config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s\n", args[0], args[1])

			return nil
		},
	}
}

func settableKeyList() string {
	keys := make([]string, 0, len(settableKeys))
	for key := range settableKeys {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return strings.Join(keys, ", ")
}

func setConfigValue(config *Config, key, value string) error {
	setter, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", constants.ErrUnknownConfigKey, key)
	}

	return setter(config, value)
}

// loadConfig reads the effective configuration: config file, VRA_* environment
// variables and command line flags, in increasing precedence.
func loadConfig() *Config {
	config := &Config{
		Endpoint:          viper.GetString("endpoint"),
		Tenant:            viper.GetString("tenant"),
		Username:          viper.GetString("username"),
		Token:             viper.GetString("token"),
		BusinessGroupID:   viper.GetString("business_group_id"),
		Output:            viper.GetString("output"),
		NoColor:           viper.GetBool("no_color"),
		SkipSSLValidation: viper.GetBool("skip_ssl_validation"),
		PageSize:          viper.GetInt("page_size"),
		CacheType:         viper.GetString("cache_type"),
		NATSURL:           viper.GetString("nats_url"),
		NATSBucket:        viper.GetString("nats_bucket"),
	}

	if expires := viper.GetTime("token_expires_at"); !expires.IsZero() {
		config.TokenExpiresAt = &expires
	}

	return config
}

// configFilePath returns the file configuration is read from and saved to.
func configFilePath() (string, error) {
	if used := viper.ConfigFileUsed(); used != "" {
		return used, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, configDirName, configFileName), nil
}

// readConfigFile loads the file at path. A missing file is an empty config.
func readConfigFile(path string) (*Config, error) {
	// path is the CLI's own config file
	// #nosec G304
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// writeConfigFile saves config to path, creating its directory.
func writeConfigFile(path string, config *Config) error {
	err := os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// updateConfigFile applies update to the saved configuration.
func updateConfigFile(update func(config *Config)) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	config, err := readConfigFile(path)
	if err != nil {
		return err
	}

	update(config)

	return writeConfigFile(path, config)
}

// ConfigPersister stores session tokens issued during a command in the
// config file.
type ConfigPersister struct {
	path  string
	mutex sync.Mutex
}

// NewConfigPersister creates a persister writing to path.
func NewConfigPersister(path string) *ConfigPersister {
	return &ConfigPersister{path: path}
}

// UpdateSessionToken implements vra.TokenPersister. An empty token clears
// the stored session.
func (p *ConfigPersister) UpdateSessionToken(endpoint, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := readConfigFile(p.path)
	if err != nil {
		return err
	}

	if config.Endpoint == "" {
		config.Endpoint = endpoint
	}

	config.Token = token
	config.TokenExpiresAt = nil

	if token != "" && !expiresAt.IsZero() {
		expires := expiresAt.UTC()
		config.TokenExpiresAt = &expires
	}

	return writeConfigFile(p.path, config)
}
