package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand creates the vra command tree.
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vra",
		Short: "vRealize Automation self-service CLI",
		Long: `A command-line interface for the vRealize Automation self-service portal.

Browse and request catalog blueprints, follow your requests and manage the
lifecycle and snapshots of the machines you own.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "config file (default is $HOME/.vra/config.yml)")
	flags.StringP("endpoint", "e", "", "vRA host")
	flags.StringP("output", "o", constants.FormatTable, "output format (table, json, yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.BoolP("yes", "y", false, "approve every confirmation prompt")
	flags.Bool("no-color", false, "disable colored output")
	flags.Bool("skip-ssl-validation", false, "skip SSL certificate validation (requires VRA_DEV_MODE)")
	flags.Int("page", constants.DefaultPage, "listing page")
	flags.String("search", "", "listing search term")
	flags.String("sort", "", "listing sort field")
	flags.Bool("desc", false, "sort descending")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("endpoint", flags.Lookup("endpoint"))
	_ = viper.BindPFlag("output", flags.Lookup("output"))
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("yes", flags.Lookup("yes"))
	_ = viper.BindPFlag("no_color", flags.Lookup("no-color"))
	_ = viper.BindPFlag("skip_ssl_validation", flags.Lookup("skip-ssl-validation"))

	rootCmd.AddCommand(NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(NewLoginCommand())
	rootCmd.AddCommand(NewLogoutCommand())
	rootCmd.AddCommand(NewWhoamiCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewCatalogCommand())
	rootCmd.AddCommand(NewRequestsCommand())
	rootCmd.AddCommand(NewMachinesCommand())
	rootCmd.AddCommand(NewBusinessGroupsCommand())

	return rootCmd
}

func initConfig() error {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		viper.AddConfigPath(filepath.Join(home, configDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("VRA")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err == nil && viper.GetBool("verbose") {
		_, _ = fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	return nil
}
