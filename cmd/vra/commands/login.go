package commands

import (
	"bufio"
	"fmt"
	"time"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/spf13/cobra"
)

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	var (
		tenant   string
		username string
		password string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to vRA",
		Long:  "Request a session token for a tenant user and store it in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			in := bufio.NewReader(cmd.InOrStdin())
			prompts := cmd.ErrOrStderr()

			if config.Endpoint == "" {
				config.Endpoint = promptLine(in, prompts, "vRA endpoint: ")
			}

			if config.Endpoint == "" {
				return constants.ErrNoEndpointConfigured
			}

			if tenant == "" {
				tenant = config.Tenant
			}

			if tenant == "" {
				tenant = promptLine(in, prompts, "Tenant: ")
			}

			if tenant == "" {
				return constants.ErrTenantRequired
			}

			if username == "" {
				username = promptLine(in, prompts, "Username: ")
			}

			if username == "" {
				return constants.ErrUsernameRequired
			}

			if password == "" {
				var err error

				password, err = promptPassword(in, prompts)
				if err != nil {
					return err
				}
			}

			// A previous session must not be sent with the login.
			config.Token = ""
			config.TokenExpiresAt = nil

			c, err := newPortalClient(cmd, config)
			if err != nil {
				return err
			}

			_, err = c.Login(cmd.Context(), tenant, username, password)
			if err != nil {
				return fmt.Errorf("login failed: %s: %w", vra.ErrorMessage(err), err)
			}

			err = updateConfigFile(func(saved *Config) {
				saved.Endpoint = config.Endpoint
				saved.Tenant = tenant
				saved.Username = username
			})
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Welcome %s! Logged in to %s as %s\n", c.DisplayName(), c.BaseURL(), username)

			return nil
		},
	}

	cmd.Flags().StringVarP(&tenant, "tenant", "t", "", "tenant name")
	cmd.Flags().StringVarP(&username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")

	return cmd
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out of vRA",
		Long:  "Revoke the session token and remove it from the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			if config.Token == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")

				return nil
			}

			c, err := newPortalClient(cmd, config)
			if err != nil {
				return err
			}

			err = c.Logout(cmd.Context())
			if err != nil {
				c.Logger().Warn("Server did not revoke the session token", map[string]interface{}{
					"error": err.Error(),
				})
			}

			err = updateConfigFile(func(saved *Config) {
				saved.Token = ""
				saved.TokenExpiresAt = nil
			})
			if err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")

			return nil
		},
	}
}

type sessionView struct {
	Endpoint  string     `json:"endpoint"             yaml:"endpoint"`
	Tenant    string     `json:"tenant"               yaml:"tenant"`
	Username  string     `json:"username"             yaml:"username"`
	Name      string     `json:"name"                 yaml:"name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Valid     bool       `json:"valid"                yaml:"valid"`
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		Long:  "Display the tenant and user of the stored session and check it with the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, config, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			info, err := c.Session(cmd.Context())
			if err != nil {
				return err
			}

			view := sessionView{
				Endpoint:  c.BaseURL(),
				Tenant:    info.Tenant,
				Username:  info.Username,
				Name:      c.DisplayName(),
				ExpiresAt: config.TokenExpiresAt,
				Valid:     c.Validate(cmd.Context()) == nil,
			}

			return render(cmd.OutOrStdout(), view, []string{"Property", "Value"}, func() [][]string {
				expires := ""
				if view.ExpiresAt != nil {
					expires = view.ExpiresAt.Format(time.RFC3339)
				}

				valid := "expired"
				if view.Valid {
					valid = "valid"
				}

				return [][]string{
					{"Endpoint", view.Endpoint},
					{"Tenant", orNotAvailable(view.Tenant)},
					{"Username", orNotAvailable(view.Username)},
					{"Name", orNotAvailable(view.Name)},
					{"Expires", orNotAvailable(expires)},
					{"Session", valid},
				}
			})
		},
	}
}
