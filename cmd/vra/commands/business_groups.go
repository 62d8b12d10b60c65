package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/spf13/cobra"
)

type businessGroupView struct {
	ID          string `json:"id"                    yaml:"id"`
	Name        string `json:"name"                  yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Selected    bool   `json:"selected"              yaml:"selected"`
}

// NewBusinessGroupsCommand creates the business-groups command group.
func NewBusinessGroupsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "business-groups",
		Aliases: []string{"business-group", "bg"},
		Short:   "Manage the business group",
		Long:    "List the business groups you belong to and select the one the catalog is filtered by",
	}

	cmd.AddCommand(newBusinessGroupsListCommand())
	cmd.AddCommand(newBusinessGroupsUseCommand())

	return cmd
}

func newBusinessGroupsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List business groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, config, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			groups, err := c.Subtenants(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]businessGroupView, 0, len(groups))
			for _, group := range groups {
				views = append(views, businessGroupView{
					ID:          group.ID,
					Name:        group.Name,
					Description: group.Description,
					Selected:    group.ID == config.BusinessGroupID,
				})
			}

			return render(cmd.OutOrStdout(), views, []string{"", "Name", "ID", "Description"}, func() [][]string {
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					marker := ""
					if view.Selected {
						marker = "*"
					}

					rows = append(rows, []string{marker, view.Name, view.ID, view.Description})
				}

				return rows
			})
		},
	}
}

func newBusinessGroupsUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME_OR_ID",
		Short: "Select the business group",
		Long:  "Save the business group the catalog is filtered by",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			groups, err := c.Subtenants(cmd.Context())
			if err != nil {
				return err
			}

			for _, group := range groups {
				if group.ID != args[0] && !strings.EqualFold(group.Name, args[0]) {
					continue
				}

				err = updateConfigFile(func(saved *Config) {
					saved.BusinessGroupID = group.ID
				})
				if err != nil {
					return fmt.Errorf("failed to save configuration: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Using business group %s (%s)\n", group.Name, group.ID)

				return nil
			}

			return fmt.Errorf("%w: %s", constants.ErrBusinessGroupNotFound, args[0])
		},
	}
}
