package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/spf13/cobra"
)

type catalogItemView struct {
	ID          string `json:"id"                     yaml:"id"`
	Name        string `json:"name"                   yaml:"name"`
	Description string `json:"description,omitempty"  yaml:"description,omitempty"`
	BlueprintID string `json:"blueprint_id,omitempty" yaml:"blueprint_id,omitempty"`
	DailyCost   string `json:"daily_cost,omitempty"   yaml:"daily_cost,omitempty"`
}

type catalogDetailView struct {
	catalogItemView `yaml:",inline"`

	BusinessGroupID string `json:"business_group_id,omitempty" yaml:"business_group_id,omitempty"`
	Machine         string `json:"machine,omitempty"           yaml:"machine,omitempty"`
	LeaseDays       any    `json:"lease_days,omitempty"        yaml:"lease_days,omitempty"`
	CPU             any    `json:"cpu,omitempty"               yaml:"cpu,omitempty"`
	Memory          any    `json:"memory,omitempty"            yaml:"memory,omitempty"`
	Storage         any    `json:"storage,omitempty"           yaml:"storage,omitempty"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"cat"},
		Short:   "Browse and request catalog items",
		Long:    "List the blueprints entitled to your business group, inspect them and request them",
	}

	cmd.PersistentFlags().String("business-group", "", "business group id (defaults to the configured one)")

	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogShowCommand())
	cmd.AddCommand(newCatalogRequestCommand())

	return cmd
}

// catalogFor builds the catalog listing, honoring --business-group.
func catalogFor(cmd *cobra.Command, c *client.Client) *client.Catalog {
	if businessGroup, _ := cmd.Flags().GetString("business-group"); businessGroup != "" {
		c.SetBusinessGroup(businessGroup)
	}

	return c.Catalog()
}

func newCatalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List catalog items",
		Long:  "List the blueprint catalog items entitled to the selected business group",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			catalog := catalogFor(cmd, c)

			err = loadPage[*client.CatalogItem](cmd, catalog)
			if err != nil {
				return err
			}

			items := catalog.Rows()
			views := make([]catalogItemView, 0, len(items))

			for _, item := range items {
				views = append(views, catalogItemSummary(cmd, item))
			}

			err = render(cmd.OutOrStdout(), views, []string{"Name", "Description", "Blueprint", "Daily Cost"}, func() [][]string {
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					rows = append(rows, []string{view.Name, view.Description, view.BlueprintID, orNotAvailable(view.DailyCost)})
				}

				return rows
			})
			if err != nil {
				return err
			}

			writePageFooter[*client.CatalogItem](cmd.ErrOrStderr(), catalog)

			return nil
		},
	}
}

func catalogItemSummary(cmd *cobra.Command, item *client.CatalogItem) catalogItemView {
	return catalogItemView{
		ID:          item.ID(),
		Name:        item.Name(),
		Description: item.Description(),
		BlueprintID: item.BlueprintID(),
		DailyCost:   item.DailyCost(cmd.Context()),
	}
}

// findCatalogItem looks a catalog item up by id or name.
func findCatalogItem(cmd *cobra.Command, catalog *client.Catalog, nameOrID string) (*client.CatalogItem, error) {
	match := func(item *client.CatalogItem) bool {
		return item.ID() == nameOrID || strings.EqualFold(item.Name(), nameOrID)
	}

	item, found, err := findRow[*client.CatalogItem](cmd.Context(), catalog, nameOrID, match)
	if err != nil {
		return nil, err
	}

	if !found {
		// Ids are not searchable, so scan the unfiltered listing.
		item, found, err = findRow[*client.CatalogItem](cmd.Context(), catalog, "", match)
		if err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", constants.ErrCatalogItemNotFound, nameOrID)
	}

	return item, nil
}

func newCatalogShowCommand() *cobra.Command {
	var leaseDays int

	cmd := &cobra.Command{
		Use:   "show NAME_OR_ID",
		Short: "Show catalog item details",
		Long:  "Display the lease, sizing and daily cost of a catalog item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			item, err := findCatalogItem(cmd, catalogFor(cmd, c), args[0])
			if err != nil {
				return err
			}

			err = item.Wait(cmd.Context())
			if err != nil {
				return err
			}

			detail, err := item.Detail(cmd.Context())
			if err != nil {
				return err
			}

			view := catalogDetailView{
				catalogItemView: catalogItemSummary(cmd, item),
				BusinessGroupID: item.BusinessGroupID(),
				Machine:         detail.BlueprintMachineName,
				LeaseDays:       detail.LeaseDays,
				CPU:             detail.CPU,
				Memory:          detail.Memory,
				Storage:         detail.Storage,
			}

			if leaseDays > 0 {
				view.LeaseDays = leaseDays

				cost, costErr := item.EstimateDailyCost(cmd.Context(), leaseDays)
				if costErr == nil {
					view.DailyCost = cost
				}
			}

			return render(cmd.OutOrStdout(), view, []string{"Property", "Value"}, func() [][]string {
				return [][]string{
					{"ID", view.ID},
					{"Name", view.Name},
					{"Description", orNotAvailable(view.Description)},
					{"Blueprint", orNotAvailable(view.BlueprintID)},
					{"Business Group", orNotAvailable(view.BusinessGroupID)},
					{"Machine", orNotAvailable(view.Machine)},
					{"Lease (days)", orNotAvailable(vra.Stringify(view.LeaseDays))},
					{"CPU", orNotAvailable(vra.Stringify(view.CPU))},
					{"Memory (MB)", orNotAvailable(vra.Stringify(view.Memory))},
					{"Storage (GB)", orNotAvailable(vra.Stringify(view.Storage))},
					{"Daily Cost", orNotAvailable(view.DailyCost)},
				}
			})
		},
	}

	cmd.Flags().IntVar(&leaseDays, "lease", 0, "quote the daily cost for this lease in days")

	return cmd
}

func newCatalogRequestCommand() *cobra.Command {
	var (
		input client.CatalogRequestInput
		wait  bool
	)

	cmd := &cobra.Command{
		Use:   "request NAME_OR_ID",
		Short: "Request a catalog item",
		Long:  "Submit a request for a catalog item, optionally waiting until it is provisioned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			item, err := findCatalogItem(cmd, catalogFor(cmd, c), args[0])
			if err != nil {
				return err
			}

			request, err := item.Submit(cmd.Context(), input)
			if err != nil {
				return err
			}

			if wait && request.ID != "" {
				request, err = c.WaitForRequest(cmd.Context(), request.ID, constants.DefaultPollInterval)
				if err != nil {
					return err
				}
			}

			return render(cmd.OutOrStdout(), request, []string{"Request", "ID", "Item", "Status"}, func() [][]string {
				return [][]string{{
					strconv.Itoa(request.RequestNumber),
					orNotAvailable(request.ID),
					item.Name(),
					orNotAvailable(request.StateName),
				}}
			})
		},
	}

	cmd.Flags().StringVarP(&input.Description, "description", "d", "", "request description")
	cmd.Flags().StringVarP(&input.Reasons, "reasons", "r", "", "reasons for the request")
	cmd.Flags().Float64Var(&input.LeaseDays, "lease", 0, "lease in days (defaults to the blueprint lease)")
	cmd.Flags().StringVar(&input.CostCenter, "cost-center", "", "cost center charged for the machine")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the request completes")

	return cmd
}
