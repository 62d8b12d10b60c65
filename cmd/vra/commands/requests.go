package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/spf13/cobra"
)

type requestView struct {
	ID        string                `json:"id"                  yaml:"id"`
	Number    int                   `json:"number"              yaml:"number"`
	Item      string                `json:"item"                yaml:"item"`
	Status    string                `json:"status"              yaml:"status"`
	Submitted *time.Time            `json:"submitted,omitempty" yaml:"submitted,omitempty"`
	Detail    *client.RequestDetail `json:"detail,omitempty"    yaml:"detail,omitempty"`
}

func newRequestView(request vra.Request) requestView {
	return requestView{
		ID:        request.ID,
		Number:    request.RequestNumber,
		Item:      request.RequestedItemName,
		Status:    request.StateName,
		Submitted: request.DateSubmitted,
	}
}

func (v requestView) submitted() string {
	if v.Submitted == nil {
		return constants.NotAvailable
	}

	return v.Submitted.Local().Format("2006-01-02 15:04")
}

// NewRequestsCommand creates the requests command group.
func NewRequestsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"request", "req"},
		Short:   "Follow your catalog requests",
		Long:    "List the blueprint requests you submitted and inspect their outcome",
	}

	cmd.AddCommand(newRequestsListCommand())
	cmd.AddCommand(newRequestsShowCommand())

	return cmd
}

func newRequestsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List requests",
		Long:  "List your blueprint requests, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			requests := c.Requests()

			err = loadPage[*client.RequestItem](cmd, requests)
			if err != nil {
				return err
			}

			rows := requests.Rows()
			views := make([]requestView, 0, len(rows))

			for _, row := range rows {
				views = append(views, newRequestView(row.Request()))
			}

			err = render(cmd.OutOrStdout(), views, []string{"#", "Item", "Status", "Submitted"}, func() [][]string {
				table := make([][]string, 0, len(views))
				for _, view := range views {
					table = append(table, []string{strconv.Itoa(view.Number), view.Item, view.Status, view.submitted()})
				}

				return table
			})
			if err != nil {
				return err
			}

			writePageFooter[*client.RequestItem](cmd.ErrOrStderr(), requests)

			return nil
		},
	}
}

func newRequestsShowCommand() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "show NUMBER_OR_ID",
		Short: "Show request details",
		Long:  "Display the sizing, lease and cost a request resolved to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			item, found, err := findRow[*client.RequestItem](cmd.Context(), c.Requests(), "", func(row *client.RequestItem) bool {
				request := row.Request()

				return request.ID == args[0] || strconv.Itoa(request.RequestNumber) == args[0]
			})
			if err != nil {
				return err
			}

			if !found {
				return fmt.Errorf("%w: %s", constants.ErrRequestNotFound, args[0])
			}

			view := newRequestView(item.Request())

			if wait {
				request, waitErr := c.WaitForRequest(cmd.Context(), view.ID, constants.DefaultPollInterval)
				if request != nil {
					view.Status = request.StateName
				}

				if waitErr != nil {
					return waitErr
				}
			}

			view.Detail, err = item.Detail(cmd.Context())
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), view, []string{"Property", "Value"}, func() [][]string {
				return [][]string{
					{"Request", strconv.Itoa(view.Number)},
					{"ID", view.ID},
					{"Item", view.Item},
					{"Status", orNotAvailable(view.Status)},
					{"Submitted", view.submitted()},
					{"CPU", orNotAvailable(vra.Stringify(view.Detail.CPU))},
					{"Memory (MB)", orNotAvailable(vra.Stringify(view.Detail.Memory))},
					{"Storage (GB)", orNotAvailable(vra.Stringify(view.Detail.Storage))},
					{"Cost Center", orNotAvailable(vra.Stringify(view.Detail.CostCenter))},
					{"Lease (days)", orNotAvailable(vra.Stringify(view.Detail.LeaseDays))},
					{"Daily Cost", orNotAvailable(view.Detail.DailyCost)},
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the request completes")

	return cmd
}
