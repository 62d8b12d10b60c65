package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fivetwenty-io/vra/internal/action"
	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/snapshot"
	"github.com/spf13/cobra"
)

type machineView struct {
	ID        string     `json:"id"                   yaml:"id"`
	Name      string     `json:"name"                 yaml:"name"`
	Status    string     `json:"status"               yaml:"status"`
	CPU       string     `json:"cpu,omitempty"        yaml:"cpu,omitempty"`
	Memory    string     `json:"memory,omitempty"     yaml:"memory,omitempty"`
	Storage   string     `json:"storage,omitempty"    yaml:"storage,omitempty"`
	DailyCost string     `json:"daily_cost,omitempty" yaml:"daily_cost,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Actions   []string   `json:"actions"              yaml:"actions"`
}

func newMachineView(machine *client.MachineItem) machineView {
	view := machineView{
		ID:        machine.ID(),
		Name:      machine.Name(),
		Status:    machine.Resource().Status,
		CPU:       machine.CPU(),
		Memory:    machine.Memory(),
		Storage:   machine.Storage(),
		DailyCost: machine.DailyCost(),
		Actions:   actionNames(machine.Actions()),
	}

	if expires, ok := machine.ExpirationDate(); ok {
		view.ExpiresAt = &expires
	}

	return view
}

func (v machineView) expires() string {
	if v.ExpiresAt == nil {
		return constants.NotAvailable
	}

	return v.ExpiresAt.Format(constants.LeaseDateFormat)
}

func actionNames(set *action.Set) []string {
	capabilities := set.Ordered()
	names := make([]string, 0, len(capabilities))

	for _, capability := range capabilities {
		names = append(names, capability.Name())
	}

	return names
}

// NewMachinesCommand creates the machines command group.
func NewMachinesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "machines",
		Aliases: []string{"machine", "vm", "vms"},
		Short:   "Manage your provisioned machines",
		Long:    "List your machines and run the lifecycle actions they offer",
	}

	cmd.AddCommand(newMachinesListCommand())
	cmd.AddCommand(newMachinesShowCommand())
	cmd.AddCommand(newMachinesActionsCommand())
	cmd.AddCommand(newMachinesRunCommand())
	cmd.AddCommand(newMachinesLeaseCommand())
	cmd.AddCommand(newMachinesSnapshotsCommand())

	return cmd
}

func newMachinesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List machines",
		Long:  "List the virtual machines you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machines := c.Machines()

			err = loadPage[*client.MachineItem](cmd, machines)
			if err != nil {
				return err
			}

			rows := machines.Rows()
			views := make([]machineView, 0, len(rows))

			for _, row := range rows {
				views = append(views, newMachineView(row))
			}

			err = render(cmd.OutOrStdout(), views, []string{"Name", "Status", "CPU", "Memory (MB)", "Storage (GB)", "Daily Cost", "Expires"}, func() [][]string {
				table := make([][]string, 0, len(views))
				for _, view := range views {
					table = append(table, []string{
						view.Name,
						view.Status,
						orNotAvailable(view.CPU),
						orNotAvailable(view.Memory),
						orNotAvailable(view.Storage),
						orNotAvailable(view.DailyCost),
						view.expires(),
					})
				}

				return table
			})
			if err != nil {
				return err
			}

			writePageFooter[*client.MachineItem](cmd.ErrOrStderr(), machines)

			return nil
		},
	}
}

// findMachine looks a machine up by resource id or name.
func findMachine(cmd *cobra.Command, c *client.Client, nameOrID string) (*client.MachineItem, error) {
	match := func(machine *client.MachineItem) bool {
		return machine.ID() == nameOrID || strings.EqualFold(machine.Name(), nameOrID)
	}

	machines := c.Machines()

	machine, found, err := findRow[*client.MachineItem](cmd.Context(), machines, nameOrID, match)
	if err != nil {
		return nil, err
	}

	if !found {
		machine, found, err = findRow[*client.MachineItem](cmd.Context(), machines, "", match)
		if err != nil {
			return nil, err
		}
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", constants.ErrMachineNotFound, nameOrID)
	}

	return machine, nil
}

func newMachinesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME_OR_ID",
		Short: "Show machine details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			view := newMachineView(machine)

			return render(cmd.OutOrStdout(), view, []string{"Property", "Value"}, func() [][]string {
				return [][]string{
					{"ID", view.ID},
					{"Name", view.Name},
					{"Status", view.Status},
					{"CPU", orNotAvailable(view.CPU)},
					{"Memory (MB)", orNotAvailable(view.Memory)},
					{"Storage (GB)", orNotAvailable(view.Storage)},
					{"Daily Cost", orNotAvailable(view.DailyCost)},
					{"Expires", view.expires()},
					{"Actions", orNotAvailable(strings.Join(view.Actions, ", "))},
				}
			})
		},
	}
}

func newMachinesActionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "actions NAME_OR_ID",
		Short: "List the actions a machine offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			capabilities := machine.Actions().Ordered()

			type actionView struct {
				Name     string `json:"name"      yaml:"name"`
				ActionID string `json:"action_id" yaml:"action_id"`
				HasForm  bool   `json:"has_form"  yaml:"has_form"`
			}

			views := make([]actionView, 0, len(capabilities))
			for _, capability := range capabilities {
				views = append(views, actionView{
					Name:     capability.Name(),
					ActionID: capability.ActionID(),
					HasForm:  capability.HasForm(),
				})
			}

			return render(cmd.OutOrStdout(), views, []string{"Action", "ID", "Input"}, func() [][]string {
				rows := make([][]string, 0, len(views))
				for _, view := range views {
					input := "none"
					if view.HasForm {
						input = "form"
					}

					rows = append(rows, []string{view.Name, view.ActionID, input})
				}

				return rows
			})
		},
	}
}

// reportOutcome prints the status the server answered a submission with.
func reportOutcome(w io.Writer) func(*action.Outcome) {
	return func(outcome *action.Outcome) {
		if outcome.StatusCode != 0 {
			_, _ = fmt.Fprintf(w, "Server answered %d\n", outcome.StatusCode)
		}
	}
}

func newMachinesRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME_OR_ID ACTION",
		Short: "Run a machine action",
		Long:  "Run an action that takes no input, such as power-off, reboot or destroy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := action.LookupKind(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", constants.ErrActionNotAvailable, args[1])
			}

			if kind.HasForm() {
				return fmt.Errorf("%s: %w", kind, constants.ErrActionNeedsInput)
			}

			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			return machine.Run(cmd.Context(), kind, verboseOutcome(cmd))
		},
	}
}

// verboseOutcome reports the raw server status when --verbose is set.
func verboseOutcome(cmd *cobra.Command) func(*action.Outcome) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return nil
	}

	return reportOutcome(cmd.ErrOrStderr())
}

func newMachinesLeaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lease NAME_OR_ID YYYY-MM-DD",
		Short: "Change a machine lease",
		Long:  "Move the lease expiration of a machine to the given date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			expires, err := time.Parse(constants.LeaseDateFormat, args[1])
			if err != nil {
				return fmt.Errorf("%w: %s", constants.ErrInvalidLeaseDate, args[1])
			}

			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			return machine.ChangeLease(cmd.Context(), expires, verboseOutcome(cmd))
		},
	}
}

func newMachinesSnapshotsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"snapshot", "snap"},
		Short:   "Manage machine snapshots",
	}

	cmd.AddCommand(newSnapshotsTreeCommand())
	cmd.AddCommand(newSnapshotsCreateCommand())
	cmd.AddCommand(newSnapshotsNodeCommand("revert", "Revert a machine to a snapshot", (*client.MachineItem).RevertSnapshot))
	cmd.AddCommand(newSnapshotsNodeCommand("delete", "Delete a snapshot", (*client.MachineItem).DeleteSnapshot))

	return cmd
}

func newSnapshotsTreeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tree NAME_OR_ID",
		Short: "Show the snapshot tree of a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			root, err := machine.SnapshotTree(cmd.Context())
			if root == nil {
				return err
			}

			out := cmd.OutOrStdout()
			if root.Len() == 0 {
				_, _ = fmt.Fprintln(out, "No snapshots")
			}

			_ = root.Walk(func(node *snapshot.Node, depth int) error {
				if node.IsRoot() {
					return nil
				}

				_, _ = fmt.Fprintf(out, "%s%s (%s)\n", strings.Repeat("  ", depth-1), node.Label, node.ID)

				return nil
			})

			return err
		},
	}
}

func newSnapshotsCreateCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "create NAME_OR_ID",
		Short: "Take a snapshot",
		Long:  "Take a snapshot of a machine, named after the proposed default unless --name is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			return machine.CreateSnapshot(cmd.Context(), name, verboseOutcome(cmd))
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "snapshot name")

	return cmd
}

// snapshotAction is a machine method acting on one snapshot.
type snapshotAction func(*client.MachineItem, context.Context, *snapshot.Node, func(*action.Outcome)) error

func newSnapshotsNodeCommand(use, short string, run snapshotAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME_OR_ID SNAPSHOT",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, _, err := sessionClient(cmd)
			if err != nil {
				return err
			}

			machine, err := findMachine(cmd, c, args[0])
			if err != nil {
				return err
			}

			root, err := machine.SnapshotTree(cmd.Context())
			if root == nil {
				return err
			}

			node := findSnapshot(root, args[1])
			if node == nil {
				return fmt.Errorf("%w: %s", constants.ErrSnapshotNotFound, args[1])
			}

			return run(machine, cmd.Context(), node, verboseOutcome(cmd))
		},
	}
}

// findSnapshot matches a snapshot by id, then by label.
func findSnapshot(root *snapshot.Node, idOrLabel string) *snapshot.Node {
	if node := root.Find(idOrLabel); node != nil && !node.IsRoot() {
		return node
	}

	var found *snapshot.Node

	_ = root.Walk(func(node *snapshot.Node, _ int) error {
		if found == nil && !node.IsRoot() && node.Label == idOrLabel {
			found = node
		}

		return nil
	})

	return found
}
