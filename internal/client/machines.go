package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fivetwenty-io/vra/internal/action"
	"github.com/fivetwenty-io/vra/internal/async"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/internal/snapshot"
	"github.com/fivetwenty-io/vra/internal/table"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// Static errors for err113 compliance.
var (
	ErrActionUnavailable = errors.New("action not offered by machine")
	ErrInvalidSnapshot   = errors.New("not a snapshot of the machine")
)

type machineListing struct {
	client *Client
}

func (machineListing) Endpoint() string { return constants.EndpointResourceViews }

func (l machineListing) Filters() []string {
	return []string{
		vra.EqFilter("resourceType", constants.VirtualMachineResourceType),
		vra.EqFilter("owners/ref", l.client.Username()),
	}
}

func (machineListing) DefaultSort() (string, bool) { return "name", false }
func (machineListing) SearchField() string         { return "name" }
func (machineListing) ExtendedData() bool          { return true }
func (machineListing) Operations() bool            { return true }

func (l machineListing) RenderRow(ctx context.Context, row vra.ResourceView) *MachineItem {
	return newMachineItem(ctx, l.client, row)
}

// Machines creates the listing of virtual machines owned by the session user.
func (c *Client) Machines(opts ...table.Option) *table.View[vra.ResourceView, *MachineItem] {
	return table.New[vra.ResourceView, *MachineItem](c.registry, machineListing{client: c}, c.viewOptions(opts)...)
}

// MachineItem is the companion of one machine row: its capabilities and,
// when the machine offers snapshot operations, its snapshot tree.
type MachineItem struct {
	resource  vra.ResourceView
	actions   *action.Set
	snapshots *async.Future[*snapshot.Node]
}

func newMachineItem(ctx context.Context, client *Client, resource vra.ResourceView) *MachineItem {
	item := &MachineItem{
		resource: resource,
		actions:  action.Discover(ctx, resource.ResourceID, resource.Links, client.actionDeps()),
	}

	_, canRevert := item.actions.Get(action.RevertSnapshot)
	_, canDelete := item.actions.Get(action.DeleteSnapshot)

	if canRevert || canDelete {
		item.snapshots = async.Go(ctx, func(ctx context.Context) (*snapshot.Node, error) {
			return snapshot.ForCapabilities(ctx, item.actions)
		})
	}

	return item
}

// Resource returns the listing row.
func (m *MachineItem) Resource() vra.ResourceView {
	return m.resource
}

// ID returns the resource id.
func (m *MachineItem) ID() string {
	return m.resource.ResourceID
}

// Name returns the machine name.
func (m *MachineItem) Name() string {
	return m.resource.Name
}

// Actions returns the machine's capabilities.
func (m *MachineItem) Actions() *action.Set {
	return m.actions
}

// DailyCost is the lease rate with a dollar sign, empty when unknown.
func (m *MachineItem) DailyCost() string {
	if m.resource.Costs == nil || m.resource.Costs.LeaseRate == nil {
		return ""
	}

	return "$" + vra.Stringify(m.resource.Costs.LeaseRate.Cost.Amount)
}

// CPU returns the machine's CPU count from extended data.
func (m *MachineItem) CPU() string {
	return m.resource.DataString("MachineCPU")
}

// Memory returns the machine's memory from extended data.
func (m *MachineItem) Memory() string {
	return m.resource.DataString("MachineMemory")
}

// Storage returns the machine's storage from extended data.
func (m *MachineItem) Storage() string {
	return m.resource.DataString("MachineStorage")
}

// ExpirationDate returns the lease expiration, if the machine has one.
func (m *MachineItem) ExpirationDate() (time.Time, bool) {
	value := m.resource.DataString("MachineExpirationDate")
	if value == "" {
		return time.Time{}, false
	}

	expires, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, false
	}

	return expires, true
}

// HasSnapshots reports whether the machine offers a snapshot tree.
func (m *MachineItem) HasSnapshots() bool {
	return m.snapshots != nil
}

// SnapshotTree waits for the snapshot tree. A partially built tree may be
// returned together with an error.
func (m *MachineItem) SnapshotTree(ctx context.Context) (*snapshot.Node, error) {
	if m.snapshots == nil {
		return nil, snapshot.ErrNoSnapshotCapability
	}

	return m.snapshots.Wait(ctx)
}

func (m *MachineItem) capability(kind action.Kind) (*action.Capability, error) {
	capability, ok := m.actions.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionUnavailable, kind)
	}

	return capability, nil
}

// Run executes a capability that takes no input.
func (m *MachineItem) Run(ctx context.Context, kind action.Kind, done func(*action.Outcome)) error {
	capability, err := m.capability(kind)
	if err != nil {
		return err
	}

	return capability.Execute(ctx, nil, done)
}

func (m *MachineItem) executeWith(ctx context.Context, kind action.Kind, field string, value any, done func(*action.Outcome)) error {
	capability, err := m.capability(kind)
	if err != nil {
		return err
	}

	payload, err := capability.CloneTemplate(ctx)
	if err != nil {
		return err
	}

	payload.SetData(field, value)

	return capability.Execute(ctx, payload, done)
}

// ChangeLease moves the lease expiration to expires.
func (m *MachineItem) ChangeLease(ctx context.Context, expires time.Time, done func(*action.Outcome)) error {
	return m.executeWith(ctx, action.ChangeLease, constants.ExpirationDateField,
		expires.UTC().Format(constants.ExpirationTimestampFormat), done)
}

// DefaultSnapshotName is the snapshot name proposed by the create snapshot
// template.
func (m *MachineItem) DefaultSnapshotName(ctx context.Context) (string, error) {
	capability, err := m.capability(action.CreateSnapshot)
	if err != nil {
		return "", err
	}

	template, err := capability.Template(ctx)
	if err != nil {
		return "", err
	}

	if template == nil {
		return "", nil
	}

	return vra.Stringify(template.Data()[constants.SnapshotNameField]), nil
}

// CreateSnapshot takes a snapshot. An empty name keeps the proposed name.
func (m *MachineItem) CreateSnapshot(ctx context.Context, name string, done func(*action.Outcome)) error {
	if name == "" {
		proposed, err := m.DefaultSnapshotName(ctx)
		if err != nil {
			return err
		}

		name = proposed
	}

	return m.executeWith(ctx, action.CreateSnapshot, constants.SnapshotNameField, name, done)
}

// RevertSnapshot reverts the machine to node.
func (m *MachineItem) RevertSnapshot(ctx context.Context, node *snapshot.Node, done func(*action.Outcome)) error {
	if !isSnapshot(node) {
		return ErrInvalidSnapshot
	}

	return m.executeWith(ctx, action.RevertSnapshot, constants.SnapshotReferenceField, node.UnderlyingValue, done)
}

// DeleteSnapshot deletes node.
func (m *MachineItem) DeleteSnapshot(ctx context.Context, node *snapshot.Node, done func(*action.Outcome)) error {
	if !isSnapshot(node) {
		return ErrInvalidSnapshot
	}

	return m.executeWith(ctx, action.DeleteSnapshot, constants.SnapshotReferenceField, node.UnderlyingValue, done)
}

func isSnapshot(node *snapshot.Node) bool {
	return node != nil && !node.IsRoot() && node.UnderlyingValue != nil
}
