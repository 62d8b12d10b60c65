// Package snapshot builds the snapshot hierarchy of a machine by walking the
// permitted values of its snapshot reference field.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/fivetwenty-io/vra/internal/action"
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"golang.org/x/sync/errgroup"
)

// ErrNoSnapshotCapability is returned when a machine offers neither revert
// nor delete snapshot.
var ErrNoSnapshotCapability = errors.New("machine has no snapshot capability")

// ValuesSource looks up the permitted values of a form field.
type ValuesSource interface {
	FetchPermittedValues(ctx context.Context, fieldID string, form *vra.Form, associate any) (*vra.PermittedValues, error)
}

// Node is one snapshot. The root is synthetic and has no underlying value.
type Node struct {
	ID              string
	Label           string
	UnderlyingValue map[string]any

	root     bool
	mu       sync.Mutex
	children []*Node
}

func newNode(value vra.PermittedValue) *Node {
	return &Node{
		ID:              value.ID(),
		Label:           value.Label,
		UnderlyingValue: value.UnderlyingValue,
	}
}

// IsRoot reports whether n is the synthetic root.
func (n *Node) IsRoot() bool {
	return n.root
}

// Children returns the direct children in the order they were attached.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]*Node(nil), n.children...)
}

func (n *Node) addChild(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.children = append(n.children, child)
}

// Walk visits n and its descendants depth first. Siblings are visited in
// label order. A non-nil error from fn stops the walk.
func (n *Node) Walk(fn func(node *Node, depth int) error) error {
	return n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) error, depth int) error {
	err := fn(n, depth)
	if err != nil {
		return err
	}

	children := n.Children()
	sort.SliceStable(children, func(i, j int) bool { return children[i].Label < children[j].Label })

	for _, child := range children {
		err = child.walk(fn, depth+1)
		if err != nil {
			return err
		}
	}

	return nil
}

// Find returns the descendant with the given id, or nil.
func (n *Node) Find(id string) *Node {
	var found *Node

	_ = n.Walk(func(node *Node, _ int) error {
		if !node.IsRoot() && node.ID == id {
			found = node

			return errStop
		}

		return nil
	})

	return found
}

// Len returns the number of snapshots below n.
func (n *Node) Len() int {
	count := 0

	_ = n.Walk(func(node *Node, _ int) error {
		if node != n {
			count++
		}

		return nil
	})

	return count
}

var errStop = errors.New("stop walk")

// Build fetches the snapshot tree described by form. Sibling lookups run
// concurrently and every branch runs to completion. On failure the first
// error is returned together with the part of the tree that was resolved.
//
// Values without an underlying value cannot be referenced by an action and
// are skipped. Only values carrying an id are expanded, each id at most once.
func Build(ctx context.Context, source ValuesSource, form *vra.Form) (*Node, error) {
	b := &builder{
		source: source,
		form:   form,
		seen:   make(map[string]struct{}),
	}

	root := &Node{root: true}

	b.expand(ctx, root)

	err := b.group.Wait()

	return root, err
}

type builder struct {
	source ValuesSource
	form   *vra.Form
	group  errgroup.Group

	mu   sync.Mutex
	seen map[string]struct{}
}

// claim reports whether id has not been expanded yet and marks it.
func (b *builder) claim(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[id]; ok {
		return false
	}

	b.seen[id] = struct{}{}

	return true
}

func (b *builder) expand(ctx context.Context, node *Node) {
	b.group.Go(func() error {
		var associate any
		if !node.IsRoot() {
			associate = node.UnderlyingValue
		}

		permitted, err := b.source.FetchPermittedValues(ctx, constants.SnapshotReferenceField, b.form, associate)
		if err != nil {
			return fmt.Errorf("listing snapshots below %q: %w", node.Label, err)
		}

		for _, value := range permitted.Values {
			if value.UnderlyingValue == nil {
				continue
			}

			id := value.ID()
			if id == "" {
				node.addChild(newNode(value))

				continue
			}

			if !b.claim(id) {
				continue
			}

			child := newNode(value)
			node.addChild(child)
			b.expand(ctx, child)
		}

		return nil
	})
}

// ForCapabilities builds the tree through the revert snapshot capability,
// or the delete snapshot capability when revert is not offered.
func ForCapabilities(ctx context.Context, set *action.Set) (*Node, error) {
	capability, ok := set.Get(action.RevertSnapshot)
	if !ok {
		capability, ok = set.Get(action.DeleteSnapshot)
	}

	if !ok {
		return nil, ErrNoSnapshotCapability
	}

	form, err := capability.FetchFormDefinition(ctx)
	if err != nil {
		return nil, err
	}

	return Build(ctx, capability, form)
}
