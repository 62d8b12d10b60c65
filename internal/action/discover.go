package action

import (
	"context"
	"regexp"

	"github.com/fivetwenty-io/vra/pkg/vra"
)

var (
	templateRelation = regexp.MustCompile(`^GET\sTemplate:.*action`)
	submitRelation   = regexp.MustCompile(`^POST:.*action`)
	relationName     = regexp.MustCompile(`\.(\w+)\}$`)
	hrefActionID     = regexp.MustCompile(`actions/([A-Za-z0-9\-]*)/`)
)

// Set is the capabilities discovered on one resource.
type Set struct {
	resourceID   string
	capabilities map[Kind]*Capability
}

// Discover scans links for action template relations, creates one
// capability per recognized action and binds the matching submit
// relations. Each capability starts loading its template immediately.
// Relations that do not look like actions are skipped.
func Discover(ctx context.Context, resourceID string, links []vra.Link, deps Deps) *Set {
	deps = deps.withDefaults()

	set := &Set{
		resourceID:   resourceID,
		capabilities: make(map[Kind]*Capability),
	}

	for _, link := range links {
		if !templateRelation.MatchString(link.Rel) {
			continue
		}

		kind, ok := kindOf(link.Rel)
		if !ok {
			continue
		}

		match := hrefActionID.FindStringSubmatch(link.Href)
		if match == nil {
			deps.Logger.Debug("Skipping action link without an action id", map[string]interface{}{
				"rel":  link.Rel,
				"href": link.Href,
			})

			continue
		}

		set.capabilities[kind] = newCapability(ctx, kind, resourceID, match[1], link.Href, deps)
	}

	for _, link := range links {
		if !submitRelation.MatchString(link.Rel) {
			continue
		}

		kind, ok := kindOf(link.Rel)
		if !ok {
			continue
		}

		if capability, exists := set.capabilities[kind]; exists {
			capability.submitURL = link.Href
		}
	}

	return set
}

func kindOf(relation string) (Kind, bool) {
	match := relationName.FindStringSubmatch(relation)
	if match == nil {
		return 0, false
	}

	return ParseKind(match[1])
}

// ResourceID returns the resource the set belongs to.
func (s *Set) ResourceID() string {
	return s.resourceID
}

// Get returns the capability of the given kind.
func (s *Set) Get(kind Kind) (*Capability, bool) {
	capability, ok := s.capabilities[kind]

	return capability, ok
}

// Len returns the number of capabilities.
func (s *Set) Len() int {
	return len(s.capabilities)
}

// Ordered returns the capabilities in presentation order. Only one of
// PowerOn and PowerOff is included, PowerOn first.
func (s *Set) Ordered() []*Capability {
	ordered := make([]*Capability, 0, len(s.capabilities))

	for _, kind := range presentation {
		capability, ok := s.capabilities[kind]
		if !ok && kind == PowerOn {
			capability, ok = s.capabilities[PowerOff]
		}

		if ok {
			ordered = append(ordered, capability)
		}
	}

	return ordered
}
