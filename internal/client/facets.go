package client

import (
	"github.com/fivetwenty-io/vra/internal/constants"
	"github.com/fivetwenty-io/vra/pkg/vra"
)

// EffectiveValue resolves the value a field's facets imply. A derived value
// wins outright, then a default value, then a minimum. Nil when none exist.
func EffectiveValue(facets []vra.Facet) any {
	var (
		value    any
		priority = 3
	)

	for _, facet := range facets {
		switch facet.Type {
		case vra.FacetDerivedValue:
			return facet.Inner()
		case vra.FacetDefaultValue:
			if priority > 1 {
				priority = 1
				value = facet.Inner()
			}
		case vra.FacetMinValue:
			if priority > 2 {
				priority = 2
				value = facet.Inner()
			}
		}
	}

	return value
}

// ItemDetail is the sizing information read from a catalog request schema.
// Only the first blueprint machine of the schema is considered.
type ItemDetail struct {
	BlueprintMachineName string      `json:"blueprintMachineName,omitempty" yaml:"blueprint_machine_name,omitempty"`
	LeaseDays            any         `json:"leaseDays,omitempty"            yaml:"lease_days,omitempty"`
	CPU                  any         `json:"cpu,omitempty"                  yaml:"cpu,omitempty"`
	Memory               any         `json:"memory,omitempty"               yaml:"memory,omitempty"`
	Storage              any         `json:"storage,omitempty"              yaml:"storage,omitempty"`
	Schema               *vra.Schema `json:"-"                              yaml:"-"`
}

// ItemDetailFromSchema extracts the lease and the first machine's sizing
// from schema.
func ItemDetailFromSchema(schema *vra.Schema) *ItemDetail {
	detail := &ItemDetail{Schema: schema}
	if schema == nil {
		return detail
	}

	machineFound := false

	for _, field := range schema.Fields {
		switch {
		case field.ID == constants.LeaseDaysField:
			detail.LeaseDays = EffectiveValue(field.State.Facets)
		case field.DataType.Schema != nil && !machineFound:
			detail.BlueprintMachineName = field.ID
			machineFound = true

			for _, machineField := range field.DataType.Schema.Fields {
				switch machineField.ID {
				case "cpu":
					detail.CPU = EffectiveValue(machineField.State.Facets)
				case "memory":
					detail.Memory = EffectiveValue(machineField.State.Facets)
				case "storage":
					detail.Storage = EffectiveValue(machineField.State.Facets)
				}
			}
		}
	}

	return detail
}
