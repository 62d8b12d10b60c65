package client_test

import (
	"testing"

	"github.com/fivetwenty-io/vra/internal/client"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"github.com/stretchr/testify/assert"
)

func facet(kind string, value any) vra.Facet {
	return vra.Facet{
		Type: kind,
		Value: &vra.FacetClause{
			Type:  "constantClause",
			Value: &vra.TypedValue{Type: "integer", Value: value},
		},
	}
}

func TestEffectiveValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		facets []vra.Facet
		want   any
	}{
		{name: "no facets", facets: nil, want: nil},
		{name: "min only", facets: []vra.Facet{facet("minValue", 1.0)}, want: 1.0},
		{name: "default beats min", facets: []vra.Facet{facet("minValue", 1.0), facet("defaultValue", 2.0)}, want: 2.0},
		{name: "min after default loses", facets: []vra.Facet{facet("defaultValue", 2.0), facet("minValue", 1.0)}, want: 2.0},
		{name: "derived wins", facets: []vra.Facet{facet("defaultValue", 2.0), facet("derivedValue", 4.0), facet("minValue", 1.0)}, want: 4.0},
		{name: "unknown facets ignored", facets: []vra.Facet{facet("maxValue", 8.0)}, want: nil},
		{name: "facet without value", facets: []vra.Facet{{Type: "defaultValue"}}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, client.EffectiveValue(tt.facets))
		})
	}
}

func TestItemDetailFromSchema(t *testing.T) {
	t.Parallel()

	machine := func(cpu float64) vra.Field {
		return vra.Field{
			ID: "vSphere_Machine_1",
			DataType: vra.DataType{Type: "complex", Schema: &vra.Schema{Fields: []vra.Field{
				{ID: "cpu", State: vra.FieldState{Facets: []vra.Facet{facet("defaultValue", cpu)}}},
				{ID: "memory", State: vra.FieldState{Facets: []vra.Facet{facet("minValue", 1024.0)}}},
				{ID: "storage", State: vra.FieldState{Facets: []vra.Facet{facet("derivedValue", 40.0)}}},
			}}},
		}
	}

	second := machine(8)
	second.ID = "vSphere_Machine_2"

	schema := &vra.Schema{Fields: []vra.Field{
		{ID: "_leaseDays", State: vra.FieldState{Facets: []vra.Facet{facet("defaultValue", 30.0)}}},
		machine(2),
		second,
	}}

	detail := client.ItemDetailFromSchema(schema)
	assert.Equal(t, "vSphere_Machine_1", detail.BlueprintMachineName)
	assert.Equal(t, 30.0, detail.LeaseDays)
	assert.Equal(t, 2.0, detail.CPU)
	assert.Equal(t, 1024.0, detail.Memory)
	assert.Equal(t, 40.0, detail.Storage)
	assert.Same(t, schema, detail.Schema)

	empty := client.ItemDetailFromSchema(nil)
	assert.Empty(t, empty.BlueprintMachineName)
	assert.Nil(t, empty.CPU)
}
