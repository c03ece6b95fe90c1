package fact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

func TestComponent_OneFactPerMutation(t *testing.T) {
	fs := Component("x", Set("team", ir.Str("platform")), Add("links", ir.Str("a")))
	require.Len(t, fs, 2)
	for _, f := range fs {
		assert.Equal(t, "x", f.Component)
		assert.False(t, f.Creates)
	}
	assert.Equal(t, model.OpSet, fs[0].Mutation.Op)
	assert.Equal(t, model.OpAdd, fs[1].Mutation.Op)
}

func TestCreateComponent_MarksCreation(t *testing.T) {
	fs := CreateComponent("x", Set("team", ir.Str("platform")))
	require.Len(t, fs, 1)
	assert.True(t, fs[0].Creates)
}

func TestCreateComponent_NoMutations(t *testing.T) {
	fs := CreateComponent("x")
	require.Len(t, fs, 1)
	assert.True(t, fs[0].Creates)
	assert.True(t, fs[0].IsCreateOnly())
}

func TestAdd_Details(t *testing.T) {
	m := Add("links", ir.Str("http://g"), Labelled("grafana"))
	assert.Equal(t, []string{"grafana"}, m.Details.Labels)

	m = Add("links", ir.Str("http://g"))
	assert.Empty(t, m.Details.Labels)
}

func TestFlatten(t *testing.T) {
	a := Fact{Component: "a"}
	b := Fact{Component: "b"}
	c := Fact{Component: "c"}
	d := Fact{Component: "d"}

	tests := []struct {
		name string
		set  Set
		want []string
	}{
		{"nil", nil, nil},
		{"single fact", a, []string{"a"}},
		{"flat", Facts{a, b}, []string{"a", "b"}},
		{"nested", All(a, All(b, Facts{c}), d), []string{"a", "b", "c", "d"}},
		{"deep", List{List{List{List{a}}}, b}, []string{"a", "b"}},
		{"nil members skipped", All(nil, a, List(nil), nil, b), []string{"a", "b"}},
		{"empty list", List{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, f := range Flatten(tt.set) {
				got = append(got, f.Component)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFact_String(t *testing.T) {
	f := CreateComponent("x", Set("team", ir.Str("platform")))[0]
	assert.Equal(t, `create "x": set team="platform"`, f.String())

	f = Component("x", Add("instances", ir.Str("10.0.0.1")))[0]
	assert.Equal(t, `update "x": add instances="10.0.0.1"`, f.String())
}
