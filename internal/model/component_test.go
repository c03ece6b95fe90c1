package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

func testSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := new(schema.Builder).
		Single("team", ir.KindString).
		Single("meta", ir.KindAny).
		Multi("links", ir.KindString).
		Build()
	require.NoError(t, err)
	return s
}

// =============================================================================
// SetSingle
// =============================================================================

func TestSetSingle_FirstSetTransitions(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	var log TransitionLog

	changed, err := c.SetSingle("team", ir.Str("platform"), &log)
	require.NoError(t, err)
	assert.True(t, changed)

	require.Equal(t, 1, log.Len())
	ev := log.Events()[0]
	assert.Equal(t, "x", ev.Component)
	assert.Equal(t, "team", ev.Slot)
	assert.Equal(t, OpSet, ev.Op)
	assert.Equal(t, ir.Str("platform"), ev.Value)
	assert.Equal(t, -1, ev.Index)
}

func TestSetSingle_EqualValueIsNoOp(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	var log TransitionLog

	_, err := c.SetSingle("team", ir.Str("platform"), &log)
	require.NoError(t, err)

	changed, err := c.SetSingle("team", ir.Str("platform"), &log)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, log.Len(), "no second transition")
}

func TestSetSingle_DifferentValueConflicts(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	var log TransitionLog

	_, err := c.SetSingle("team", ir.Str("platform"), &log)
	require.NoError(t, err)

	_, err = c.SetSingle("team", ir.Str("payments"), &log)
	var vc *ValueConflictError
	require.True(t, errors.As(err, &vc))
	assert.Equal(t, ir.Str("platform"), vc.Existing)
	assert.Equal(t, ir.Str("payments"), vc.Incoming)

	v, _ := c.Model().String("team")
	assert.Equal(t, "platform", v, "slot keeps its first value")
}

func TestSetSingle_Errors(t *testing.T) {
	tests := []struct {
		name  string
		slot  string
		value ir.IRValue
		check func(t *testing.T, err error)
	}{
		{"unknown slot", "nope", ir.Str("a"), func(t *testing.T, err error) {
			var e *UnknownSlotError
			assert.True(t, errors.As(err, &e))
		}},
		{"multi slot", "links", ir.Str("a"), func(t *testing.T, err error) {
			var e *SlotKindError
			assert.True(t, errors.As(err, &e))
		}},
		{"wrong type", "team", ir.Int(1), func(t *testing.T, err error) {
			var e *TypeMismatchError
			require.True(t, errors.As(err, &e))
			assert.Equal(t, ir.KindString, e.Want)
			assert.Equal(t, ir.KindInt, e.Got)
		}},
		{"null value", "meta", ir.IRNull{}, func(t *testing.T, err error) {
			var e *TypeMismatchError
			assert.True(t, errors.As(err, &e))
		}},
		{"nested null", "meta", ir.Obj(ir.P("owner", ir.IRNull{}), ir.P("path", ir.Str("x"))), func(t *testing.T, err error) {
			var e *TypeMismatchError
			require.True(t, errors.As(err, &e))
			assert.True(t, e.NestedNull)
			assert.Equal(t, ir.KindObject, e.Got)
			assert.Contains(t, err.Error(), "object containing null")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComponent("x", testSchema(t))
			var log TransitionLog
			_, err := c.SetSingle(tt.slot, tt.value, &log)
			require.Error(t, err)
			tt.check(t, err)
			assert.Equal(t, 0, log.Len())
		})
	}
}

// =============================================================================
// AppendMulti
// =============================================================================

func TestAppendMulti_EveryCallTransitions(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	var log TransitionLog

	for i, v := range []string{"a", "b", "a"} {
		idx, err := c.AppendMulti("links", ir.Str(v), Details{}, &log)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}

	require.Equal(t, 3, log.Len())
	for i, ev := range log.Events() {
		assert.Equal(t, OpAdd, ev.Op)
		assert.Equal(t, i, ev.Index)
	}
	assert.Equal(t, []ir.IRValue{ir.Str("a"), ir.Str("b"), ir.Str("a")}, c.Model().Values("links"))
}

func TestAppendMulti_KeepsDetails(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	labels := []string{"grafana"}

	_, err := c.AppendMulti("links", ir.Str("http://g"), Details{Labels: labels, Notes: "from README"}, nil)
	require.NoError(t, err)
	labels[0] = "mutated"

	items := c.Model().Items("links")
	require.Len(t, items, 1)
	assert.Equal(t, []string{"grafana"}, items[0].Details.Labels)
	assert.Equal(t, "from README", items[0].Details.Notes)
}

func TestAppendMulti_SingleSlotRejected(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	_, err := c.AppendMulti("team", ir.Str("a"), Details{}, nil)
	var e *SlotKindError
	assert.True(t, errors.As(err, &e))
}

// =============================================================================
// Model
// =============================================================================

func TestModel_IsACopy(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	_, err := c.SetSingle("meta", ir.Obj(ir.P("k", ir.Str("v"))), nil)
	require.NoError(t, err)

	m := c.Model()
	v, ok := m.Get("meta")
	require.True(t, ok)
	v.(ir.IRObject)["k"] = ir.Str("changed")

	again, _ := c.Model().Get("meta")
	assert.Equal(t, ir.Str("v"), again.(ir.IRObject)["k"])
}

func TestModel_HasAndLen(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	m := c.Model()
	assert.False(t, m.Has("team"))
	assert.Equal(t, 0, m.Len("links"))

	_, _ = c.SetSingle("team", ir.Str("t"), nil)
	_, _ = c.AppendMulti("links", ir.Str("a"), Details{}, nil)
	_, _ = c.AppendMulti("links", ir.Str("b"), Details{}, nil)

	m = c.Model()
	assert.True(t, m.Has("team"))
	assert.Equal(t, 1, m.Len("team"))
	assert.Equal(t, 2, m.Len("links"))
	assert.True(t, m.Has("links"))
	assert.Equal(t, "x", m.ID())
}

func TestModel_Canonical(t *testing.T) {
	c := NewComponent("x", testSchema(t))
	_, _ = c.SetSingle("team", ir.Str("platform"), nil)
	_, _ = c.AppendMulti("links", ir.Str("http://g"), Details{Labels: []string{"grafana"}}, nil)

	b, err := ir.MarshalCanonical(c.Model().Canonical())
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"x","slots":{"links":[{"labels":["grafana"],"value":"http://g"}],"team":"platform"}}`,
		string(b))
}

func TestTransitionLog_NilSafe(t *testing.T) {
	var nilLog *TransitionLog
	nilLog.Append(Transition{})
	assert.Equal(t, 0, nilLog.Len())
	assert.Nil(t, nilLog.Events())

	var log TransitionLog
	log.Append(Transition{Slot: "a"})
	assert.Equal(t, 1, log.Len())
}
