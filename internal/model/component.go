// Package model holds component slot state.
//
// A Component owns one cell per schema slot. SetSingle and AppendMulti are
// the only operations that change a cell, and each change that is
// observable is recorded as a Transition in the caller's TransitionLog.
// The evaluation engine reads that log to decide which rules become
// eligible.
//
// Components are mutated only by the registry's apply step. Rule bodies see
// Model values: deep, read-only copies taken before the rule starts.
package model

import (
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

// Details is optional free-text metadata attached to a multi-value item.
type Details struct {
	Labels []string
	Notes  string
}

// Clone returns a copy that shares no memory with d.
func (d Details) Clone() Details {
	if d.Labels == nil {
		return Details{Notes: d.Notes}
	}
	labels := make([]string, len(d.Labels))
	copy(labels, d.Labels)
	return Details{Labels: labels, Notes: d.Notes}
}

// Item is one entry of a multi-value slot.
type Item struct {
	Value   ir.IRValue
	Details Details
}

type cell struct {
	set   bool
	value ir.IRValue
	items []Item
}

// Component is the live slot state of one component.
type Component struct {
	id     string
	schema *schema.Schema
	cells  map[string]*cell
}

// NewComponent creates a component with every slot unset or empty.
func NewComponent(id string, s *schema.Schema) *Component {
	c := &Component{
		id:     id,
		schema: s,
		cells:  make(map[string]*cell, s.Len()),
	}
	for _, name := range s.Names() {
		c.cells[name] = &cell{}
	}
	return c
}

// ID returns the component id.
func (c *Component) ID() string { return c.id }

func (c *Component) check(slotName string, want schema.SlotKind, v ir.IRValue) (*cell, error) {
	slot, ok := c.schema.Slot(slotName)
	if !ok {
		return nil, &UnknownSlotError{Component: c.id, Slot: slotName}
	}
	if slot.Kind != want {
		return nil, &SlotKindError{Component: c.id, Slot: slotName, Want: want, Got: slot.Kind}
	}
	if !slot.Elem.Accepts(v) {
		got := ir.KindOf(v)
		return nil, &TypeMismatchError{
			Component:  c.id,
			Slot:       slotName,
			Want:       slot.Elem,
			Got:        got,
			NestedNull: got != "" && ir.HasNull(v),
		}
	}
	return c.cells[slotName], nil
}

// SetSingle sets a single-value slot.
//
// It returns true and records an OpSet transition when the slot goes from
// unset to set. Setting an already set slot to an equal value returns false
// and records nothing; setting it to a different value is a
// ValueConflictError and leaves the slot unchanged.
func (c *Component) SetSingle(slot string, v ir.IRValue, log *TransitionLog) (bool, error) {
	cl, err := c.check(slot, schema.Single, v)
	if err != nil {
		return false, err
	}
	if cl.set {
		if ir.Equal(cl.value, v) {
			return false, nil
		}
		return false, &ValueConflictError{Component: c.id, Slot: slot, Existing: cl.value, Incoming: v}
	}
	cl.set = true
	cl.value = ir.Clone(v)
	log.Append(Transition{Component: c.id, Slot: slot, Op: OpSet, Value: cl.value, Index: -1})
	return true, nil
}

// AppendMulti appends an item to a multi-value slot and returns its index.
// Every successful call records exactly one OpAdd transition; equal values
// are not deduplicated.
func (c *Component) AppendMulti(slot string, v ir.IRValue, d Details, log *TransitionLog) (int, error) {
	cl, err := c.check(slot, schema.Multi, v)
	if err != nil {
		return -1, err
	}
	item := Item{Value: ir.Clone(v), Details: d.Clone()}
	cl.items = append(cl.items, item)
	idx := len(cl.items) - 1
	log.Append(Transition{Component: c.id, Slot: slot, Op: OpAdd, Value: item.Value, Index: idx, Details: item.Details})
	return idx, nil
}

// Model returns a read-only deep copy of the component.
func (c *Component) Model() Model {
	m := Model{
		id:     c.id,
		schema: c.schema,
		values: make(map[string]ir.IRValue),
		items:  make(map[string][]Item),
	}
	for name, cl := range c.cells {
		if cl.set {
			m.values[name] = ir.Clone(cl.value)
		}
		if len(cl.items) > 0 {
			items := make([]Item, len(cl.items))
			for i, it := range cl.items {
				items[i] = Item{Value: ir.Clone(it.Value), Details: it.Details.Clone()}
			}
			m.items[name] = items
		}
	}
	return m
}
