package model

import (
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

// Model is a read-only copy of a component, handed to rule bodies and
// returned in snapshots. Accessors return copies; mutating them does not
// affect the registry.
type Model struct {
	id     string
	schema *schema.Schema
	values map[string]ir.IRValue
	items  map[string][]Item
}

// ID returns the component id.
func (m Model) ID() string { return m.id }

// Get returns the value of a single slot, if set.
func (m Model) Get(slot string) (ir.IRValue, bool) {
	v, ok := m.values[slot]
	if !ok {
		return nil, false
	}
	return ir.Clone(v), true
}

// String returns a single slot's value when it is set and a string.
func (m Model) String(slot string) (string, bool) {
	v, ok := m.values[slot].(ir.IRString)
	return string(v), ok
}

// Items returns the items of a multi slot in append order.
func (m Model) Items(slot string) []Item {
	src := m.items[slot]
	if len(src) == 0 {
		return nil
	}
	out := make([]Item, len(src))
	for i, it := range src {
		out[i] = Item{Value: ir.Clone(it.Value), Details: it.Details.Clone()}
	}
	return out
}

// Values returns only the values of a multi slot's items.
func (m Model) Values(slot string) []ir.IRValue {
	src := m.items[slot]
	if len(src) == 0 {
		return nil
	}
	out := make([]ir.IRValue, len(src))
	for i, it := range src {
		out[i] = ir.Clone(it.Value)
	}
	return out
}

// Has reports whether a single slot is set or a multi slot is non-empty.
func (m Model) Has(slot string) bool {
	if _, ok := m.values[slot]; ok {
		return true
	}
	return len(m.items[slot]) > 0
}

// Len returns the number of items in a multi slot, or 1/0 for a set/unset
// single slot.
func (m Model) Len(slot string) int {
	if _, ok := m.values[slot]; ok {
		return 1
	}
	return len(m.items[slot])
}

// Schema returns the schema the component was created with.
func (m Model) Schema() *schema.Schema { return m.schema }

// Canonical returns the model as plain data suitable for ir.MarshalCanonical:
//
//	{"id": "x", "slots": {"team": "platform", "links": [{"value": {...}, "labels": [...], "notes": "..."}]}}
//
// Unset single slots and empty multi slots are omitted; labels and notes are
// omitted when empty.
func (m Model) Canonical() map[string]any {
	slots := make(map[string]any)
	for name, v := range m.values {
		slots[name] = v
	}
	for name, items := range m.items {
		list := make([]any, len(items))
		for i, it := range items {
			entry := map[string]any{"value": it.Value}
			if len(it.Details.Labels) > 0 {
				labels := make([]any, len(it.Details.Labels))
				for j, l := range it.Details.Labels {
					labels[j] = l
				}
				entry["labels"] = labels
			}
			if it.Details.Notes != "" {
				entry["notes"] = it.Details.Notes
			}
			list[i] = entry
		}
		slots[name] = list
	}
	return map[string]any{"id": m.id, "slots": slots}
}
