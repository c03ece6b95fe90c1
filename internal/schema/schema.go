// Package schema declares the slots every component carries.
//
// A Schema is built once, before any rule runs, and never changes during a
// run. Each slot has a name, a kind (single or multi) and an element type.
// Conflicting declarations are rejected when the schema is built, not
// discovered while facts are being applied.
package schema

import (
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/ir"
)

// SlotKind distinguishes single-value slots from multi-value slots.
type SlotKind string

const (
	// Single slots are unset or hold exactly one value.
	Single SlotKind = "single"
	// Multi slots hold an ordered, append-only list of items.
	Multi SlotKind = "multi"
)

// ParseSlotKind validates a slot kind name.
func ParseSlotKind(s string) (SlotKind, error) {
	switch SlotKind(s) {
	case Single, Multi:
		return SlotKind(s), nil
	}
	return "", fmt.Errorf("unknown slot kind %q (want %q or %q)", s, Single, Multi)
}

// Slot is one declared slot.
type Slot struct {
	Name string
	Kind SlotKind
	Elem ir.Kind
	Doc  string
}

// ErrEmptyName is returned for a slot declared without a name.
var ErrEmptyName = errors.New("slot name is empty")

// ConflictError reports two incompatible declarations of the same slot.
type ConflictError struct {
	Name     string
	Existing Slot
	Incoming Slot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %q declared as %s %s, redeclared as %s %s",
		e.Name, e.Existing.Kind, e.Existing.Elem, e.Incoming.Kind, e.Incoming.Elem)
}

// Schema is an immutable set of slot declarations in declaration order.
type Schema struct {
	slots []Slot
	index map[string]int
}

// Slot looks up a slot by name.
func (s *Schema) Slot(name string) (Slot, bool) {
	if s == nil {
		return Slot{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Slot{}, false
	}
	return s.slots[i], true
}

// Slots returns all slots in declaration order.
func (s *Schema) Slots() []Slot {
	if s == nil {
		return nil
	}
	out := make([]Slot, len(s.slots))
	copy(out, s.slots)
	return out
}

// Names returns slot names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.slots))
	for i, sl := range s.slots {
		names[i] = sl.Name
	}
	return names
}

// Len returns the number of declared slots.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Builder collects slot declarations. The zero value is ready to use.
//
// Errors are collected and reported together by Build, so a builder can be
// chained:
//
//	s, err := new(schema.Builder).
//		Single("team", ir.KindString).
//		Multi("links", ir.KindObject).
//		Build()
type Builder struct {
	slots []Slot
	index map[string]int
	errs  []error
}

// Single declares a single-value slot.
func (b *Builder) Single(name string, elem ir.Kind) *Builder {
	return b.Declare(Slot{Name: name, Kind: Single, Elem: elem})
}

// Multi declares a multi-value slot.
func (b *Builder) Multi(name string, elem ir.Kind) *Builder {
	return b.Declare(Slot{Name: name, Kind: Multi, Elem: elem})
}

// Declare adds a slot. Redeclaring an identical slot is a no-op (the first
// doc string wins); redeclaring with a different kind or element type is a
// ConflictError.
func (b *Builder) Declare(slot Slot) *Builder {
	if b.index == nil {
		b.index = make(map[string]int)
	}
	if slot.Name == "" {
		b.errs = append(b.errs, ErrEmptyName)
		return b
	}
	if slot.Elem == "" {
		slot.Elem = ir.KindAny
	}
	if _, err := ParseSlotKind(string(slot.Kind)); err != nil {
		b.errs = append(b.errs, fmt.Errorf("slot %q: %w", slot.Name, err))
		return b
	}
	if _, err := ir.ParseKind(string(slot.Elem)); err != nil {
		b.errs = append(b.errs, fmt.Errorf("slot %q: %w", slot.Name, err))
		return b
	}
	if i, ok := b.index[slot.Name]; ok {
		existing := b.slots[i]
		if existing.Kind != slot.Kind || existing.Elem != slot.Elem {
			b.errs = append(b.errs, &ConflictError{Name: slot.Name, Existing: existing, Incoming: slot})
		}
		return b
	}
	b.index[slot.Name] = len(b.slots)
	b.slots = append(b.slots, slot)
	return b
}

// Merge declares every slot of other, in other's order.
func (b *Builder) Merge(other *Schema) *Builder {
	for _, sl := range other.Slots() {
		b.Declare(sl)
	}
	return b
}

// Build validates the declarations and returns the schema.
func (b *Builder) Build() (*Schema, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	s := &Schema{
		slots: make([]Slot, len(b.slots)),
		index: make(map[string]int, len(b.slots)),
	}
	copy(s.slots, b.slots)
	for i, sl := range s.slots {
		s.index[sl.Name] = i
	}
	return s, nil
}

// MustBuild is Build that panics on error. For package-level schemas whose
// declarations are fixed in code.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}
