package model

import (
	"fmt"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

// UnknownSlotError is returned for a slot the schema does not declare.
type UnknownSlotError struct {
	Component string
	Slot      string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("component %q: unknown slot %q", e.Component, e.Slot)
}

// SlotKindError is returned when a single slot is appended to or a multi
// slot is set.
type SlotKindError struct {
	Component string
	Slot      string
	Want      schema.SlotKind
	Got       schema.SlotKind
}

func (e *SlotKindError) Error() string {
	return fmt.Sprintf("component %q: slot %q is %s, used as %s", e.Component, e.Slot, e.Got, e.Want)
}

// TypeMismatchError is returned when a value does not match the slot's
// declared element type.
type TypeMismatchError struct {
	Component  string
	Slot       string
	Want       ir.Kind
	Got        ir.Kind
	// NestedNull is set when the value has the right kind but holds a null.
	NestedNull bool
}

func (e *TypeMismatchError) Error() string {
	got := string(e.Got)
	if got == "" {
		got = "null"
	}
	if e.NestedNull {
		got += " containing null"
	}
	return fmt.Sprintf("component %q: slot %q wants %s, got %s", e.Component, e.Slot, e.Want, got)
}

// ValueConflictError is returned when a set single slot is set again with a
// different value. Setting it again with an equal value is a no-op.
type ValueConflictError struct {
	Component string
	Slot      string
	Existing  ir.IRValue
	Incoming  ir.IRValue
}

func (e *ValueConflictError) Error() string {
	existing, _ := ir.MarshalValue(e.Existing)
	incoming, _ := ir.MarshalValue(e.Incoming)
	return fmt.Sprintf("component %q: slot %q already set to %s, refusing %s",
		e.Component, e.Slot, existing, incoming)
}
