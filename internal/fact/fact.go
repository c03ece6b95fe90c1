// Package fact defines the mutation requests rule bodies return.
//
// A Fact is pure data: it names a target component, one slot mutation, and
// whether the fact may create the component. Rules build facts with
// Component and CreateComponent, group them freely with All, and the engine
// flattens whatever they return into one ordered sequence with Flatten.
package fact

import (
	"fmt"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

// Mutation is one slot change: Op model.OpSet for a single slot or
// model.OpAdd for an item appended to a multi slot.
type Mutation struct {
	Op      model.Op
	Slot    string
	Value   ir.IRValue
	Details model.Details
}

// Set returns a mutation that sets a single slot.
func Set(slot string, v ir.IRValue) Mutation {
	return Mutation{Op: model.OpSet, Slot: slot, Value: v}
}

// Add returns a mutation that appends an item to a multi slot. At most one
// Details is used.
func Add(slot string, v ir.IRValue, details ...model.Details) Mutation {
	m := Mutation{Op: model.OpAdd, Slot: slot, Value: v}
	if len(details) > 0 {
		m.Details = details[0]
	}
	return m
}

// Labelled is shorthand for Details with labels only.
func Labelled(labels ...string) model.Details {
	return model.Details{Labels: labels}
}

func (m Mutation) String() string {
	b, err := ir.MarshalValue(m.Value)
	if err != nil {
		b = []byte("?")
	}
	return fmt.Sprintf("%s %s=%s", m.Op, m.Slot, b)
}

// Fact targets one component with one mutation.
type Fact struct {
	Component string
	Mutation  Mutation
	Creates   bool
}

func (f Fact) String() string {
	verb := "update"
	if f.Creates {
		verb = "create"
	}
	return fmt.Sprintf("%s %q: %s", verb, f.Component, f.Mutation)
}

// Set is what a rule returns: a Fact, a Facts slice, or a List of further
// sets nested to any depth. A nil Set contributes nothing.
type Set interface {
	appendTo(dst []Fact) []Fact
}

func (f Fact) appendTo(dst []Fact) []Fact { return append(dst, f) }

// Facts is a flat group of facts.
type Facts []Fact

func (fs Facts) appendTo(dst []Fact) []Fact { return append(dst, fs...) }

// List is an ordered group of sets.
type List []Set

func (l List) appendTo(dst []Fact) []Fact {
	for _, s := range l {
		if s != nil {
			dst = s.appendTo(dst)
		}
	}
	return dst
}

// Component returns one non-creating fact per mutation, targeting id.
func Component(id string, muts ...Mutation) Facts {
	return build(id, false, muts)
}

// CreateComponent returns one creating fact per mutation, targeting id. With
// no mutations it returns a single fact that only creates the component.
func CreateComponent(id string, muts ...Mutation) Facts {
	if len(muts) == 0 {
		return Facts{{Component: id, Creates: true}}
	}
	return build(id, true, muts)
}

func build(id string, creates bool, muts []Mutation) Facts {
	out := make(Facts, len(muts))
	for i, m := range muts {
		out[i] = Fact{Component: id, Mutation: m, Creates: creates}
	}
	return out
}

// All groups sets in order.
func All(sets ...Set) Set {
	return List(sets)
}

// Flatten returns the facts of s depth-first, in the order they were built.
func Flatten(s Set) []Fact {
	if s == nil {
		return nil
	}
	return s.appendTo(nil)
}

// IsCreateOnly reports whether f carries no mutation.
func (f Fact) IsCreateOnly() bool {
	return f.Mutation.Op == ""
}
