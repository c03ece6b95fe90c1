// Package rule holds the registered rules of an evaluation run.
//
// There are three kinds:
//
//   - Once rules run one time per run, unconditionally, at the start.
//   - For rules are bound to a single slot and run once per component when
//     that slot becomes set.
//   - ForEvery rules are bound to a multi slot and run once per appended item.
//
// Rule names are unique within a registry. They are the key the engine uses
// to record which rule produced which fact and which invocations already ran.
package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

// Kind is the rule kind.
type Kind string

const (
	KindOnce     Kind = "once"
	KindFor      Kind = "for"
	KindForEvery Kind = "for_every"
)

// OnceFunc is the body of a Once rule. It receives a read-only copy of every
// component that exists when the rule starts.
type OnceFunc func(ctx context.Context, components []model.Model) (fact.Set, error)

// ValueFunc is the body of a For or ForEvery rule. It receives the value
// that triggered it and a read-only copy of the component.
type ValueFunc func(ctx context.Context, value ir.IRValue, component model.Model) (fact.Set, error)

// ItemFunc is a ForEvery body that also needs the item's details.
type ItemFunc func(ctx context.Context, item model.Item, component model.Model) (fact.Set, error)

var (
	ErrInvalidRule      = errors.New("invalid rule")
	ErrUnknownSlot      = errors.New("selector names an undeclared slot")
	ErrSelectorKind     = errors.New("selector slot has the wrong kind")
	ErrIncompatibleRule = errors.New("rule name already registered with a different kind or selector")
	ErrDuplicateRule    = errors.New("rule already registered")
)

// Rule is one registered rule.
type Rule struct {
	Name string
	Kind Kind
	// Slot is the selector; empty for Once rules.
	Slot string

	index int
	once  OnceFunc
	item  ItemFunc
}

// Index is the rule's position in declaration order.
func (r *Rule) Index() int { return r.index }

// Op is the transition that triggers the rule: OpSet for For, OpAdd for
// ForEvery, empty for Once.
func (r *Rule) Op() model.Op {
	switch r.Kind {
	case KindFor:
		return model.OpSet
	case KindForEvery:
		return model.OpAdd
	}
	return ""
}

// RunOnce invokes a Once rule body.
func (r *Rule) RunOnce(ctx context.Context, components []model.Model) (fact.Set, error) {
	if r.once == nil {
		return nil, fmt.Errorf("rule %q is %s, not once", r.Name, r.Kind)
	}
	return r.once(ctx, components)
}

// RunItem invokes a For or ForEvery rule body. For rules receive the set
// value as an item with empty details.
func (r *Rule) RunItem(ctx context.Context, item model.Item, component model.Model) (fact.Set, error) {
	if r.item == nil {
		return nil, fmt.Errorf("rule %q is %s, not triggered", r.Name, r.Kind)
	}
	return r.item(ctx, item, component)
}

func (r *Rule) String() string {
	if r.Slot == "" {
		return fmt.Sprintf("%s %q", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s(%s) %q", r.Kind, r.Slot, r.Name)
}

// Key identifies one invocation for exactly-once bookkeeping. Item is the
// item index for ForEvery rules and -1 otherwise; Component is empty for
// Once rules.
type Key struct {
	Rule      string
	Component string
	Item      int
}

func (k Key) String() string {
	switch {
	case k.Component == "":
		return k.Rule
	case k.Item < 0:
		return k.Rule + "@" + k.Component
	default:
		return fmt.Sprintf("%s@%s[%d]", k.Rule, k.Component, k.Item)
	}
}
