package rule

import (
	"context"
	"fmt"

	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/schema"
)

// Registry holds rules in declaration order. It is not safe for concurrent
// registration; rules are registered before a run starts.
type Registry struct {
	schema  *schema.Schema
	rules   []*Rule
	byName  map[string]*Rule
	bySlot  map[string][]*Rule
	onceIdx []*Rule
}

// NewRegistry returns an empty registry whose selectors are checked
// against s.
func NewRegistry(s *schema.Schema) *Registry {
	return &Registry{
		schema: s,
		byName: make(map[string]*Rule),
		bySlot: make(map[string][]*Rule),
	}
}

// Once registers a rule that runs once per run.
func (r *Registry) Once(name string, fn OnceFunc) error {
	if fn == nil {
		return fmt.Errorf("once %q: nil function: %w", name, ErrInvalidRule)
	}
	return r.add(&Rule{Name: name, Kind: KindOnce, once: fn})
}

// For registers a rule that runs once per component when slot becomes set.
func (r *Registry) For(slot, name string, fn ValueFunc) error {
	if fn == nil {
		return fmt.Errorf("for %q: nil function: %w", name, ErrInvalidRule)
	}
	return r.add(&Rule{Name: name, Kind: KindFor, Slot: slot, item: valueToItem(fn)})
}

// ForEvery registers a rule that runs once per item appended to slot.
func (r *Registry) ForEvery(slot, name string, fn ValueFunc) error {
	if fn == nil {
		return fmt.Errorf("for every %q: nil function: %w", name, ErrInvalidRule)
	}
	return r.add(&Rule{Name: name, Kind: KindForEvery, Slot: slot, item: valueToItem(fn)})
}

// ForEveryItem is ForEvery with access to each item's details.
func (r *Registry) ForEveryItem(slot, name string, fn ItemFunc) error {
	if fn == nil {
		return fmt.Errorf("for every %q: nil function: %w", name, ErrInvalidRule)
	}
	return r.add(&Rule{Name: name, Kind: KindForEvery, Slot: slot, item: fn})
}

func valueToItem(fn ValueFunc) ItemFunc {
	return func(ctx context.Context, item model.Item, c model.Model) (fact.Set, error) {
		return fn(ctx, item.Value, c)
	}
}

func (r *Registry) add(rl *Rule) error {
	if rl.Name == "" {
		return fmt.Errorf("%s: empty name: %w", rl.Kind, ErrInvalidRule)
	}
	if existing, ok := r.byName[rl.Name]; ok {
		if existing.Kind != rl.Kind || existing.Slot != rl.Slot {
			return fmt.Errorf("%s conflicts with %s: %w", rl, existing, ErrIncompatibleRule)
		}
		return fmt.Errorf("%s: %w", rl, ErrDuplicateRule)
	}
	if rl.Kind != KindOnce {
		slot, ok := r.schema.Slot(rl.Slot)
		if !ok {
			return fmt.Errorf("%s: %w", rl, ErrUnknownSlot)
		}
		want := schema.Single
		if rl.Kind == KindForEvery {
			want = schema.Multi
		}
		if slot.Kind != want {
			return fmt.Errorf("%s: slot %q is %s: %w", rl, rl.Slot, slot.Kind, ErrSelectorKind)
		}
	}

	rl.index = len(r.rules)
	r.rules = append(r.rules, rl)
	r.byName[rl.Name] = rl
	if rl.Kind == KindOnce {
		r.onceIdx = append(r.onceIdx, rl)
	} else {
		r.bySlot[rl.Slot] = append(r.bySlot[rl.Slot], rl)
	}
	return nil
}

// Onces returns the Once rules in declaration order.
func (r *Registry) Onces() []*Rule {
	return append([]*Rule(nil), r.onceIdx...)
}

// Triggered returns the rules a transition of slot with op triggers, in
// declaration order.
func (r *Registry) Triggered(slot string, op model.Op) []*Rule {
	var out []*Rule
	for _, rl := range r.bySlot[slot] {
		if rl.Op() == op {
			out = append(out, rl)
		}
	}
	return out
}

// Rule looks up a rule by name.
func (r *Registry) Rule(name string) (*Rule, bool) {
	rl, ok := r.byName[name]
	return rl, ok
}

// Rules returns every rule in declaration order.
func (r *Registry) Rules() []*Rule {
	return append([]*Rule(nil), r.rules...)
}

// Len returns the number of registered rules.
func (r *Registry) Len() int { return len(r.rules) }

// Schema returns the schema selectors are checked against.
func (r *Registry) Schema() *schema.Schema { return r.schema }
