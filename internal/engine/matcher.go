package engine

import (
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/rule"
)

// cause pairs a transition with the invocation whose fact produced it.
type cause struct {
	transition model.Transition
	from       *invocation
}

// keyFor returns the invocation key a transition gives rule r.
func keyFor(r *rule.Rule, t model.Transition) rule.Key {
	item := -1
	if r.Kind == rule.KindForEvery {
		item = t.Index
	}
	return rule.Key{Rule: r.Name, Component: t.Component, Item: item}
}

// match returns the rules triggered by t in declaration order.
func match(rules *rule.Registry, t model.Transition) []*rule.Rule {
	return rules.Triggered(t.Slot, t.Op)
}
