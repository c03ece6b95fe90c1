package harness

import (
	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/store"
)

// TraceEvent is one applied fact as read back from the provenance store.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Round     int    `json:"round"`
	Rule      string `json:"rule"`
	Component string `json:"component,omitempty"`
	Target    string `json:"target"`
	Creates   bool   `json:"creates,omitempty"`
	Op        string `json:"op,omitempty"`
	Slot      string `json:"slot,omitempty"`
	Value     any    `json:"value,omitempty"`
}

func traceEvent(f store.FiringRecord) TraceEvent {
	ev := TraceEvent{
		Seq:       f.Seq,
		Round:     f.Round,
		Rule:      f.Rule,
		Component: f.Component,
		Target:    f.Fact.Component,
		Creates:   f.Fact.Creates,
		Op:        string(f.Fact.Mutation.Op),
		Slot:      f.Fact.Mutation.Slot,
	}
	if f.Fact.Mutation.Value != nil {
		ev.Value = ir.ToAny(f.Fact.Mutation.Value)
	}
	return ev
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the run ended as expected and all assertions hold.
	Pass bool `json:"pass"`

	RunID string `json:"run_id"`

	// Trace contains all applied facts in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Pending is the number of invocations at the start of each round.
	Pending []int `json:"pending"`

	// Engine is the raw run result and RunErr what Run returned.
	Engine *engine.Result `json:"-"`
	RunErr error          `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		Pending: []int{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
