package engine

import (
	"time"

	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/registry"
	"github.com/roach88/sysa/internal/rule"
)

// Result is everything a run produced. Run always returns one, also when it
// stops early.
type Result struct {
	RunID    string
	Snapshot registry.Snapshot
	Failures []Failure
	Firings  []Firing

	// Rounds is the number of rounds executed.
	Rounds int
	// Invocations is the number of rule bodies called.
	Invocations int

	Stats Stats

	perRule map[string]int
}

// Failure is a recorded, isolated failure. Item is -1 unless the invocation
// was a ForEvery invocation.
type Failure struct {
	Code      RuntimeErrorCode
	Rule      string
	Component string
	Item      int
	Round     int
	Err       error
}

// Key returns the invocation the failure is attributed to.
func (f Failure) Key() rule.Key {
	return rule.Key{Rule: f.Rule, Component: f.Component, Item: f.Item}
}

func (f Failure) Error() string {
	return string(f.Code) + " " + f.Key().String() + ": " + f.Err.Error()
}

// Firing records one applied fact and the invocation that produced it.
type Firing struct {
	Seq       int64
	Round     int
	Rule      string
	Component string
	Item      int
	Fact      fact.Fact
	// Changed is true when the fact caused a transition.
	Changed bool
}

// Stats are run counters.
type Stats struct {
	Facts              int
	Transitions        int
	Components         int
	DuplicateCreations int
	CycleChecks        int
	Duration           time.Duration
}

// Fired counts the invocations of a rule, failed ones included.
func (r *Result) Fired(ruleName string) int {
	if r == nil {
		return 0
	}
	return r.perRule[ruleName]
}

// FailuresFor returns the failures attributed to a rule.
func (r *Result) FailuresFor(ruleName string) []Failure {
	var out []Failure
	for _, f := range r.Failures {
		if f.Rule == ruleName {
			out = append(out, f)
		}
	}
	return out
}
