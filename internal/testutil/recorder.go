package testutil

import (
	"sync"

	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/rule"
)

// Invocation is one finished invocation seen by a Recorder.
type Invocation struct {
	Round int
	Key   rule.Key
	Err   error
}

// Recorder is an engine.Observer that keeps everything it is told.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex,
// so a test may read while a run is in progress.
type Recorder struct {
	mu          sync.Mutex
	round       int
	pending     []int
	invocations []Invocation
	facts       []engine.Firing
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RoundStarted implements engine.Observer.
func (r *Recorder) RoundStarted(round, pending int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round = round
	r.pending = append(r.pending, pending)
}

// InvocationFinished implements engine.Observer.
func (r *Recorder) InvocationFinished(key rule.Key, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invocations = append(r.invocations, Invocation{Round: r.round, Key: key, Err: err})
}

// FactApplied implements engine.Observer.
func (r *Recorder) FactApplied(f engine.Firing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.facts = append(r.facts, f)
}

// Pending returns the number of pending invocations at the start of each
// round, indexed by round-1.
func (r *Recorder) Pending() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.pending...)
}

// Invocations returns the finished invocations in the order reported.
func (r *Recorder) Invocations() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Invocation(nil), r.invocations...)
}

// Facts returns the applied facts in the order reported.
func (r *Recorder) Facts() []engine.Firing {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]engine.Firing(nil), r.facts...)
}

// Reset clears everything recorded.
//
// Used for test reuse.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.round = 0
	r.pending = nil
	r.invocations = nil
	r.facts = nil
}

var _ engine.Observer = (*Recorder)(nil)
