package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/roach88/sysa/internal/ref"
	"github.com/roach88/sysa/internal/rule"
	"github.com/roach88/sysa/internal/schema"
)

// Engine evaluates a rule set to fixpoint.
//
// Configure it with New and options, register rules with Once, For and
// ForEvery, then call Run exactly once.
//
// Thread-safety model:
//   - registration: single goroutine, before Run
//   - Run: one call; rule bodies run concurrently inside it, while
//     fact application and scheduling stay on Run's goroutine
type Engine struct {
	schema *schema.Schema
	rules  *rule.Registry
	refs   *ref.Registry
	clock  *Clock

	maxRounds      int
	concurrency    int
	timeout        time.Duration
	cycleDetection bool
	logger         *slog.Logger
	ids            IDGenerator
	observers      observers

	ran atomic.Bool
}

// New creates an engine for components of schema s.
func New(s *schema.Schema, opts ...Option) *Engine {
	e := &Engine{
		schema:         s,
		rules:          rule.NewRegistry(s),
		refs:           ref.NewRegistry(),
		clock:          NewClock(),
		maxRounds:      DefaultMaxRounds,
		concurrency:    DefaultConcurrency,
		cycleDetection: true,
		logger:         slog.Default(),
		ids:            UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Once registers a rule that runs one time at the start of the run.
func (e *Engine) Once(name string, fn rule.OnceFunc) error {
	if e.ran.Load() {
		return ErrAlreadyRan
	}
	return e.rules.Once(name, fn)
}

// For registers a rule that runs once per component when slot becomes set.
func (e *Engine) For(slot, name string, fn rule.ValueFunc) error {
	if e.ran.Load() {
		return ErrAlreadyRan
	}
	return e.rules.For(slot, name, fn)
}

// ForEvery registers a rule that runs once per item appended to slot.
func (e *Engine) ForEvery(slot, name string, fn rule.ValueFunc) error {
	if e.ran.Load() {
		return ErrAlreadyRan
	}
	return e.rules.ForEvery(slot, name, fn)
}

// ForEveryItem is ForEvery with access to each item's details.
func (e *Engine) ForEveryItem(slot, name string, fn rule.ItemFunc) error {
	if e.ran.Load() {
		return ErrAlreadyRan
	}
	return e.rules.ForEveryItem(slot, name, fn)
}

// Refs returns the reference registry rule bodies resolve against.
func (e *Engine) Refs() *ref.Registry { return e.refs }

// Rules returns the rule registry for introspection.
func (e *Engine) Rules() *rule.Registry { return e.rules }

// Schema returns the component schema.
func (e *Engine) Schema() *schema.Schema { return e.schema }

// Clock returns the clock that stamps applied facts.
func (e *Engine) Clock() *Clock { return e.clock }

// MaxRounds returns the configured round limit.
func (e *Engine) MaxRounds() int { return e.maxRounds }

// Run evaluates the rules to fixpoint and returns the result.
//
// Rule failures and fact application errors are recorded in the result and
// never stop the run. The returned error is non-nil only when the run
// stopped before fixpoint: a *NonTerminationError when the round limit was
// hit, a cycle RuntimeError, or the context's error. The result is never
// nil and holds whatever was built before the stop.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if !e.ran.CompareAndSwap(false, true) {
		return &Result{}, ErrAlreadyRan
	}
	r := newRun(e)
	return r.execute(ctx)
}
