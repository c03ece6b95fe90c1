package engine

import (
	"log/slog"
	"time"

	"github.com/roach88/sysa/internal/ref"
)

// DefaultConcurrency bounds how many invocations of one round run at once.
const DefaultConcurrency = 16

// Option configures an Engine.
type Option func(*Engine)

// WithMaxRounds sets the round limit. Values below 1 are ignored.
//
// Default: 100 rounds (DefaultMaxRounds).
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithConcurrency bounds concurrent invocations per round; 0 means
// unbounded.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.concurrency = n
		}
	}
}

// WithInvocationTimeout gives every rule invocation its own deadline.
// A timed out invocation is a rule failure.
func WithInvocationTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithCycleDetection turns the causal cycle detector on or off. It is on
// by default.
func WithCycleDetection(enabled bool) Option {
	return func(e *Engine) {
		e.cycleDetection = enabled
	}
}

// WithLogger sets the engine logger. Rule bodies receive a child of it
// through their context.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRunID fixes the run id.
func WithRunID(id string) Option {
	return WithIDGenerator(NewFixedGenerator(id))
}

// WithIDGenerator sets the run id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		if g != nil {
			e.ids = g
		}
	}
}

// WithObserver adds an observer. Several observers are called in the order
// they were added.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithReferences sets the reference registry rule bodies resolve against.
func WithReferences(r *ref.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.refs = r
		}
	}
}
