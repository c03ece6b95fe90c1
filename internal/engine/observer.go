package engine

import "github.com/roach88/sysa/internal/rule"

// Observer receives run progress. All methods are called from the run's
// own goroutine, in a deterministic order: RoundStarted, then one
// InvocationFinished per invocation in start order, then one FactApplied
// per applied fact.
type Observer interface {
	RoundStarted(round, pending int)
	InvocationFinished(key rule.Key, err error)
	FactApplied(f Firing)
}

// NopObserver implements Observer with no-ops; embed it to implement only
// some methods.
type NopObserver struct{}

func (NopObserver) RoundStarted(int, int) {}
func (NopObserver) InvocationFinished(rule.Key, error) {}
func (NopObserver) FactApplied(Firing) {}

type observers []Observer

func (os observers) RoundStarted(round, pending int) {
	for _, o := range os {
		o.RoundStarted(round, pending)
	}
}

func (os observers) InvocationFinished(key rule.Key, err error) {
	for _, o := range os {
		o.InvocationFinished(key, err)
	}
}

func (os observers) FactApplied(f Firing) {
	for _, o := range os {
		o.FactApplied(f)
	}
}
