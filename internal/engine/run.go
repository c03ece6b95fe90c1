package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/sysa/internal/ctxlog"
	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/registry"
	"github.com/roach88/sysa/internal/rule"
)

// run is the state of one Run call.
type run struct {
	e       *Engine
	id      string
	logger  *slog.Logger
	reg     *registry.Registry
	queue   *pendingQueue
	budget  *RoundBudget
	cycles  *CycleDetector
	result  *Result
	stopErr error
}

// outcome is what one invocation returned.
type outcome struct {
	inv   *invocation
	facts []fact.Fact
	err   error
	took  time.Duration
}

func newRun(e *Engine) *run {
	id := e.ids.Generate()
	logger := e.logger.With("run_id", id)
	return &run{
		e:      e,
		id:     id,
		logger: logger,
		reg:    registry.New(e.schema, registry.WithLogger(logger)),
		queue:  newPendingQueue(),
		budget: NewRoundBudget(e.maxRounds),
		cycles: NewCycleDetector(e.cycleDetection),
		result: &Result{RunID: id, perRule: make(map[string]int)},
	}
}

func (r *run) execute(ctx context.Context) (*Result, error) {
	start := time.Now()
	r.logger.Info("run starting", "rules", r.e.rules.Len(), "max_rounds", r.e.maxRounds)

	for _, rl := range r.e.rules.Onces() {
		r.schedule(rl, rule.Key{Rule: rl.Name, Item: -1}, model.Item{}, nil)
	}

	var err error
	for r.queue.Len() > 0 {
		if err = ctx.Err(); err != nil {
			r.logger.Warn("run cancelled", "round", r.result.Rounds, "pending", r.queue.Len(), "error", err)
			break
		}
		if err = r.budget.Check(r.id, r.queue.Len()); err != nil {
			r.logger.Error("round limit reached",
				"rounds", r.result.Rounds,
				"limit", r.budget.MaxRounds(),
				"pending", r.queue.Len(),
			)
			break
		}
		r.result.Rounds = r.budget.Current()
		r.round(ctx, r.result.Rounds, r.queue.Drain())
		if r.stopErr != nil {
			err = r.stopErr
			break
		}
	}

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	r.result.Snapshot = r.reg.Snapshot()
	r.result.Stats.Components = r.reg.Len()
	r.result.Stats.DuplicateCreations = r.reg.DuplicateCreations()
	r.result.Stats.CycleChecks = r.cycles.Checks()
	r.result.Stats.Duration = time.Since(start)

	if err == nil {
		r.logger.Info("fixpoint reached",
			"rounds", r.result.Rounds,
			"invocations", r.result.Invocations,
			"components", r.result.Stats.Components,
			"failures", len(r.result.Failures),
		)
	}
	return r.result, err
}

// round runs one round: invoke everything pending, apply the facts in start
// order, and queue what the resulting transitions trigger.
func (r *run) round(ctx context.Context, round int, pending []*invocation) {
	r.logger.Info("round started", "round", round, "pending", len(pending))
	r.e.observers.RoundStarted(round, len(pending))

	outcomes := r.invokeAll(ctx, pending)

	var log model.TransitionLog
	var causes []cause
	for _, out := range outcomes {
		r.result.Invocations++
		r.result.perRule[out.inv.key.Rule]++
		r.e.observers.InvocationFinished(out.inv.key, out.err)

		if out.err != nil {
			r.fail(round, out.inv.key, out.err)
			continue
		}
		r.logger.Debug("invocation finished",
			"rule", out.inv.key.Rule,
			"component", out.inv.key.Component,
			"item", out.inv.key.Item,
			"facts", len(out.facts),
			"took", out.took,
		)

		for _, f := range out.facts {
			before := log.Len()
			if err := r.reg.Apply(f, &log); err != nil {
				r.fail(round, out.inv.key, fmt.Errorf("apply %s: %w", f, err))
				continue
			}
			changed := log.Len() > before
			for _, t := range log.Events()[before:] {
				causes = append(causes, cause{transition: t, from: out.inv})
			}

			firing := Firing{
				Seq:       r.e.clock.Next(),
				Round:     round,
				Rule:      out.inv.key.Rule,
				Component: out.inv.key.Component,
				Item:      out.inv.key.Item,
				Fact:      f,
				Changed:   changed,
			}
			r.result.Firings = append(r.result.Firings, firing)
			r.result.Stats.Facts++
			r.e.observers.FactApplied(firing)
		}
	}
	r.result.Stats.Transitions += log.Len()

	for _, c := range causes {
		for _, rl := range match(r.e.rules, c.transition) {
			item := model.Item{Value: ir.Clone(c.transition.Value), Details: c.transition.Details.Clone()}
			r.schedule(rl, keyFor(rl, c.transition), item, c.from.lineage)
			if r.stopErr != nil {
				return
			}
		}
	}
}

// schedule queues an invocation of rl unless key already fired or the
// invocation would repeat its own cause. Signatures are only computed while
// cycle detection is on.
func (r *run) schedule(rl *rule.Rule, key rule.Key, item model.Item, parent *lineage) {
	if r.queue.Claimed(key) {
		return
	}
	var sig string
	if r.cycles.Enabled() {
		var err error
		sig, err = Signature(rl.Name, key.Component, item.Value)
		if err != nil {
			r.queue.Claim(key)
			r.fail(r.result.Rounds, key, fmt.Errorf("signature: %w", err))
			return
		}
	}
	r.queue.Claim(key)
	if r.cycles.WouldCycle(parent, sig) {
		cerr := NewCycleError(r.id, rl.Name, key.Component, sig, parent.depth)
		r.logger.Error("cycle detected",
			"rule", rl.Name,
			"component", key.Component,
			"item", key.Item,
			"depth", parent.depth,
		)
		r.fail(r.result.Rounds, key, cerr)
		r.stopErr = cerr
		return
	}
	r.queue.Push(&invocation{
		key:     key,
		rule:    rl,
		item:    item,
		lineage: parent.extend(sig),
	})
}

// invokeAll starts every invocation concurrently, bounded by the engine's
// concurrency, and returns their outcomes in start order.
func (r *run) invokeAll(ctx context.Context, pending []*invocation) []outcome {
	// Rule bodies get copies taken here, before any of them start.
	var all []model.Model
	views := make([]model.Model, len(pending))
	for i, inv := range pending {
		if inv.rule.Kind == rule.KindOnce {
			if all == nil {
				all = r.reg.Models()
			}
			continue
		}
		if c, ok := r.reg.Get(inv.key.Component); ok {
			views[i] = c.Model()
		}
	}

	outcomes := make([]outcome, len(pending))
	var g errgroup.Group
	if r.e.concurrency > 0 {
		g.SetLimit(r.e.concurrency)
	}
	for i, inv := range pending {
		g.Go(func() error {
			outcomes[i] = r.invoke(ctx, inv, all, views[i])
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (r *run) invoke(ctx context.Context, inv *invocation, all []model.Model, view model.Model) (out outcome) {
	out.inv = inv
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("rule panicked", "rule", inv.key.Rule, "component", inv.key.Component, "panic", p, "stack", string(debug.Stack()))
			out.facts = nil
			out.err = &panicError{value: p}
		}
		out.took = time.Since(start)
	}()

	if r.e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.e.timeout)
		defer cancel()
	}
	ctx = ctxlog.WithLogger(ctx, r.logger.With("rule", inv.key.Rule, "component", inv.key.Component))

	var (
		set fact.Set
		err error
	)
	if inv.rule.Kind == rule.KindOnce {
		set, err = inv.rule.RunOnce(ctx, all)
	} else {
		set, err = inv.rule.RunItem(ctx, inv.item, view)
	}
	if err != nil {
		out.err = err
		return out
	}
	out.facts = fact.Flatten(set)
	return out
}

func (r *run) fail(round int, key rule.Key, err error) {
	f := Failure{
		Code:      Classify(err),
		Rule:      key.Rule,
		Component: key.Component,
		Item:      key.Item,
		Round:     round,
		Err:       err,
	}
	r.logger.Warn("failure recorded",
		"code", f.Code,
		"rule", f.Rule,
		"component", f.Component,
		"item", f.Item,
		"round", round,
		"error", err,
	)
	r.result.Failures = append(r.result.Failures, f)
}
