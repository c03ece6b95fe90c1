// Package engine evaluates rules to fixpoint.
//
// A run proceeds in rounds. Each round starts every pending invocation
// concurrently, waits for all of them, then applies the returned facts on
// the run goroutine in start order. Transitions produced by those facts
// schedule the next round's invocations. The run ends when a round
// schedules nothing.
//
// ORDERING:
//
// Start order is declaration order for Once rules and, for triggered
// rules, the order transitions were recorded, then declaration order among
// rules bound to the same slot. Facts are collected from every invocation
// of a round before any of them is applied, so the result does not depend
// on which invocation finished first. Applied facts are stamped from the
// logical Clock; wall-clock time is never used for ordering.
//
// EXACTLY ONCE:
//
// Every invocation has a key (rule, component, item). A key fires at most
// once per run, whatever the number of facts that would trigger it.
//
// FAILURES:
//
// A rule error, a recovered panic, or a fact that cannot be applied is
// recorded as a Failure against the invocation and never stops the run.
// The round's other facts are still applied and nothing is rolled back.
//
// TERMINATION:
//
// Two guards stop rule sets that never settle. The RoundBudget caps the
// number of rounds (NonTerminationError). The CycleDetector stops the run
// as soon as an invocation would repeat a (rule, component, value)
// signature from its own causal chain. Context cancellation is checked
// between rounds and passed to every rule body.
package engine
