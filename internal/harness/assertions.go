package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sysa/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] r%d %s -> %s %s %s %v\n", ev.Seq, ev.Round, ev.Rule, ev.Target, ev.Op, ev.Slot, ev.Value)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	if result.Engine == nil {
		return fmt.Errorf("no run result")
	}
	switch a.Type {
	case AssertSlotEquals:
		return assertSlotEquals(result, a)
	case AssertItemsEqual:
		return assertItemsEqual(result, a)
	case AssertComponentCount:
		return assertComponentCount(result, a)
	case AssertFiredCount:
		return assertCount(a.Type, fmt.Sprintf("rule %q fired", a.Rule), result.Engine.Fired(a.Rule), *a.Count)
	case AssertNoFailures:
		return assertNoFailures(result)
	case AssertFailureCount:
		return assertFailureCount(result, a)
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertRounds:
		return assertCount(a.Type, "rounds", result.Engine.Rounds, *a.Count)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertCount(typ, what string, got, want int) error {
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %d times", what, want),
		Actual:   fmt.Sprintf("%d", got),
	}
}

func assertSlotEquals(result *Result, a Assertion) error {
	m, ok := result.Engine.Snapshot.Get(a.Component)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("component %q", a.Component), Actual: "not built"}
	}
	want, err := ir.FromAny(a.Value)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	got, ok := m.Get(a.Slot)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.Component, a.Slot, render(want)),
			Actual:   "unset",
		}
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.Component, a.Slot, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}

func assertItemsEqual(result *Result, a Assertion) error {
	m, ok := result.Engine.Snapshot.Get(a.Component)
	if !ok {
		return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("component %q", a.Component), Actual: "not built"}
	}
	want, err := ir.FromAny(a.Values)
	if err != nil {
		return fmt.Errorf("expected values: %w", err)
	}
	got := ir.IRArray(m.Values(a.Slot))
	if len(got) == 0 && len(want.(ir.IRArray)) == 0 {
		return nil
	}
	if !ir.Equal(got, want) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s.%s = %s", a.Component, a.Slot, render(want)),
			Actual:   render(got),
		}
	}
	return nil
}

func assertComponentCount(result *Result, a Assertion) error {
	ids := result.Engine.Snapshot.IDs()
	if err := assertCount(a.Type, "components built", len(ids), *a.Count); err != nil {
		return err
	}
	if a.Components != nil && !slices.Equal(ids, a.Components) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("components %v", a.Components),
			Actual:   fmt.Sprintf("%v", ids),
		}
	}
	return nil
}

func assertNoFailures(result *Result) error {
	if len(result.Engine.Failures) == 0 {
		return nil
	}
	msgs := make([]string, len(result.Engine.Failures))
	for i, f := range result.Engine.Failures {
		msgs[i] = f.Error()
	}
	return &AssertionError{
		Type:     AssertNoFailures,
		Expected: "no failures",
		Actual:   strings.Join(msgs, "; "),
	}
}

func assertFailureCount(result *Result, a Assertion) error {
	n := 0
	for _, f := range result.Engine.Failures {
		if a.Rule != "" && f.Rule != a.Rule {
			continue
		}
		if a.Code != "" && string(f.Code) != a.Code {
			continue
		}
		n++
	}
	what := "failures"
	if a.Rule != "" {
		what += " of " + a.Rule
	}
	if a.Code != "" {
		what += " with " + a.Code
	}
	return assertCount(a.Type, what, n, *a.Count)
}

// assertTraceContains checks that some applied fact came from the rule,
// optionally narrowed to a component and slot.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Rule != a.Rule {
			continue
		}
		if a.Component != "" && ev.Target != a.Component {
			continue
		}
		if a.Slot != "" && ev.Slot != a.Slot {
			continue
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("fact from %q on %q slot %q", a.Rule, a.Component, a.Slot),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first facts of the rules appear in the
// given order. Facts of other rules may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	first := make(map[string]int, len(a.Rules))
	for i, ev := range trace {
		if _, ok := first[ev.Rule]; !ok {
			first[ev.Rule] = i
		}
	}

	prev := -1
	for _, name := range a.Rules {
		pos, ok := first[name]
		if !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("rules in order %v", a.Rules),
				Actual:   fmt.Sprintf("rule %q applied no facts", name),
				Trace:    trace,
			}
		}
		if pos < prev {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("rules in order %v", a.Rules),
				Actual:   fmt.Sprintf("rule %q applied its first fact too early", name),
				Trace:    trace,
			}
		}
		prev = pos
	}
	return nil
}

func render(v ir.IRValue) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
