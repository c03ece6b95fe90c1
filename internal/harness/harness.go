package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sysa/internal/catalog"
	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/ref/inventory"
	"github.com/roach88/sysa/internal/store"
	"github.com/roach88/sysa/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build an engine over the catalog schema with a fixed run id
//  2. Serve the scenario inventory through the reference factories
//  3. Register the catalog rules and run to fixpoint
//  4. Record the run in a fresh in-memory store and read the trace back
//  5. Check the expected run error and every assertion
//
// The returned error is for harness problems only. A run that stops
// unexpectedly or fails an assertion is reported through Result.Pass.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	runID := scenario.RunID
	if runID == "" {
		runID = "scenario-" + scenario.Name
	}

	rec := testutil.NewRecorder()
	opts := []engine.Option{
		engine.WithIDGenerator(testutil.NewFixedRunID(runID)),
		engine.WithLogger(slog.New(slog.DiscardHandler)), // Suppress logs in scenarios
		engine.WithObserver(rec),
	}
	if scenario.MaxRounds > 0 {
		opts = append(opts, engine.WithMaxRounds(scenario.MaxRounds))
	}
	eng := engine.New(catalog.Schema(), opts...)

	if err := inventory.NewFactory(&scenario.Inventory).Register(eng.Refs()); err != nil {
		return nil, fmt.Errorf("register inventory: %w", err)
	}
	if err := catalog.Register(eng, scenario.Options.catalog()); err != nil {
		return nil, err
	}

	res, runErr := eng.Run(ctx)

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := st.RecordRun(ctx, res, runErr); err != nil {
		return nil, err
	}
	firings, err := st.ReadFirings(ctx, res.RunID)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	result.RunID = res.RunID
	result.Engine = res
	result.RunErr = runErr
	result.Pending = append(result.Pending, rec.Pending()...)
	for _, f := range firings {
		result.Trace = append(result.Trace, traceEvent(f))
	}

	for _, msg := range Check(result, scenario) {
		result.AddError(msg)
	}
	return result, nil
}

// Check evaluates the scenario's expected run error and assertions against
// result and returns one message per violation.
func Check(result *Result, scenario *Scenario) []string {
	var errs []string

	got := ""
	if result.RunErr != nil {
		got = string(engine.Classify(result.RunErr))
	}
	switch {
	case scenario.ExpectError == "" && result.RunErr != nil:
		errs = append(errs, fmt.Sprintf("run stopped before fixpoint: %v", result.RunErr))
	case scenario.ExpectError != "" && got != scenario.ExpectError:
		errs = append(errs, fmt.Sprintf("expected run to stop with %s, got %q", scenario.ExpectError, got))
	}

	return append(errs, EvaluateAssertions(result, scenario.Assertions)...)
}
