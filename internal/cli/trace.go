package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database  string
	RunID     string // optional - without it the stored runs are listed
	Component string // optional - filter to one component's invocations
}

// TraceEvent is one applied fact in the trace timeline.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Round     int      `json:"round"`
	Rule      string   `json:"rule"`
	Component string   `json:"component,omitempty"`
	Item      int      `json:"item"`
	Target    string   `json:"target"`
	Creates   bool     `json:"creates,omitempty"`
	Op        string   `json:"op,omitempty"`
	Slot      string   `json:"slot,omitempty"`
	Value     any      `json:"value,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	Changed   bool     `json:"changed"`
}

// TraceFailure is one recorded failure.
type TraceFailure struct {
	Round     int    `json:"round"`
	Code      string `json:"code"`
	Rule      string `json:"rule"`
	Component string `json:"component,omitempty"`
	Item      int    `json:"item"`
	Message   string `json:"message"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID    string         `json:"run_id"`
	Error    string         `json:"error,omitempty"`
	Timeline []TraceEvent   `json:"timeline"`
	Failures []TraceFailure `json:"failures"`
	Stats    TraceStats     `json:"stats"`
}

// TraceStats holds summary statistics for the run.
type TraceStats struct {
	Rounds             int    `json:"rounds"`
	Invocations        int    `json:"invocations"`
	Components         int    `json:"components"`
	Facts              int    `json:"facts"`
	Transitions        int    `json:"transitions"`
	Failures           int    `json:"failures"`
	DuplicateCreations int    `json:"duplicate_creations"`
	SnapshotHash       string `json:"snapshot_hash"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs",
		Long: `Show what a recorded run did, fact by fact.

Runs are recorded with "sysa run --trace-db". Without --run the stored run
ids are listed.

The output includes:
- Timeline: every applied fact in order, with the rule invocation that stated it
- Failures: rule errors and rejected facts
- Stats: the run's counters and snapshot hash

Examples:
  sysa trace --db ./sysa.db
  sysa trace --db ./sysa.db --run 0192...
  sysa trace --db ./sysa.db --run 0192... --component phoenix/api
  sysa trace --db ./sysa.db --run 0192... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to show")
	cmd.Flags().StringVar(&opts.Component, "component", "", "filter to one component's invocations")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		return listRuns(ctx, st, opts, cmd.OutOrStdout())
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var firings []store.FiringRecord
	if opts.Component != "" {
		firings, err = st.ReadComponentFirings(ctx, opts.RunID, opts.Component)
	} else {
		firings, err = st.ReadFirings(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read firings", err)
	}

	failures, err := st.ReadFailures(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read failures", err)
	}

	result := TraceResult{
		RunID:    run.RunID,
		Error:    run.Error,
		Timeline: make([]TraceEvent, 0, len(firings)),
		Failures: make([]TraceFailure, 0, len(failures)),
		Stats: TraceStats{
			Rounds:             run.Rounds,
			Invocations:        run.Invocations,
			Components:         run.Components,
			Facts:              run.Facts,
			Transitions:        run.Transitions,
			Failures:           run.Failures,
			DuplicateCreations: run.DuplicateCreations,
			SnapshotHash:       run.SnapshotHash,
		},
	}
	for _, f := range firings {
		result.Timeline = append(result.Timeline, buildTraceEvent(f))
	}
	for _, f := range failures {
		if opts.Component != "" && f.Component != opts.Component {
			continue
		}
		result.Failures = append(result.Failures, TraceFailure{
			Round:     f.Round,
			Code:      f.Code,
			Rule:      f.Rule,
			Component: f.Component,
			Item:      f.Item,
			Message:   f.Message,
		})
	}

	if opts.Format == "json" {
		return writeResponse(cmd.OutOrStdout(), result, nil)
	}
	outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
	return nil
}

func listRuns(ctx context.Context, st *store.Store, opts *TraceOptions, w io.Writer) error {
	ids, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if ids == nil {
		ids = []string{}
	}
	if opts.Format == "json" {
		return writeResponse(w, map[string]any{"runs": ids}, nil)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

func buildTraceEvent(f store.FiringRecord) TraceEvent {
	ev := TraceEvent{
		Seq:       f.Seq,
		Round:     f.Round,
		Rule:      f.Rule,
		Component: f.Component,
		Item:      f.Item,
		Target:    f.Fact.Component,
		Creates:   f.Fact.Creates,
		Op:        string(f.Fact.Mutation.Op),
		Slot:      f.Fact.Mutation.Slot,
		Labels:    f.Fact.Mutation.Details.Labels,
		Changed:   f.Changed,
	}
	if f.Fact.Mutation.Value != nil {
		ev.Value = ir.ToAny(f.Fact.Mutation.Value)
	}
	return ev
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) {
	heading.Fprintf(w, "Trace for run: %s\n", result.RunID)
	if result.Error != "" {
		bad.Fprintf(w, "Stopped: %s\n", result.Error)
	} else {
		good.Fprintln(w, "Status: fixpoint")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no facts)")
	}
	for _, ev := range result.Timeline {
		formatTraceEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Failures ===")
	if len(result.Failures) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, f := range result.Failures {
		warn.Fprintf(w, "  r%d %s %s", f.Round, f.Code, f.Rule)
		if f.Component != "" {
			fmt.Fprintf(w, "@%s", f.Component)
		}
		fmt.Fprintf(w, ": %s\n", f.Message)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Rounds:       %d\n", result.Stats.Rounds)
	fmt.Fprintf(w, "  Invocations:  %d\n", result.Stats.Invocations)
	fmt.Fprintf(w, "  Components:   %d\n", result.Stats.Components)
	fmt.Fprintf(w, "  Facts:        %d\n", result.Stats.Facts)
	fmt.Fprintf(w, "  Transitions:  %d\n", result.Stats.Transitions)
	fmt.Fprintf(w, "  Failures:     %d\n", result.Stats.Failures)
	fmt.Fprintf(w, "  Duplicates:   %d\n", result.Stats.DuplicateCreations)
	fmt.Fprintf(w, "  Snapshot:     %s\n", result.Stats.SnapshotHash)
}

// formatTraceEvent prints one fact. Unchanged facts are only shown with
// --verbose.
func formatTraceEvent(w io.Writer, ev TraceEvent, verbose bool) {
	if !ev.Changed && !verbose {
		return
	}
	verb := "update"
	if ev.Creates {
		verb = "create"
	}
	line := fmt.Sprintf("  [%d] r%d %s -> %s %s", ev.Seq, ev.Round, ev.Rule, verb, ev.Target)
	if ev.Slot != "" {
		line += fmt.Sprintf(" %s %s=%s", ev.Op, ev.Slot, formatTraceValue(ev.Value))
	}
	if !ev.Changed {
		line += " (no change)"
	}
	fmt.Fprintln(w, line)
}

func formatTraceValue(v any) string {
	if s, ok := v.(string); ok {
		return renderValue(ir.IRString(s))
	}
	iv, err := ir.FromAny(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return renderValue(iv)
}
