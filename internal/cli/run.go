package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sysa/internal/catalog"
	"github.com/roach88/sysa/internal/compiler"
	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/ref/inventory"
	"github.com/roach88/sysa/internal/schema"
	"github.com/roach88/sysa/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Config string
	RunConfig

	Timeout          time.Duration
	NoCycleDetection bool

	// IDGenerator allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// RunReport is the run command's output.
type RunReport struct {
	RunID        string          `json:"run_id"`
	Rounds       int             `json:"rounds"`
	Invocations  int             `json:"invocations"`
	SnapshotHash string          `json:"snapshot_hash"`
	Order        []string        `json:"order"`
	Components   map[string]any  `json:"components"`
	Failures     []FailureReport `json:"failures"`
	TraceDB      string          `json:"trace_db,omitempty"`
}

// FailureReport is one recorded failure.
type FailureReport struct {
	Code      string `json:"code"`
	Rule      string `json:"rule"`
	Component string `json:"component,omitempty"`
	Item      int    `json:"item"`
	Round     int    `json:"round"`
	Message   string `json:"message"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build the component catalog from an inventory",
		Long: `Run the catalog rules to fixpoint against an inventory fixture and print
the resulting components.

Settings come from --config and may be overridden by flags.

Exit codes:
  0 - Fixpoint reached without failures
  1 - Failures were recorded or the run stopped before fixpoint
  2 - Command error (invalid paths, bad config, etc.)

Examples:
  sysa run --inventory inventory.yaml
  sysa run --config sysa.yaml --max-rounds 10
  sysa run --inventory inventory.yaml --schema extra.cue --trace-db runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Config, "config", "", "path to a YAML run config")
	f.StringVar(&opts.Inventory, "inventory", "", "path to the inventory fixture")
	f.StringVar(&opts.Schema, "schema", "", "CUE file with extra slot declarations")
	f.StringVar(&opts.ProjectPrefix, "project-prefix", "", "GitLab project path prefix (default \"phoenix\")")
	f.StringVar(&opts.AppPrefix, "app-prefix", "", "Marathon app id prefix (default \"/phoenix/\")")
	f.IntVar(&opts.MaxRounds, "max-rounds", 0, fmt.Sprintf("round limit (default %d)", engine.DefaultMaxRounds))
	f.Int("concurrency", engine.DefaultConcurrency, "concurrent rule invocations per round, 0 for unbounded")
	f.DurationVar(&opts.Timeout, "timeout", 0, "per-invocation timeout, 0 for none")
	f.BoolVar(&opts.NoCycleDetection, "no-cycle-detection", false, "disable causal cycle detection")
	f.StringVar(&opts.TraceDB, "trace-db", "", "record the run in this SQLite database")
	f.StringVar(&opts.RunID, "run-id", "", "fixed run id instead of a generated one")

	return cmd
}

// resolveConfig merges the config file with explicitly set flags.
func resolveConfig(opts *RunOptions, cmd *cobra.Command) (*RunConfig, error) {
	cfg := &RunConfig{}
	if opts.Config != "" {
		loaded, err := LoadRunConfig(opts.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("inventory", func() { cfg.Inventory = opts.Inventory })
	set("schema", func() { cfg.Schema = opts.Schema })
	set("project-prefix", func() { cfg.ProjectPrefix = opts.ProjectPrefix })
	set("app-prefix", func() { cfg.AppPrefix = opts.AppPrefix })
	set("max-rounds", func() { cfg.MaxRounds = opts.MaxRounds })
	set("trace-db", func() { cfg.TraceDB = opts.TraceDB })
	set("run-id", func() { cfg.RunID = opts.RunID })
	set("timeout", func() { cfg.InvocationTimeout = opts.Timeout.String() })
	set("no-cycle-detection", func() {
		enabled := !opts.NoCycleDetection
		cfg.CycleDetection = &enabled
	})
	if f.Changed("concurrency") {
		n, err := f.GetInt("concurrency")
		if err != nil {
			return nil, err
		}
		cfg.Concurrency = &n
	}

	if cfg.Inventory == "" {
		return nil, fmt.Errorf("an inventory is required (--inventory or inventory: in --config)")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runCatalog(opts *RunOptions, cmd *cobra.Command) error {
	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid run settings", err)
	}
	logger := opts.newLogger(cmd.ErrOrStderr())

	sch, err := buildSchema(cfg.Schema)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build schema", err)
	}
	inv, err := inventory.Load(cfg.Inventory)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load inventory", err)
	}

	eng := engine.New(sch, engineOptions(opts, cfg, logger)...)
	if err := inventory.NewFactory(inv).Register(eng.Refs()); err != nil {
		return WrapExitError(ExitCommandError, "failed to register inventory", err)
	}
	if err := catalog.Register(eng, cfg.catalogOptions()); err != nil {
		return WrapExitError(ExitCommandError, "failed to register rules", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, runErr := eng.Run(ctx)

	if cfg.TraceDB != "" {
		if err := recordTrace(ctx, cfg.TraceDB, res, runErr, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	report, err := buildRunReport(res, cfg.TraceDB)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to encode snapshot", err)
	}

	w := cmd.OutOrStdout()
	var cliErr *CLIError
	if runErr != nil {
		cliErr = &CLIError{Code: string(engine.Classify(runErr)), Message: runErr.Error()}
	}
	if opts.Format == "json" {
		if err := writeResponse(w, report, cliErr); err != nil {
			return err
		}
	} else {
		writeRunText(w, res, report, runErr)
	}

	switch {
	case runErr != nil:
		return WrapExitError(ExitFailure, "run stopped before fixpoint", runErr)
	case len(res.Failures) > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d failures recorded", len(res.Failures)))
	}
	return nil
}

func buildSchema(extraPath string) (*schema.Schema, error) {
	base := catalog.Schema()
	if extraPath == "" {
		return base, nil
	}
	extra, err := compiler.CompileSchemaFile(extraPath)
	if err != nil {
		return nil, err
	}
	return new(schema.Builder).Merge(base).Merge(extra).Build()
}

func engineOptions(opts *RunOptions, cfg *RunConfig, logger *slog.Logger) []engine.Option {
	out := []engine.Option{engine.WithLogger(logger)}
	if cfg.MaxRounds > 0 {
		out = append(out, engine.WithMaxRounds(cfg.MaxRounds))
	}
	if cfg.Concurrency != nil {
		out = append(out, engine.WithConcurrency(*cfg.Concurrency))
	}
	if d, _ := cfg.timeout(); d > 0 {
		out = append(out, engine.WithInvocationTimeout(d))
	}
	if cfg.CycleDetection != nil {
		out = append(out, engine.WithCycleDetection(*cfg.CycleDetection))
	}
	switch {
	case cfg.RunID != "":
		out = append(out, engine.WithRunID(cfg.RunID))
	case opts.IDGenerator != nil:
		out = append(out, engine.WithIDGenerator(opts.IDGenerator))
	}
	return out
}

func recordTrace(ctx context.Context, path string, res *engine.Result, runErr error, logger *slog.Logger) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// A cancelled run is still recorded.
	n, err := st.RecordRun(context.WithoutCancel(ctx), res, runErr)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "path", path, "run_id", res.RunID, "firings", n)
	return nil
}

func buildRunReport(res *engine.Result, traceDB string) (RunReport, error) {
	hash, err := res.Snapshot.Hash()
	if err != nil {
		return RunReport{}, err
	}
	report := RunReport{
		RunID:        res.RunID,
		Rounds:       res.Rounds,
		Invocations:  res.Invocations,
		SnapshotHash: hash,
		Order:        res.Snapshot.IDs(),
		Components:   res.Snapshot.Canonical(),
		Failures:     make([]FailureReport, 0, len(res.Failures)),
		TraceDB:      traceDB,
	}
	if report.Order == nil {
		report.Order = []string{}
	}
	for _, f := range res.Failures {
		report.Failures = append(report.Failures, FailureReport{
			Code:      string(f.Code),
			Rule:      f.Rule,
			Component: f.Component,
			Item:      f.Item,
			Round:     f.Round,
			Message:   f.Err.Error(),
		})
	}
	return report, nil
}

func writeRunText(w io.Writer, res *engine.Result, report RunReport, runErr error) {
	fmt.Fprintf(w, "run %s: %d rounds, %d invocations, %d components\n",
		report.RunID, report.Rounds, report.Invocations, len(report.Order))

	for _, m := range res.Snapshot.Components() {
		fmt.Fprintln(w)
		heading.Fprintln(w, m.ID())
		writeModel(w, m)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w)
		warn.Fprintf(w, "%d failures\n", len(report.Failures))
		for _, f := range report.Failures {
			target := f.Rule
			if f.Component != "" {
				target += "@" + f.Component
			}
			fmt.Fprintf(w, "  %s %s (round %d): %s\n", f.Code, target, f.Round, f.Message)
		}
	}

	fmt.Fprintln(w)
	if runErr != nil {
		bad.Fprintf(w, "stopped: %s: %v\n", engine.Classify(runErr), runErr)
		return
	}
	good.Fprintf(w, "fixpoint reached (snapshot %s)\n", report.SnapshotHash)
}

func writeModel(w io.Writer, m model.Model) {
	for _, sl := range m.Schema().Slots() {
		if sl.Kind == schema.Single {
			if v, ok := m.Get(sl.Name); ok {
				fmt.Fprintf(w, "  %-14s %s\n", sl.Name, renderValue(v))
			}
			continue
		}
		items := m.Items(sl.Name)
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s\n", sl.Name)
		for _, it := range items {
			line := "    - " + renderValue(it.Value)
			if len(it.Details.Labels) > 0 {
				line += " [" + strings.Join(it.Details.Labels, ", ") + "]"
			}
			fmt.Fprintln(w, line)
		}
	}
}

// renderValue prints strings bare and everything else as canonical JSON.
// Multi-line strings show their first line only.
func renderValue(v ir.IRValue) string {
	if s, ok := v.(ir.IRString); ok {
		first, _, more := strings.Cut(string(s), "\n")
		if more {
			return first + " ..."
		}
		return first
	}
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
