package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sysa/internal/catalog"
	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/ref/inventory"
)

// Scenario defines one catalog run and what must hold after it.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Inventory is the fixture the reference factories serve.
	Inventory inventory.Inventory `yaml:"inventory"`

	// Options override the catalog defaults.
	Options Options `yaml:"options,omitempty"`

	// MaxRounds overrides the engine's round limit when positive.
	MaxRounds int `yaml:"max_rounds,omitempty"`

	// RunID is an optional fixed run id. If empty, defaults to
	// "scenario-" + Name.
	RunID string `yaml:"run_id,omitempty"`

	// ExpectError is the error code the run must stop with. If empty, the
	// run must reach fixpoint.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the final snapshot, counters and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Options mirror catalog.Options. Empty fields keep the defaults.
type Options struct {
	ProjectPrefix string `yaml:"project_prefix,omitempty"`
	AppPrefix     string `yaml:"app_prefix,omitempty"`
}

func (o Options) catalog() catalog.Options {
	opts := catalog.DefaultOptions()
	if o.ProjectPrefix != "" {
		opts.ProjectPrefix = o.ProjectPrefix
	}
	if o.AppPrefix != "" {
		opts.AppPrefix = o.AppPrefix
	}
	return opts
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type specifies the assertion type, one of the Assert* constants.
	Type string `yaml:"type"`

	// Component and Slot select a value (slot_equals, items_equal) or
	// narrow trace_contains.
	Component string `yaml:"component,omitempty"`
	Slot      string `yaml:"slot,omitempty"`

	// Value is the expected single value (slot_equals).
	Value any `yaml:"value,omitempty"`

	// Values are the expected items in order (items_equal).
	Values []any `yaml:"values,omitempty"`

	// Rule selects a rule (fired_count, trace_contains, failure_count).
	Rule string `yaml:"rule,omitempty"`

	// Rules is the expected first-fact order (trace_order).
	Rules []string `yaml:"rules,omitempty"`

	// Code filters failure_count by error code.
	Code string `yaml:"code,omitempty"`

	// Components is the exact expected component ids in creation order
	// (component_count, optional).
	Components []string `yaml:"components,omitempty"`

	// Count is the expected number (component_count, fired_count,
	// failure_count, rounds).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertSlotEquals     = "slot_equals"
	AssertItemsEqual     = "items_equal"
	AssertComponentCount = "component_count"
	AssertFiredCount     = "fired_count"
	AssertNoFailures     = "no_failures"
	AssertFailureCount   = "failure_count"
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertRounds         = "rounds"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	out := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("scenario %q defined in both %s and %s", s.Name, prev, p)
		}
		seen[s.Name] = p
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.MaxRounds < 0 {
		return fmt.Errorf("max_rounds must be non-negative")
	}
	if s.ExpectError != "" && !knownCode(s.ExpectError) {
		return fmt.Errorf("expect_error: unknown error code %q", s.ExpectError)
	}
	if err := s.Inventory.Validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func knownCode(code string) bool {
	switch engine.RuntimeErrorCode(code) {
	case engine.ErrCodeRuleFailed, engine.ErrCodeUnknownComponent, engine.ErrCodeValueConflict,
		engine.ErrCodeTypeMismatch, engine.ErrCodeUnknownSlot, engine.ErrCodeSlotKind,
		engine.ErrCodeInvalidMutation, engine.ErrCodeCycleDetected, engine.ErrCodeNonTermination:
		return true
	}
	return false
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needCount := func() error {
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertSlotEquals:
		if a.Component == "" || a.Slot == "" {
			return fmt.Errorf("assertions[%d]: component and slot are required for slot_equals", index)
		}
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for slot_equals", index)
		}
	case AssertItemsEqual:
		if a.Component == "" || a.Slot == "" {
			return fmt.Errorf("assertions[%d]: component and slot are required for items_equal", index)
		}
	case AssertComponentCount, AssertRounds:
		return needCount()
	case AssertFiredCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for fired_count", index)
		}
		return needCount()
	case AssertFailureCount:
		if a.Code != "" && !knownCode(a.Code) {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
		return needCount()
	case AssertNoFailures:
	case AssertTraceContains:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Rules) == 0 {
			return fmt.Errorf("assertions[%d]: rules list is required for trace_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
