package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/registry"
)

// ErrAlreadyRan is returned when an Engine is run or configured after its
// first Run.
var ErrAlreadyRan = errors.New("engine already ran")

// RuntimeErrorCode categorizes failures recorded during a run.
type RuntimeErrorCode string

const (
	// ErrCodeRuleFailed: a rule body returned an error or panicked.
	ErrCodeRuleFailed RuntimeErrorCode = "RULE_FAILED"

	// ErrCodeUnknownComponent: a non-creating fact targeted a missing component.
	ErrCodeUnknownComponent RuntimeErrorCode = "UNKNOWN_COMPONENT"

	// ErrCodeValueConflict: a set single slot was set to a different value.
	ErrCodeValueConflict RuntimeErrorCode = "VALUE_CONFLICT"

	// ErrCodeTypeMismatch: a value did not match the slot's element type.
	ErrCodeTypeMismatch RuntimeErrorCode = "TYPE_MISMATCH"

	// ErrCodeUnknownSlot: a fact named an undeclared slot.
	ErrCodeUnknownSlot RuntimeErrorCode = "UNKNOWN_SLOT"

	// ErrCodeSlotKind: a single slot was appended to or a multi slot set.
	ErrCodeSlotKind RuntimeErrorCode = "SLOT_KIND"

	// ErrCodeInvalidMutation: a fact carried an unknown mutation op.
	ErrCodeInvalidMutation RuntimeErrorCode = "INVALID_MUTATION"

	// ErrCodeCycleDetected: an invocation would repeat one of its own causes.
	ErrCodeCycleDetected RuntimeErrorCode = "CYCLE_DETECTED"

	// ErrCodeNonTermination: the run hit its round limit with work pending.
	ErrCodeNonTermination RuntimeErrorCode = "NON_TERMINATION"
)

// Classify maps an error to its code. Errors that are not apply or
// termination errors are rule failures.
func Classify(err error) RuntimeErrorCode {
	var (
		re *RuntimeError
		nt *NonTerminationError
		uc *registry.UnknownComponentError
		vc *model.ValueConflictError
		tm *model.TypeMismatchError
		us *model.UnknownSlotError
		sk *model.SlotKindError
	)
	switch {
	case errors.As(err, &re):
		return re.Code
	case errors.As(err, &nt):
		return ErrCodeNonTermination
	case errors.As(err, &uc):
		return ErrCodeUnknownComponent
	case errors.As(err, &vc):
		return ErrCodeValueConflict
	case errors.As(err, &tm):
		return ErrCodeTypeMismatch
	case errors.As(err, &us):
		return ErrCodeUnknownSlot
	case errors.As(err, &sk):
		return ErrCodeSlotKind
	case errors.Is(err, registry.ErrInvalidMutation):
		return ErrCodeInvalidMutation
	}
	return ErrCodeRuleFailed
}

// RuntimeError is an error detected by the engine itself rather than
// returned by a rule body.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string

	RunID     string
	Rule      string
	Component string

	// Signature is the (rule, component, value) hash for cycle errors.
	Signature string

	Details map[string]string
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Rule != "" && e.Component != "":
		return fmt.Sprintf("%s: %s (rule=%s, component=%s)", e.Code, e.Message, e.Rule, e.Component)
	case e.Rule != "":
		return fmt.Sprintf("%s: %s (rule=%s)", e.Code, e.Message, e.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewCycleError creates a RuntimeError for a causal cycle.
func NewCycleError(runID, rule, component, signature string, depth int) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeCycleDetected,
		Message:   "invocation repeats a signature from its own causal chain",
		RunID:     runID,
		Rule:      rule,
		Component: component,
		Signature: signature,
		Details:   map[string]string{"depth": fmt.Sprintf("%d", depth)},
	}
}

// NonTerminationError is returned when invocations are still pending after
// the last allowed round. The run's partial result is returned with it.
type NonTerminationError struct {
	RunID   string
	Rounds  int
	Limit   int
	Pending int
}

func (e *NonTerminationError) Error() string {
	return fmt.Sprintf("%s: run %s did not reach fixpoint within %d rounds (%d invocations pending)",
		ErrCodeNonTermination, e.RunID, e.Limit, e.Pending)
}

// IsCycleError reports whether err is a cycle detection error.
func IsCycleError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCycleDetected
	}
	return false
}

// IsNonTermination reports whether err is a round limit error.
func IsNonTermination(err error) bool {
	var nt *NonTerminationError
	if errors.As(err, &nt) {
		return true
	}
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeNonTermination
}

// panicError wraps a value recovered from a rule body.
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("rule panicked: %v", e.value)
}
