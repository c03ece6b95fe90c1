package model

import "github.com/roach88/sysa/internal/ir"

// Op is the kind of slot transition.
type Op string

const (
	// OpSet marks a single slot going from unset to set.
	OpSet Op = "set"
	// OpAdd marks an item appended to a multi slot.
	OpAdd Op = "add"
)

// Transition is one observable slot change. Index is the item index for
// OpAdd and -1 for OpSet.
type Transition struct {
	Component string
	Slot      string
	Op        Op
	Value     ir.IRValue
	Index     int
	Details   Details
}

// TransitionLog collects transitions in the order they happened. The engine
// keeps one per round; a nil log discards events.
type TransitionLog struct {
	events []Transition
}

// Append records a transition.
func (l *TransitionLog) Append(t Transition) {
	if l == nil {
		return
	}
	l.events = append(l.events, t)
}

// Events returns the recorded transitions in order.
func (l *TransitionLog) Events() []Transition {
	if l == nil {
		return nil
	}
	return l.events
}

// Len returns the number of recorded transitions.
func (l *TransitionLog) Len() int {
	if l == nil {
		return 0
	}
	return len(l.events)
}
