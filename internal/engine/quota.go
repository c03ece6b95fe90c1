package engine

// DefaultMaxRounds is the default round limit per run.
const DefaultMaxRounds = 100

// RoundBudget enforces the round limit of one run.
//
// A rule that writes the slot it is bound to can retrigger itself forever.
// The budget is the backstop: it catches runaway chains of distinct
// invocations that the cycle detector, which only looks for repeated
// signatures, lets through.
type RoundBudget struct {
	maxRounds int
	current   int
}

// NewRoundBudget returns a budget allowing maxRounds rounds.
func NewRoundBudget(maxRounds int) *RoundBudget {
	return &RoundBudget{maxRounds: maxRounds}
}

// Check is called before starting a round with pending invocations. It
// counts the round and returns a NonTerminationError when the limit has
// already been used up.
func (b *RoundBudget) Check(runID string, pending int) error {
	if b.current >= b.maxRounds {
		return &NonTerminationError{
			RunID:   runID,
			Rounds:  b.current,
			Limit:   b.maxRounds,
			Pending: pending,
		}
	}
	b.current++
	return nil
}

// Current returns the number of rounds started.
func (b *RoundBudget) Current() int { return b.current }

// MaxRounds returns the limit.
func (b *RoundBudget) MaxRounds() int { return b.maxRounds }
