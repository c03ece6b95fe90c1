package engine

import (
	"github.com/roach88/sysa/internal/ir"
)

// lineage is the causal chain of an invocation: its own signature followed
// by the signatures of the invocations whose facts triggered it. Chains
// share their tails, so building one is O(1).
type lineage struct {
	sig    string
	parent *lineage
	depth  int
}

func (l *lineage) extend(sig string) *lineage {
	depth := 1
	if l != nil {
		depth = l.depth + 1
	}
	return &lineage{sig: sig, parent: l, depth: depth}
}

func (l *lineage) contains(sig string) bool {
	for n := l; n != nil; n = n.parent {
		if n.sig == sig {
			return true
		}
	}
	return false
}

// CycleDetector stops self-retriggering rules early.
//
// Every invocation has a signature: the hash of its rule, component and
// triggering value. A ForEvery rule that appends the value it was called
// with to the slot it is bound to produces a new item, and therefore a new
// invocation key, on every round; its signature however repeats. The
// detector reports a cycle when a scheduled invocation's signature already
// appears in its own causal chain.
//
// Sibling invocations with equal signatures, such as one rule seeing two
// equal items appended by the same discovery rule, are not cycles: neither
// caused the other.
type CycleDetector struct {
	enabled bool
	checks  int
}

// NewCycleDetector returns a detector; a disabled one never reports.
func NewCycleDetector(enabled bool) *CycleDetector {
	return &CycleDetector{enabled: enabled}
}

// Enabled reports whether the detector checks anything.
func (c *CycleDetector) Enabled() bool { return c.enabled }

// Signature computes the invocation signature.
func Signature(ruleName, component string, value ir.IRValue) (string, error) {
	return ir.SignatureHash(ruleName, component, value)
}

// WouldCycle reports whether sig already occurs in parent's chain.
func (c *CycleDetector) WouldCycle(parent *lineage, sig string) bool {
	if !c.enabled {
		return false
	}
	c.checks++
	return parent.contains(sig)
}

// Checks returns the number of checks performed.
func (c *CycleDetector) Checks() int { return c.checks }
