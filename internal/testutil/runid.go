// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

// FixedRunID generates the same run id every time.
//
// Runs given the same FixedRunID and the same inputs produce byte-identical
// snapshots and provenance exports.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run id generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
//
// Implements engine.IDGenerator.
func (g *FixedRunID) Generate() string {
	return g.id
}
