package registry

import (
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

// Snapshot is a read-only copy of every component at one point in a run.
// The zero value is an empty snapshot.
type Snapshot struct {
	models map[string]model.Model
	order  []string
}

// Len returns the number of components.
func (s Snapshot) Len() int { return len(s.order) }

// IDs returns component ids in creation order.
func (s Snapshot) IDs() []string {
	return append([]string(nil), s.order...)
}

// Get returns a component by id.
func (s Snapshot) Get(id string) (model.Model, bool) {
	m, ok := s.models[id]
	return m, ok
}

// Components returns every component in creation order.
func (s Snapshot) Components() []model.Model {
	out := make([]model.Model, len(s.order))
	for i, id := range s.order {
		out[i] = s.models[id]
	}
	return out
}

// Canonical returns the snapshot as plain data keyed by component id, each
// entry holding that component's slots.
func (s Snapshot) Canonical() map[string]any {
	out := make(map[string]any, len(s.order))
	for id, m := range s.models {
		out[id] = m.Canonical()["slots"]
	}
	return out
}

// MarshalCanonical encodes the snapshot as canonical JSON. Component order
// does not affect the output, so two runs that build the same components
// produce identical bytes.
func (s Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.Canonical())
}

// Hash returns the domain-separated hash of the canonical encoding.
func (s Snapshot) Hash() (string, error) {
	b, err := s.MarshalCanonical()
	if err != nil {
		return "", err
	}
	return ir.SnapshotHash(b), nil
}
