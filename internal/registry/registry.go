// Package registry is the authoritative map from component id to live slot
// state for one evaluation run.
//
// Apply is the only path that changes a component. The engine calls it from
// a single goroutine; nothing in this package is safe for concurrent use.
// Components are never removed.
package registry

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/schema"
)

// ErrInvalidMutation is returned for a fact whose mutation op is unknown.
var ErrInvalidMutation = errors.New("invalid mutation")

// UnknownComponentError is returned when a non-creating fact targets a
// component that does not exist.
type UnknownComponentError struct {
	Component string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("unknown component %q (fact does not create it)", e.Component)
}

// Registry holds the components of one run.
type Registry struct {
	schema     *schema.Schema
	components map[string]*model.Component
	order      []string
	duplicates int
	logger     *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for creation records.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New returns an empty registry whose components use s.
func New(s *schema.Schema, opts ...Option) *Registry {
	r := &Registry{
		schema:     s,
		components: make(map[string]*model.Component),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the component with id, creating it with every slot
// unset when it does not exist. created reports whether it was created.
func (r *Registry) GetOrCreate(id string) (c *model.Component, created bool) {
	if c, ok := r.components[id]; ok {
		return c, false
	}
	c = model.NewComponent(id, r.schema)
	r.components[id] = c
	r.order = append(r.order, id)
	r.logger.Debug("component created", "component", id)
	return c, true
}

// Get returns the component with id.
func (r *Registry) Get(id string) (*model.Component, bool) {
	c, ok := r.components[id]
	return c, ok
}

// Len returns the number of components.
func (r *Registry) Len() int { return len(r.order) }

// IDs returns component ids in creation order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// DuplicateCreations counts creating facts that found their component
// already present.
func (r *Registry) DuplicateCreations() int { return r.duplicates }

// Apply applies one fact, recording any transitions in log.
//
// A creating fact for a new id creates the component first; for a known id
// it updates the existing component. A non-creating fact for an unknown id
// is an UnknownComponentError. Slot errors from the component are returned
// unchanged.
func (r *Registry) Apply(f fact.Fact, log *model.TransitionLog) error {
	var c *model.Component
	if f.Creates {
		var created bool
		c, created = r.GetOrCreate(f.Component)
		if !created {
			r.duplicates++
		}
	} else {
		var ok bool
		if c, ok = r.components[f.Component]; !ok {
			return &UnknownComponentError{Component: f.Component}
		}
	}

	if f.IsCreateOnly() {
		return nil
	}
	m := f.Mutation
	switch m.Op {
	case model.OpSet:
		_, err := c.SetSingle(m.Slot, m.Value, log)
		return err
	case model.OpAdd:
		_, err := c.AppendMulti(m.Slot, m.Value, m.Details, log)
		return err
	default:
		return fmt.Errorf("component %q: op %q: %w", f.Component, m.Op, ErrInvalidMutation)
	}
}

// Models returns read-only copies of every component in creation order.
func (r *Registry) Models() []model.Model {
	out := make([]model.Model, len(r.order))
	for i, id := range r.order {
		out[i] = r.components[id].Model()
	}
	return out
}

// Snapshot returns a read-only copy of the registry.
func (r *Registry) Snapshot() Snapshot {
	models := make(map[string]model.Model, len(r.order))
	for _, id := range r.order {
		models[id] = r.components[id].Model()
	}
	return Snapshot{models: models, order: r.IDs()}
}
