// Package ref maps configuration keys to the external lookup capabilities
// rule bodies use: project search, source tree reads, deployment lookups.
//
// A Registry is populated before a run. Rules either call Get directly with
// a key and lookup data, or store a Reference in a slot and Resolve it in a
// later rule.
package ref

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/sysa/internal/ir"
)

var (
	// ErrUnknownKey is returned for a configuration key with no factory.
	ErrUnknownKey = errors.New("unknown reference key")

	// ErrDuplicateKey is returned when a key is registered twice.
	ErrDuplicateKey = errors.New("reference key already registered")

	// ErrCapability is returned by Resolve when a source does not implement
	// the requested capability.
	ErrCapability = errors.New("reference source lacks capability")
)

// Source is an opaque capability returned by a factory. Rule bodies assert
// it to one of the capability interfaces in this package.
type Source any

// Factory creates sources for a configuration key. data carries
// key-specific lookup fields, such as a project path.
type Factory interface {
	Get(ctx context.Context, key string, data ir.IRObject) (Source, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, key string, data ir.IRObject) (Source, error)

// Get calls f.
func (f FactoryFunc) Get(ctx context.Context, key string, data ir.IRObject) (Source, error) {
	return f(ctx, key, data)
}

// Registry is the lookup table from configuration key to factory. It is
// safe for concurrent Get calls from rule bodies.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds key to f.
func (r *Registry) Register(key string, f Factory) error {
	if key == "" || f == nil {
		return fmt.Errorf("register %q: key and factory are required", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[key]; ok {
		return fmt.Errorf("register %q: %w", key, ErrDuplicateKey)
	}
	r.factories[key] = f
	return nil
}

// Get returns a source for key.
func (r *Registry) Get(ctx context.Context, key string, data ir.IRObject) (Source, error) {
	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}
	src, err := f.Get(ctx, key, data)
	if err != nil {
		return nil, fmt.Errorf("reference %q: %w", key, err)
	}
	return src, nil
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
