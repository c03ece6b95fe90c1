package ref

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/ir"
)

// ErrMalformedReference is returned by ParseReference.
var ErrMalformedReference = errors.New("malformed reference")

// Reference is a back-link to an external system that can be stored in a
// slot: the configuration key of its factory plus the lookup data.
type Reference struct {
	ConfigKey string
	Data      ir.IRObject
}

// New returns a reference with data built from pairs.
func New(key string, pairs ...ir.Pair) Reference {
	return Reference{ConfigKey: key, Data: ir.Obj(pairs...)}
}

// ToIR encodes the reference as {"config_key": ..., "data": {...}}.
func (r Reference) ToIR() ir.IRObject {
	data := r.Data
	if data == nil {
		data = ir.IRObject{}
	}
	return ir.IRObject{
		"config_key": ir.IRString(r.ConfigKey),
		"data":       ir.Clone(data),
	}
}

// ParseReference decodes a value written by ToIR.
func ParseReference(v ir.IRValue) (Reference, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return Reference{}, fmt.Errorf("%w: want object, got %s", ErrMalformedReference, kindName(v))
	}
	key, ok := obj.String("config_key")
	if !ok || key == "" {
		return Reference{}, fmt.Errorf("%w: missing config_key", ErrMalformedReference)
	}
	var data ir.IRObject
	if raw, present := obj["data"]; present {
		if data, ok = raw.(ir.IRObject); !ok {
			return Reference{}, fmt.Errorf("%w: data is %s, want object", ErrMalformedReference, kindName(raw))
		}
	}
	return Reference{ConfigKey: key, Data: ir.Clone(data).(ir.IRObject)}, nil
}

func kindName(v ir.IRValue) string {
	if k := ir.KindOf(v); k != "" {
		return string(k)
	}
	return "null"
}

// Get resolves the reference through reg.
func (r Reference) Get(ctx context.Context, reg *Registry) (Source, error) {
	return reg.Get(ctx, r.ConfigKey, r.Data)
}

// Resolve parses a stored reference, resolves it and asserts the source to
// capability T.
func Resolve[T any](ctx context.Context, reg *Registry, v ir.IRValue) (T, error) {
	var zero T
	r, err := ParseReference(v)
	if err != nil {
		return zero, err
	}
	src, err := r.Get(ctx, reg)
	if err != nil {
		return zero, err
	}
	t, ok := src.(T)
	if !ok {
		return zero, fmt.Errorf("reference %q: %T: %w", r.ConfigKey, src, ErrCapability)
	}
	return t, nil
}
