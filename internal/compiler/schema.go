// Package compiler turns CUE slot declarations into a schema.Schema.
//
// A schema document looks like:
//
//	base: true // start from schema.Base()
//	slots: {
//		readme:        {kind: "single", type: "string"}
//		gitLabProject: {kind: "single", type: "object", doc: "raw project record"}
//		instances:     {kind: "multi",  type: "string"}
//	}
//
// Slots are declared in field order. "type" defaults to "any".
package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

// CompileError is a schema compilation failure with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CompileSchemaString compiles CUE source. filename is used in positions.
func CompileSchemaString(src, filename string) (*schema.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileSchema(v)
}

// CompileSchemaFile reads and compiles a CUE schema file.
func CompileSchemaFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	return CompileSchema(v)
}

// CompileSchema compiles an evaluated CUE value.
func CompileSchema(v cue.Value) (*schema.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	b := new(schema.Builder)

	if baseVal := v.LookupPath(cue.ParsePath("base")); baseVal.Exists() {
		useBase, err := baseVal.Bool()
		if err != nil {
			return nil, &CompileError{Field: "base", Message: "must be a boolean", Pos: baseVal.Pos()}
		}
		if useBase {
			b.Merge(schema.Base())
		}
	}

	slotsVal := v.LookupPath(cue.ParsePath("slots"))
	if !slotsVal.Exists() {
		return nil, &CompileError{Field: "slots", Message: "slots is required", Pos: v.Pos()}
	}
	iter, err := slotsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		slot, err := compileSlot(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		b.Declare(slot)
	}

	return b.Build()
}

func compileSlot(name string, v cue.Value) (schema.Slot, error) {
	field := "slots." + name
	slot := schema.Slot{Name: name, Elem: ir.KindAny}

	kindVal := v.LookupPath(cue.ParsePath("kind"))
	if !kindVal.Exists() {
		return slot, &CompileError{Field: field + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	kindStr, err := kindVal.String()
	if err != nil {
		return slot, formatCUEError(err)
	}
	kind, err := schema.ParseSlotKind(kindStr)
	if err != nil {
		return slot, &CompileError{Field: field + ".kind", Message: err.Error(), Pos: kindVal.Pos()}
	}
	slot.Kind = kind

	if typeVal := v.LookupPath(cue.ParsePath("type")); typeVal.Exists() {
		typeStr, err := typeVal.String()
		if err != nil {
			return slot, formatCUEError(err)
		}
		elem, err := ir.ParseKind(typeStr)
		if err != nil {
			return slot, &CompileError{Field: field + ".type", Message: err.Error(), Pos: typeVal.Pos()}
		}
		slot.Elem = elem
	}

	if docVal := v.LookupPath(cue.ParsePath("doc")); docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return slot, formatCUEError(err)
		}
		slot.Doc = doc
	}
	return slot, nil
}

// formatCUEError keeps the first error's position when CUE reports one.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return err
}
