package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/schema"
)

func TestCompileSchemaString_Basic(t *testing.T) {
	s, err := CompileSchemaString(`
		slots: {
			team:  {kind: "single", type: "string"}
			links: {kind: "multi", type: "object", doc: "external links"}
			extra: {kind: "single"}
		}
	`, "basic.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"team", "links", "extra"}, s.Names())

	links, ok := s.Slot("links")
	require.True(t, ok)
	assert.Equal(t, schema.Multi, links.Kind)
	assert.Equal(t, ir.KindObject, links.Elem)
	assert.Equal(t, "external links", links.Doc)

	extra, _ := s.Slot("extra")
	assert.Equal(t, ir.KindAny, extra.Elem)
}

func TestCompileSchemaString_Base(t *testing.T) {
	s, err := CompileSchemaString(`
		base: true
		slots: readme: {kind: "single", type: "string"}
	`, "base.cue")
	require.NoError(t, err)

	assert.Equal(t, schema.Base().Len()+1, s.Len())
	_, ok := s.Slot(schema.SlotDeployment)
	assert.True(t, ok)
}

func TestCompileSchemaString_Errors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"missing slots", `base: true`, "slots"},
		{"missing kind", `slots: x: {type: "string"}`, "slots.x.kind"},
		{"bad kind", `slots: x: {kind: "double"}`, "slots.x.kind"},
		{"bad type", `slots: x: {kind: "single", type: "float"}`, "slots.x.type"},
		{"base not bool", `base: "yes", slots: {}`, "base"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSchemaString(tt.src, "bad.cue")
			require.Error(t, err)

			var ce *CompileError
			require.True(t, errors.As(err, &ce), "got %T: %v", err, err)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileSchemaString_ConflictWithBase(t *testing.T) {
	_, err := CompileSchemaString(`
		base: true
		slots: links: {kind: "single", type: "object"}
	`, "conflict.cue")
	require.Error(t, err)

	var ce *schema.ConflictError
	assert.True(t, errors.As(err, &ce))
}

func TestCompileSchemaString_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSchemaString("slots: {", "broken.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.cue")
	require.NoError(t, os.WriteFile(path, []byte(`slots: team: {kind: "single", type: "string"}`), 0o644))

	s, err := CompileSchemaFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"team"}, s.Names())

	_, err = CompileSchemaFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
