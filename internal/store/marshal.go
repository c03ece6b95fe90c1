package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

// marshalValue converts a fact value to canonical JSON TEXT for storage.
// Create-only facts carry no value and are stored as "".
func marshalValue(v ir.IRValue) (string, error) {
	if v == nil {
		return "", nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses canonical JSON TEXT back to an IRValue.
// Uses ir.ParseJSON so large integers survive without float64 rounding.
func unmarshalValue(data string) (ir.IRValue, error) {
	if data == "" {
		return nil, nil
	}
	v, err := ir.ParseJSON([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return v, nil
}

// marshalDetails converts item details to JSON TEXT with sorted keys.
func marshalDetails(d model.Details) (string, error) {
	m := map[string]any{
		"labels": d.Labels,
		"notes":  d.Notes,
	}
	if d.Labels == nil {
		m["labels"] = []string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal details: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDetails parses details JSON TEXT. Empty label lists read back as nil.
func unmarshalDetails(data string) (model.Details, error) {
	var raw struct {
		Labels []string `json:"labels"`
		Notes  string   `json:"notes"`
	}
	if data == "" {
		return model.Details{}, nil
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return model.Details{}, fmt.Errorf("unmarshal details: %w", err)
	}
	d := model.Details{Notes: raw.Notes}
	if len(raw.Labels) > 0 {
		d.Labels = raw.Labels
	}
	return d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
