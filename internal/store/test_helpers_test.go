package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
	"github.com/roach88/sysa/internal/schema"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// runTestEngine runs a small rule set: one discovery rule, one rule that
// adds a labelled link, and one that always fails.
func runTestEngine(t *testing.T, runID string) (*engine.Result, error) {
	t.Helper()
	sch := new(schema.Builder).
		Single("team", ir.KindString).
		Multi("links", ir.KindString).
		MustBuild()
	e := engine.New(sch,
		engine.WithRunID(runID),
		engine.WithLogger(slog.New(slog.DiscardHandler)),
	)

	mustRegister(t, e.Once("discover", func(context.Context, []model.Model) (fact.Set, error) {
		return fact.CreateComponent("x", fact.Set("team", ir.Str("platform"))), nil
	}))
	mustRegister(t, e.For("team", "links", func(_ context.Context, team ir.IRValue, m model.Model) (fact.Set, error) {
		return fact.Component(m.ID(), fact.Add("links", ir.Str("http://g/"+string(team.(ir.IRString))), fact.Labelled("grafana"))), nil
	}))
	mustRegister(t, e.For("team", "broken", func(context.Context, ir.IRValue, model.Model) (fact.Set, error) {
		return nil, errors.New("upstream unavailable")
	}))

	return e.Run(context.Background())
}

func mustRegister(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("register rule: %v", err)
	}
}

func detailsOf(labels []string, notes string) model.Details {
	return model.Details{Labels: labels, Notes: notes}
}
