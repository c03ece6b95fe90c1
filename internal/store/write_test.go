package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/sysa/internal/engine"
	"github.com/roach88/sysa/internal/ir"
	"github.com/roach88/sysa/internal/model"
)

func TestRecordRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, runErr := runTestEngine(t, "run-1")
	if runErr != nil {
		t.Fatalf("Run() failed: %v", runErr)
	}

	n, err := s.RecordRun(ctx, res, runErr)
	if err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	if n != len(res.Firings) {
		t.Errorf("inserted %d firings, want %d", n, len(res.Firings))
	}

	run, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	wantHash, _ := res.Snapshot.Hash()
	if run.SnapshotHash != wantHash {
		t.Errorf("snapshot hash = %q, want %q", run.SnapshotHash, wantHash)
	}
	wantSnap := `{"x":{"links":[{"labels":["grafana"],"value":"http://g/platform"}],"team":"platform"}}`
	if run.Snapshot != wantSnap {
		t.Errorf("snapshot = %s, want %s", run.Snapshot, wantSnap)
	}
	if run.Rounds != res.Rounds || run.Invocations != res.Invocations {
		t.Errorf("counters = %d/%d, want %d/%d", run.Rounds, run.Invocations, res.Rounds, res.Invocations)
	}
	if run.Error != "" {
		t.Errorf("error = %q, want empty", run.Error)
	}

	firings, err := s.ReadFirings(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFirings() failed: %v", err)
	}
	if len(firings) != 2 {
		t.Fatalf("got %d firings, want 2", len(firings))
	}
	for i, f := range firings {
		if f.Seq != res.Firings[i].Seq {
			t.Errorf("firing %d seq = %d, want %d", i, f.Seq, res.Firings[i].Seq)
		}
	}

	first := firings[0]
	if first.Rule != "discover" || !first.Fact.Creates || first.Fact.Mutation.Op != model.OpSet {
		t.Errorf("first firing = %+v", first)
	}
	if first.Item != -1 {
		t.Errorf("once firing item = %d, want -1", first.Item)
	}

	link := firings[1]
	if link.Rule != "links" || link.Component != "x" || link.Fact.Component != "x" {
		t.Errorf("link firing = %+v", link)
	}
	if got, ok := link.Fact.Mutation.Value.(ir.IRString); !ok || got != "http://g/platform" {
		t.Errorf("link value = %#v", link.Fact.Mutation.Value)
	}
	if len(link.Fact.Mutation.Details.Labels) != 1 || link.Fact.Mutation.Details.Labels[0] != "grafana" {
		t.Errorf("link labels = %v", link.Fact.Mutation.Details.Labels)
	}
	if !link.Changed {
		t.Error("link firing should be marked changed")
	}
}

func TestRecordRun_Failures(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, runErr := runTestEngine(t, "run-f")
	if _, err := s.RecordRun(ctx, res, runErr); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	failures, err := s.ReadFailures(ctx, "run-f")
	if err != nil {
		t.Fatalf("ReadFailures() failed: %v", err)
	}
	if len(failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(failures))
	}
	f := failures[0]
	if f.Code != string(engine.ErrCodeRuleFailed) || f.Rule != "broken" || f.Component != "x" {
		t.Errorf("failure = %+v", f)
	}
	if f.Message != "upstream unavailable" {
		t.Errorf("message = %q", f.Message)
	}

	run, err := s.ReadRun(ctx, "run-f")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Failures != len(res.Failures) {
		t.Errorf("run failures = %d, want %d", run.Failures, len(res.Failures))
	}
	if run.DuplicateCreations != res.Stats.DuplicateCreations {
		t.Errorf("run duplicate_creations = %d, want %d", run.DuplicateCreations, res.Stats.DuplicateCreations)
	}
}

func TestRecordRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, runErr := runTestEngine(t, "run-1")
	if _, err := s.RecordRun(ctx, res, runErr); err != nil {
		t.Fatalf("first RecordRun() failed: %v", err)
	}
	n, err := s.RecordRun(ctx, res, runErr)
	if err != nil {
		t.Fatalf("second RecordRun() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second RecordRun inserted %d firings, want 0", n)
	}

	firings, err := s.ReadFirings(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFirings() failed: %v", err)
	}
	if len(firings) != len(res.Firings) {
		t.Errorf("got %d firings after re-record, want %d", len(firings), len(res.Firings))
	}
	failures, _ := s.ReadFailures(ctx, "run-1")
	if len(failures) != 1 {
		t.Errorf("got %d failures after re-record, want 1", len(failures))
	}
}

func TestRecordRun_StoresRunError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	res, _ := runTestEngine(t, "run-e")
	if _, err := s.RecordRun(ctx, res, context.Canceled); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	run, err := s.ReadRun(ctx, "run-e")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Error != context.Canceled.Error() {
		t.Errorf("error = %q, want %q", run.Error, context.Canceled.Error())
	}
}

func TestRecordRun_RequiresRunID(t *testing.T) {
	s := createTestStore(t)

	if _, err := s.RecordRun(context.Background(), nil, nil); !errors.Is(err, ErrNoRunID) {
		t.Errorf("nil result: err = %v, want ErrNoRunID", err)
	}
	if _, err := s.RecordRun(context.Background(), &engine.Result{}, nil); !errors.Is(err, ErrNoRunID) {
		t.Errorf("empty result: err = %v, want ErrNoRunID", err)
	}
}
