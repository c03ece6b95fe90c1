package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/engine"
)

// ErrNoRunID is returned when recording a result that has no run id.
var ErrNoRunID = errors.New("result has no run id")

// RecordRun writes a run's counters, snapshot, firings and failures in one
// transaction. runErr is the error Run returned, if any, and is stored as
// text.
//
// Recording is idempotent: rows that already exist for the run are left
// untouched, and the returned count is the number of firings inserted.
func (s *Store) RecordRun(ctx context.Context, res *engine.Result, runErr error) (int, error) {
	if res == nil || res.RunID == "" {
		return 0, ErrNoRunID
	}
	snap, err := res.Snapshot.MarshalCanonical()
	if err != nil {
		return 0, fmt.Errorf("record run: snapshot: %w", err)
	}
	hash, err := res.Snapshot.Hash()
	if err != nil {
		return 0, fmt.Errorf("record run: snapshot hash: %w", err)
	}
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, rounds, invocations, components, facts, transitions,
			failures, duplicate_creations, snapshot, snapshot_hash, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, res.RunID, res.Rounds, res.Invocations, res.Stats.Components, res.Stats.Facts, res.Stats.Transitions,
		len(res.Failures), res.Stats.DuplicateCreations, string(snap), hash, errText)
	if err != nil {
		return 0, fmt.Errorf("record run: insert run: %w", err)
	}

	inserted := 0
	for _, f := range res.Firings {
		n, err := insertFiring(ctx, tx, res.RunID, f)
		if err != nil {
			return 0, fmt.Errorf("record run: firing %d: %w", f.Seq, err)
		}
		inserted += n
	}

	for i, f := range res.Failures {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failures (run_id, idx, round, code, rule, component, item, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, idx) DO NOTHING
		`, res.RunID, i, f.Round, string(f.Code), f.Rule, f.Component, f.Item, f.Err.Error())
		if err != nil {
			return 0, fmt.Errorf("record run: failure %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: commit: %w", err)
	}
	return inserted, nil
}

func insertFiring(ctx context.Context, tx *sql.Tx, runID string, f engine.Firing) (int, error) {
	value, err := marshalValue(f.Fact.Mutation.Value)
	if err != nil {
		return 0, err
	}
	details, err := marshalDetails(f.Fact.Mutation.Details)
	if err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO firings (run_id, seq, round, rule, component, item, target, creates, op, slot, value, details, changed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, f.Seq, f.Round, f.Rule, f.Component, f.Item, f.Fact.Component, boolToInt(f.Fact.Creates),
		string(f.Fact.Mutation.Op), f.Fact.Mutation.Slot, value, details, boolToInt(f.Changed))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
