package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sysa/internal/fact"
	"github.com/roach88/sysa/internal/model"
)

// ErrRunNotFound is returned by ReadRun for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is a stored run.
type RunRecord struct {
	RunID              string
	Rounds             int
	Invocations        int
	Components         int
	Facts              int
	Transitions        int
	Failures           int
	DuplicateCreations int
	Snapshot           string
	SnapshotHash       string
	Error              string
}

// FiringRecord is a stored applied fact.
type FiringRecord struct {
	Seq       int64
	Round     int
	Rule      string
	Component string
	Item      int
	Fact      fact.Fact
	Changed   bool
}

// FailureRecord is a stored failure.
type FailureRecord struct {
	Index     int
	Round     int
	Code      string
	Rule      string
	Component string
	Item      int
	Message   string
}

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, runID string) (RunRecord, error) {
	var r RunRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, rounds, invocations, components, facts, transitions,
			failures, duplicate_creations, snapshot, snapshot_hash, error
		FROM runs
		WHERE run_id = ?
	`, runID).Scan(&r.RunID, &r.Rounds, &r.Invocations, &r.Components, &r.Facts, &r.Transitions,
		&r.Failures, &r.DuplicateCreations, &r.Snapshot, &r.SnapshotHash, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return RunRecord{}, fmt.Errorf("read run %s: %w", runID, err)
	}
	return r, nil
}

// ListRuns returns the ids of all stored runs in byte order.
func (s *Store) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY run_id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReadFirings returns a run's firings ordered by seq.
func (s *Store) ReadFirings(ctx context.Context, runID string) ([]FiringRecord, error) {
	return s.readFirings(ctx, `
		SELECT seq, round, rule, component, item, target, creates, op, slot, value, details, changed
		FROM firings
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadComponentFirings returns the firings of one component's invocations,
// ordered by seq.
func (s *Store) ReadComponentFirings(ctx context.Context, runID, component string) ([]FiringRecord, error) {
	return s.readFirings(ctx, `
		SELECT seq, round, rule, component, item, target, creates, op, slot, value, details, changed
		FROM firings
		WHERE run_id = ? AND component = ?
		ORDER BY seq ASC
	`, runID, component)
}

func (s *Store) readFirings(ctx context.Context, query string, args ...any) ([]FiringRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read firings: %w", err)
	}
	defer rows.Close()

	var out []FiringRecord
	for rows.Next() {
		f, err := scanFiring(rows)
		if err != nil {
			return nil, fmt.Errorf("read firings: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFiring(rows *sql.Rows) (FiringRecord, error) {
	var (
		f                     FiringRecord
		creates, changed      int
		op, value, detailsRaw string
	)
	err := rows.Scan(&f.Seq, &f.Round, &f.Rule, &f.Component, &f.Item, &f.Fact.Component, &creates,
		&op, &f.Fact.Mutation.Slot, &value, &detailsRaw, &changed)
	if err != nil {
		return FiringRecord{}, fmt.Errorf("scan: %w", err)
	}
	f.Fact.Creates = creates != 0
	f.Fact.Mutation.Op = model.Op(op)
	f.Changed = changed != 0

	if f.Fact.Mutation.Value, err = unmarshalValue(value); err != nil {
		return FiringRecord{}, err
	}
	if f.Fact.Mutation.Details, err = unmarshalDetails(detailsRaw); err != nil {
		return FiringRecord{}, err
	}
	return f, nil
}

// ReadFailures returns a run's failures in the order they were recorded.
func (s *Store) ReadFailures(ctx context.Context, runID string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, round, code, rule, component, item, message
		FROM failures
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("read failures: %w", err)
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.Index, &f.Round, &f.Code, &f.Rule, &f.Component, &f.Item, &f.Message); err != nil {
			return nil, fmt.Errorf("read failures: scan: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
