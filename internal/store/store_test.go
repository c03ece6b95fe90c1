package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_OpensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	var count int
	err = s2.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	if err != nil {
		t.Errorf("query failed: %v", err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"runs", "firings", "failures"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("read user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_firings_component'",
	).Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}

	for _, col := range []string{"failures", "duplicate_creations"} {
		var n int
		err := s.db.QueryRow(
			"SELECT COUNT(*) FROM pragma_table_info('runs') WHERE name = ?", col,
		).Scan(&n)
		if err != nil || n != 1 {
			t.Errorf("runs.%s missing after migration (n=%d, err=%v)", col, n, err)
		}
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("first Close() failed: %v", err)
	}
	// Second close must not panic.
	_ = s.Close()
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if err := s.db.QueryRow("PRAGMA " + tt.name).Scan(&got); err != nil {
				t.Fatalf("read pragma: %v", err)
			}
			if got != tt.want {
				t.Errorf("PRAGMA %s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

// createV1Database writes a database in the version 1 layout with one run
// and two recorded failures, then closes it.
func createV1Database(t *testing.T, path string) {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	defer db.Close()

	stmts := []string{
		schemaSQL,
		migrations[0].stmts[0],
		"PRAGMA user_version = 1",
		`INSERT INTO runs (run_id, rounds, invocations, components, facts, transitions, snapshot, snapshot_hash)
		 VALUES ('r1', 1, 2, 1, 0, 0, '{}', 'h')`,
		`INSERT INTO failures (run_id, idx, round, code, rule, component, item, message)
		 VALUES ('r1', 0, 1, 'NOT_FOUND', 'lookup', 'c1', 0, 'a')`,
		`INSERT INTO failures (run_id, idx, round, code, rule, component, item, message)
		 VALUES ('r1', 1, 1, 'NOT_FOUND', 'lookup', 'c2', 0, 'b')`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
}

func TestOpen_MigratesV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	createV1Database(t, path)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	version, err := schemaVersion(s.db)
	if err != nil {
		t.Fatal(err)
	}
	if version != 2 {
		t.Errorf("user_version = %d, want 2", version)
	}

	var failures, duplicates int
	err = s.db.QueryRow(
		"SELECT failures, duplicate_creations FROM runs WHERE run_id = 'r1'",
	).Scan(&failures, &duplicates)
	if err != nil {
		t.Fatalf("read migrated run: %v", err)
	}
	if failures != 2 {
		t.Errorf("failures = %d, want 2 backfilled from the failures table", failures)
	}
	if duplicates != 0 {
		t.Errorf("duplicate_creations = %d, want 0", duplicates)
	}

	// A second Open must not re-run the ALTERs.
	s.Close()
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen after migration failed: %v", err)
	}
	s2.Close()
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open() failed: %v", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion+1)); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	db.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected error opening a database from a newer version")
	}
}
