// Package store persists finished analysis runs to sqlite so results can be
// inspected or diffed after the process exits. One run is one row in runs
// plus the full flattened registry in objects, shadowed entries included.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"docgraph/internal/model"
)

const sqliteDriverName = "sqlite"

type Store struct {
	db *sql.DB
}

type RunRecord struct {
	ID          string
	CreatedAt   time.Time
	Roots       string
	Objects     int
	Diagnostics int
}

type ObjectRecord struct {
	FullName  string
	Name      string
	Kind      string
	File      string
	Line      int
	Parent    string
	Docstring string
	Shadowed  bool
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", cleanPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping store %q: %w", cleanPath, err)
	}
	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrateSchema(db *sql.DB) error {
	var version int
	_ = db.QueryRow(`PRAGMA user_version`).Scan(&version)
	if version >= 1 {
		return nil
	}

	_, err := db.Exec(`
CREATE TABLE runs (
  run_id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  roots TEXT NOT NULL DEFAULT '',
  object_count INTEGER NOT NULL DEFAULT 0,
  diagnostic_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE objects (
  run_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  file_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0,
  parent TEXT NOT NULL DEFAULT '',
  docstring TEXT NOT NULL DEFAULT '',
  shadowed INTEGER NOT NULL DEFAULT 0,
  FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);
CREATE INDEX idx_objects_run_full_name ON objects(run_id, full_name);

CREATE TABLE diagnostics (
  run_id TEXT NOT NULL,
  object TEXT NOT NULL DEFAULT '',
  file_path TEXT NOT NULL DEFAULT '',
  line_number INTEGER NOT NULL DEFAULT 0,
  severity TEXT NOT NULL,
  message TEXT NOT NULL,
  FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

PRAGMA user_version = 1;
`)
	if err != nil {
		return fmt.Errorf("create v1 schema: %w", err)
	}
	return nil
}

// SaveRun writes one finished analysis: every registered object including
// the shadowed history, plus the accumulated diagnostics. Returns the new
// run id.
func (s *Store) SaveRun(root *model.TreeRoot, roots []string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("store not initialized")
	}
	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin run tx: %w", err)
	}

	objects, err := insertObjects(tx, runID, root)
	if err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := insertDiagnostics(tx, runID, root.Diagnostics()); err != nil {
		_ = tx.Rollback()
		return "", err
	}

	rootNames := strings.Join(roots, ",")
	if _, err := tx.Exec(
		`INSERT INTO runs (run_id, created_at, roots, object_count, diagnostic_count) VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now().UTC().Format(time.RFC3339), rootNames, objects, len(root.Diagnostics()),
	); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("insert run row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run tx: %w", err)
	}
	return runID, nil
}

func insertObjects(tx *sql.Tx, runID string, root *model.TreeRoot) (int, error) {
	stmt, err := tx.Prepare(`
INSERT INTO objects (run_id, full_name, name, kind, file_path, line_number, parent, docstring, shadowed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare object insert: %w", err)
	}
	defer stmt.Close()

	count := 0
	var insertErr error
	root.AllObjects.Iter(func(name string, _ model.ApiObject) bool {
		queue := root.AllObjects.GetAll(name)
		for i, ob := range queue {
			shadowed := i != len(queue)-1
			parent := ""
			if p := ob.Parent(); p != nil {
				parent = p.FullName()
			}
			docstring := ""
			if doc := ob.Docstring(); doc != nil {
				docstring = doc.Content
			}
			loc := ob.Location()
			if _, err := stmt.Exec(
				runID, name, ob.Name(), string(ob.Kind()),
				loc.Filename, loc.Line, parent, docstring, boolToInt(shadowed),
			); err != nil {
				insertErr = fmt.Errorf("insert object row %q: %w", name, err)
				return false
			}
			count++
		}
		return true
	})
	return count, insertErr
}

func insertDiagnostics(tx *sql.Tx, runID string, diagnostics []model.Diagnostic) error {
	stmt, err := tx.Prepare(`
INSERT INTO diagnostics (run_id, object, file_path, line_number, severity, message)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare diagnostic insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range diagnostics {
		if _, err := stmt.Exec(runID, d.Object, d.Location.Filename, d.Location.Line, d.Severity.String(), d.Message); err != nil {
			return fmt.Errorf("insert diagnostic row: %w", err)
		}
	}
	return nil
}

// Lookup returns the persisted history for one qualified name in one run,
// insertion order, winner last.
func (s *Store) Lookup(runID, fullName string) ([]ObjectRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	rows, err := s.db.Query(`
SELECT full_name, name, kind, file_path, line_number, parent, docstring, shadowed
FROM objects WHERE run_id = ? AND full_name = ? ORDER BY rowid`, runID, fullName)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", fullName, err)
	}
	defer rows.Close()

	var out []ObjectRecord
	for rows.Next() {
		var rec ObjectRecord
		var shadowed int
		if err := rows.Scan(&rec.FullName, &rec.Name, &rec.Kind, &rec.File, &rec.Line, &rec.Parent, &rec.Docstring, &shadowed); err != nil {
			return nil, fmt.Errorf("scan object row: %w", err)
		}
		rec.Shadowed = shadowed != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run, or nil when the store is empty.
func (s *Store) LatestRun() (*RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}
	var rec RunRecord
	var created string
	err := s.db.QueryRow(`
SELECT run_id, created_at, roots, object_count, diagnostic_count
FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).
		Scan(&rec.ID, &created, &rec.Roots, &rec.Objects, &rec.Diagnostics)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &rec, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
