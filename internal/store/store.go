package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Store is the local sqlite database holding per-course UI state and pulled
// course snapshots. Path points at the database file; the parent directory
// is created on first use.
//
// Connections are opened per operation. The CLI is short-lived and the TUI
// touches the store only on start and quit, so there is nothing to gain from
// keeping a pool alive.
type Store struct {
	Path string
}

func (s Store) open(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("store: empty database path")
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, err
	}
	// WAL enables one writer + many readers; busy_timeout avoids "database is
	// locked" flakiness when a TUI and a CLI run side by side.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ui_state (
			course_id TEXT PRIMARY KEY,
			selected_id TEXT NOT NULL,
			selected_type TEXT NOT NULL,
			expanded_json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snap_courses (
			id TEXT PRIMARY KEY,
			json TEXT NOT NULL,
			pulled_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snap_projects (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snap_projects_course ON snap_projects(course_id, order_index);`,
		`CREATE TABLE IF NOT EXISTS snap_lessons (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			project_id TEXT NOT NULL,
			sequence_order INTEGER NOT NULL,
			json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snap_lessons_project ON snap_lessons(project_id, sequence_order);`,
		`CREATE TABLE IF NOT EXISTS snap_lesson_tasks (
			course_id TEXT NOT NULL,
			lesson_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			json TEXT NOT NULL,
			PRIMARY KEY(lesson_id, task_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snap_lesson_tasks_lesson ON snap_lesson_tasks(lesson_id, position);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// Check opens the database (creating it if missing) and runs sqlite's own
// integrity check. Used by `chalk doctor`.
func (s Store) Check(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	var res string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check;`).Scan(&res); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(res), "ok") {
		return fmt.Errorf("integrity check: %s", res)
	}
	return nil
}

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// readGroupedRows reads (group key, json) pairs into a map of decoded slices,
// preserving the query's row order within each group.
func readGroupedRows[T any](ctx context.Context, db *sql.DB, query string, args ...any) (map[string][]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string][]T{}
	for rows.Next() {
		var key, js string
		if err := rows.Scan(&key, &js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out[key] = append(out[key], v)
	}
	return out, rows.Err()
}
