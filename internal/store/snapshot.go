package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"chalk-cli/internal/model"
)

// ErrNoSnapshot is returned by offline reads for a course that has never
// been pulled.
var ErrNoSnapshot = errors.New("no local snapshot for course")

// CourseSnapshot is one pulled course tree: the course record, its projects,
// every project's lessons and every lesson's linked tasks, as the server
// returned them. Lessons are keyed by project id, tasks by lesson id.
type CourseSnapshot struct {
	Course   model.Course
	Projects []model.Project
	Lessons  map[string][]model.Lesson
	Tasks    map[string][]model.Task
	PulledAt time.Time
}

// SaveSnapshot replaces any stored snapshot for snap.Course.ID.
// Replace-all per course keeps the writer trivial; a pull is a full refetch
// anyway.
func (s Store) SaveSnapshot(ctx context.Context, snap *CourseSnapshot) error {
	if snap == nil || strings.TrimSpace(snap.Course.ID) == "" {
		return errors.New("store: snapshot without course id")
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	courseID := strings.TrimSpace(snap.Course.ID)
	for _, table := range []string{"snap_projects", "snap_lessons", "snap_lesson_tasks"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE course_id = ?`, courseID); err != nil {
			return err
		}
	}

	pulledAt := snap.PulledAt
	if pulledAt.IsZero() {
		pulledAt = time.Now()
	}
	raw, _ := json.Marshal(snap.Course)
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snap_courses(id, json, pulled_at_unixms) VALUES(?, ?, ?)`,
		courseID, string(raw), pulledAt.UTC().UnixMilli()); err != nil {
		return err
	}

	for _, p := range snap.Projects {
		raw, _ := json.Marshal(p)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snap_projects(id, course_id, order_index, json) VALUES(?, ?, ?, ?)`,
			p.ID, courseID, p.OrderIndex, string(raw)); err != nil {
			return err
		}
	}
	for projectID, lessons := range snap.Lessons {
		for _, l := range lessons {
			raw, _ := json.Marshal(l)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snap_lessons(id, course_id, project_id, sequence_order, json) VALUES(?, ?, ?, ?, ?)`,
				l.ID, courseID, projectID, l.SequenceOrder, string(raw)); err != nil {
				return err
			}
		}
	}
	for lessonID, tasks := range snap.Tasks {
		for i, tk := range tasks {
			raw, _ := json.Marshal(tk)
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO snap_lesson_tasks(course_id, lesson_id, task_id, position, json) VALUES(?, ?, ?, ?, ?)`,
				courseID, lessonID, tk.ID, i, string(raw)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadSnapshot reads the stored snapshot for courseID. Projects come back
// ordered by OrderIndex, lessons by SequenceOrder and tasks in link order.
func (s Store) LoadSnapshot(ctx context.Context, courseID string) (*CourseSnapshot, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrNoSnapshot
	}
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var courseJSON string
	var pulledMs int64
	err = db.QueryRowContext(ctx,
		`SELECT json, pulled_at_unixms FROM snap_courses WHERE id = ?`, courseID).
		Scan(&courseJSON, &pulledMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}

	snap := &CourseSnapshot{PulledAt: time.UnixMilli(pulledMs).UTC()}
	if err := json.Unmarshal([]byte(courseJSON), &snap.Course); err != nil {
		return nil, err
	}

	snap.Projects, err = readJSONRows[model.Project](ctx, db,
		`SELECT json FROM snap_projects WHERE course_id = ? ORDER BY order_index`, courseID)
	if err != nil {
		return nil, err
	}
	if snap.Projects == nil {
		snap.Projects = []model.Project{}
	}
	snap.Lessons, err = readGroupedRows[model.Lesson](ctx, db,
		`SELECT project_id, json FROM snap_lessons WHERE course_id = ? ORDER BY sequence_order`, courseID)
	if err != nil {
		return nil, err
	}
	snap.Tasks, err = readGroupedRows[model.Task](ctx, db,
		`SELECT lesson_id, json FROM snap_lesson_tasks WHERE course_id = ? ORDER BY position`, courseID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotTime reports when courseID was last pulled, without loading the
// tree. Returns ErrNoSnapshot when it never was.
func (s Store) SnapshotTime(ctx context.Context, courseID string) (time.Time, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return time.Time{}, ErrNoSnapshot
	}
	db, err := s.open(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer db.Close()

	var pulledMs int64
	err = db.QueryRowContext(ctx,
		`SELECT pulled_at_unixms FROM snap_courses WHERE id = ?`, courseID).Scan(&pulledMs)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(pulledMs).UTC(), nil
}
