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

// UIState is the slice of TUI state worth restoring on relaunch, scoped per
// course: which row was selected and which containers were expanded.
//
// It is best effort. Entities may have been renamed or deleted since the
// last run, so callers should treat every field as a hint, not a fact.
type UIState struct {
	CourseID     string
	SelectedID   string
	SelectedType model.EntityType
	Expanded     []string
}

// LoadUIState returns the saved state for courseID, or an empty state when
// none has been saved yet.
func (s Store) LoadUIState(ctx context.Context, courseID string) (*UIState, error) {
	courseID = strings.TrimSpace(courseID)
	st := &UIState{CourseID: courseID}
	if courseID == "" {
		return st, nil
	}
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var selID, selType, expandedJSON string
	err = db.QueryRowContext(ctx,
		`SELECT selected_id, selected_type, expanded_json FROM ui_state WHERE course_id = ?`,
		courseID).Scan(&selID, &selType, &expandedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return nil, err
	}
	st.SelectedID = strings.TrimSpace(selID)
	st.SelectedType = model.EntityType(strings.TrimSpace(selType))
	// A corrupted row reads as empty state rather than failing the launch.
	_ = json.Unmarshal([]byte(expandedJSON), &st.Expanded)
	return st, nil
}

func (s Store) SaveUIState(ctx context.Context, st *UIState) error {
	if st == nil || strings.TrimSpace(st.CourseID) == "" {
		return nil
	}
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	expanded, err := json.Marshal(st.Expanded)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT OR REPLACE INTO ui_state(course_id, selected_id, selected_type, expanded_json, updated_at_unixms)
		 VALUES(?, ?, ?, ?, ?)`,
		strings.TrimSpace(st.CourseID), strings.TrimSpace(st.SelectedID), string(st.SelectedType),
		string(expanded), time.Now().UTC().UnixMilli())
	return err
}
