package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"chalk-cli/internal/model"
)

func testStore(t *testing.T) Store {
	t.Helper()
	return Store{Path: filepath.Join(t.TempDir(), "state.db")}
}

func TestUIStateRoundTrip(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	// Missing row => empty state.
	st0, err := s.LoadUIState(ctx, "crs-1")
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if st0.SelectedID != "" || len(st0.Expanded) != 0 {
		t.Fatalf("expected empty state; got %#v", st0)
	}

	want := &UIState{
		CourseID:     "crs-1",
		SelectedID:   "lsn-2",
		SelectedType: model.EntityLesson,
		Expanded:     []string{"prj-1", "lsn-2"},
	}
	if err := s.SaveUIState(ctx, want); err != nil {
		t.Fatalf("SaveUIState: %v", err)
	}

	got, err := s.LoadUIState(ctx, "crs-1")
	if err != nil {
		t.Fatalf("LoadUIState (after save): %v", err)
	}
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("roundtrip mismatch:\nwant: %#v\ngot:  %#v", want, got)
	}
}

func TestUIStateIsScopedPerCourse(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveUIState(ctx, &UIState{CourseID: "crs-1", SelectedID: "prj-1", SelectedType: model.EntityProject}); err != nil {
		t.Fatalf("save crs-1: %v", err)
	}
	if err := s.SaveUIState(ctx, &UIState{CourseID: "crs-2", SelectedID: "lsn-9", SelectedType: model.EntityLesson}); err != nil {
		t.Fatalf("save crs-2: %v", err)
	}

	one, err := s.LoadUIState(ctx, "crs-1")
	if err != nil {
		t.Fatalf("load crs-1: %v", err)
	}
	if one.SelectedID != "prj-1" {
		t.Fatalf("expected crs-1 selection prj-1; got %q", one.SelectedID)
	}

	// Re-saving a course overwrites only that course's row.
	if err := s.SaveUIState(ctx, &UIState{CourseID: "crs-1", SelectedID: "prj-2", SelectedType: model.EntityProject}); err != nil {
		t.Fatalf("resave crs-1: %v", err)
	}
	one, err = s.LoadUIState(ctx, "crs-1")
	if err != nil {
		t.Fatalf("reload crs-1: %v", err)
	}
	if one.SelectedID != "prj-2" {
		t.Fatalf("expected crs-1 selection prj-2; got %q", one.SelectedID)
	}
	two, err := s.LoadUIState(ctx, "crs-2")
	if err != nil {
		t.Fatalf("load crs-2: %v", err)
	}
	if two.SelectedID != "lsn-9" || two.SelectedType != model.EntityLesson {
		t.Fatalf("crs-2 state clobbered: %#v", two)
	}
}

func TestSaveUIStateWithoutCourseIsNoOp(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if err := s.SaveUIState(context.Background(), &UIState{SelectedID: "prj-1"}); err != nil {
		t.Fatalf("expected nil error for stateless save; got %v", err)
	}
	if err := s.SaveUIState(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error for nil state; got %v", err)
	}
}
