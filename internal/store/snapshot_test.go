package store

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"chalk-cli/internal/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	pulled := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	want := &CourseSnapshot{
		Course: model.Course{ID: "crs-1", Title: "Kitchen Fundamentals", Status: model.CoursePublished},
		// Inserted out of display order; loads must come back by OrderIndex.
		Projects: []model.Project{
			{ID: "prj-b", CourseID: "crs-1", Title: "Beta", OrderIndex: 1},
			{ID: "prj-a", CourseID: "crs-1", Title: "Alpha", OrderIndex: 0, IsPublished: true},
		},
		Lessons: map[string][]model.Lesson{
			"prj-a": {
				{ID: "lsn-1", ProjectID: "prj-a", Title: "Intro", SequenceOrder: 1,
					LinkedTaskIDs: []string{"tsk-1"},
					Content: []model.Step{
						{ID: "step-aa", Type: model.StepText, Order: 0, Payload: json.RawMessage(`{"text":"hi"}`)},
					}},
				{ID: "lsn-2", ProjectID: "prj-a", Title: "Setup", SequenceOrder: 2, IsDraft: true},
			},
		},
		Tasks: map[string][]model.Task{
			"lsn-1": {{ID: "tsk-1", Title: "Read the intro", XPValue: 10, IsRequired: true}},
		},
		PulledAt: pulled,
	}

	if err := s.SaveSnapshot(ctx, want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}

	got, err := s.LoadSnapshot(ctx, "crs-1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Course != want.Course {
		t.Fatalf("course mismatch: %#v", got.Course)
	}
	if !got.PulledAt.Equal(pulled) {
		t.Fatalf("expected pulledAt %v; got %v", pulled, got.PulledAt)
	}
	if len(got.Projects) != 2 || got.Projects[0].ID != "prj-a" || got.Projects[1].ID != "prj-b" {
		t.Fatalf("expected projects ordered by index; got %#v", got.Projects)
	}
	if !reflect.DeepEqual(got.Lessons["prj-a"], want.Lessons["prj-a"]) {
		t.Fatalf("lessons mismatch:\nwant: %#v\ngot:  %#v", want.Lessons["prj-a"], got.Lessons["prj-a"])
	}
	if !reflect.DeepEqual(got.Tasks["lsn-1"], want.Tasks["lsn-1"]) {
		t.Fatalf("tasks mismatch: %#v", got.Tasks["lsn-1"])
	}
}

func TestLoadSnapshotMissingCourse(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if _, err := s.LoadSnapshot(context.Background(), "crs-404"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot; got %v", err)
	}
	if _, err := s.SnapshotTime(context.Background(), "crs-404"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot from SnapshotTime; got %v", err)
	}
}

func TestSaveSnapshotReplacesPreviousPull(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	ctx := context.Background()

	first := &CourseSnapshot{
		Course:   model.Course{ID: "crs-1", Title: "Kitchen", Status: model.CourseDraft},
		Projects: []model.Project{{ID: "prj-a", CourseID: "crs-1", Title: "Alpha"}},
		Lessons: map[string][]model.Lesson{
			"prj-a": {{ID: "lsn-1", ProjectID: "prj-a", Title: "Intro", SequenceOrder: 1}},
		},
		Tasks:    map[string][]model.Task{"lsn-1": {{ID: "tsk-1", Title: "Read"}}},
		PulledAt: time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSnapshot(ctx, first); err != nil {
		t.Fatalf("first save: %v", err)
	}

	// Second pull: lsn-1 deleted server-side, its task link gone with it.
	second := &CourseSnapshot{
		Course:   model.Course{ID: "crs-1", Title: "Kitchen", Status: model.CoursePublished},
		Projects: []model.Project{{ID: "prj-a", CourseID: "crs-1", Title: "Alpha"}},
		Lessons:  map[string][]model.Lesson{},
		Tasks:    map[string][]model.Task{},
		PulledAt: time.Date(2025, 11, 2, 0, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSnapshot(ctx, second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := s.LoadSnapshot(ctx, "crs-1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Course.Status != model.CoursePublished {
		t.Fatalf("expected refreshed course; got %#v", got.Course)
	}
	if len(got.Lessons) != 0 || len(got.Tasks) != 0 {
		t.Fatalf("stale rows survived the re-pull: lessons=%v tasks=%v", got.Lessons, got.Tasks)
	}
	when, err := s.SnapshotTime(ctx, "crs-1")
	if err != nil {
		t.Fatalf("SnapshotTime: %v", err)
	}
	if !when.Equal(second.PulledAt) {
		t.Fatalf("expected pull time %v; got %v", second.PulledAt, when)
	}
}

func TestCheckFreshDatabase(t *testing.T) {
	t.Parallel()

	s := testStore(t)
	if err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
}
