package mutate

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"chalk-cli/internal/api"
	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

func TestDeleteLessonRepairsSelectionAndExpansion(t *testing.T) {
	co, fc := newTestCoordinator(t)
	co.State().Select("l1", model.EntityLesson)

	p, err := co.Delete("l1", model.EntityLesson)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if id, typ, ok := co.State().Selection(); !ok || id != "p1" || typ != model.EntityProject {
		t.Fatalf("expected selection repaired to parent project, got %q %s", id, typ)
	}
	if co.State().IsExpanded("l1") {
		t.Fatalf("expected expansion purged")
	}
	ls := co.Cache().Lessons("p1")
	if len(ls) != 1 || ls[0].ID != "l2" || ls[0].SequenceOrder != 1 {
		t.Fatalf("expected dense survivor list, got %+v", ls)
	}
	if got := co.Cache().Tasks("l1"); got != nil {
		t.Fatalf("expected task slice dropped, got %+v", got)
	}

	if err := resolve(t, p); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(fc.calls) != 1 || fc.calls[0] != "delete lesson/l1 cascade=true" {
		t.Fatalf("unexpected calls %v", fc.calls)
	}
}

func TestDeleteLessonLeavesUnrelatedSelectionAlone(t *testing.T) {
	co, _ := newTestCoordinator(t)
	co.State().Select("l3", model.EntityLesson)

	p, err := co.Delete("l1", model.EntityLesson)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if id, _, _ := co.State().Selection(); id != "l3" {
		t.Fatalf("expected selection untouched, got %q", id)
	}
	if err := resolve(t, p); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestDeleteFailureRestoresSubtreeVerbatim(t *testing.T) {
	co, fc := newTestCoordinator(t)
	fc.failWith = fmt.Errorf("boom")
	co.State().Select("l1", model.EntityLesson)

	beforeLessons := model.CloneLessons(co.Cache().Lessons("p1"))
	beforeTasks := model.CloneTasks(co.Cache().Tasks("l1"))

	p, err := co.Delete("l1", model.EntityLesson)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if rerr := resolve(t, p); rerr == nil {
		t.Fatalf("expected resolve error")
	}
	if !reflect.DeepEqual(co.Cache().Lessons("p1"), beforeLessons) {
		t.Fatalf("expected lessons restored verbatim")
	}
	if !reflect.DeepEqual(co.Cache().Tasks("l1"), beforeTasks) {
		t.Fatalf("expected tasks restored verbatim")
	}
	if id, _, _ := co.State().Selection(); id != "l1" {
		t.Fatalf("expected selection restored, got %q", id)
	}
	if !co.State().IsExpanded("l1") {
		t.Fatalf("expected expansion restored")
	}
}

func TestDeleteCascadeRefusedRestoresAndSurfacesReason(t *testing.T) {
	co, fc := newTestCoordinator(t)
	fc.deleteResult = &api.DeleteResult{Cascaded: false, Reason: "lesson has linked tasks"}
	co.State().Select("l1", model.EntityLesson)

	p, err := co.Delete("l1", model.EntityLesson)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rerr := resolve(t, p)
	if rerr == nil {
		t.Fatalf("expected conflict error")
	}
	if !IsConflict(rerr) {
		t.Fatalf("expected ConflictError, got %v", rerr)
	}
	var conflict ConflictError
	if !errors.As(rerr, &conflict) || conflict.Reason != "lesson has linked tasks" {
		t.Fatalf("expected server reason surfaced, got %v", rerr)
	}
	if got := lessonIDs(co, "p1"); len(got) != 2 || got[0] != "l1" {
		t.Fatalf("expected subtree restored, got %v", got)
	}
	if id, _, _ := co.State().Selection(); id != "l1" {
		t.Fatalf("expected selection restored, got %q", id)
	}
}

func TestDeleteProjectClearsSelectionForRowsInSubtree(t *testing.T) {
	co, _ := newTestCoordinator(t)
	// A task row under l1 is selected; the project delete sweeps it away.
	co.State().Select("t1", model.EntityTask)

	p, err := co.Delete("p1", model.EntityProject)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, _, ok := co.State().Selection(); ok {
		t.Fatalf("expected selection cleared; a project's parent has no row")
	}
	if got := co.Cache().ProjectIDs(); len(got) != 1 || got[0] != "p2" {
		t.Fatalf("expected p1 removed, got %v", got)
	}
	if co.Cache().Loaded(outline.LessonsKey("p1")) {
		t.Fatalf("expected lesson slice forgotten")
	}
	if err := resolve(t, p); err != nil {
		t.Fatalf("resolve: %v", err)
	}
}

func TestDeleteUnknownEntity(t *testing.T) {
	co, _ := newTestCoordinator(t)

	_, err := co.Delete("nope", model.EntityLesson)
	var nf *outline.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if _, err := co.Delete("s1", model.EntityStep); !IsValidation(err) {
		t.Fatalf("expected validation error for step delete, got %v", err)
	}
}
