package mutate

import (
	"context"
	"fmt"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// ReorderIntent is an index-based move within one sibling set. ParentType
// picks the set: course reorders projects, project reorders lessons, lesson
// reorders steps. TargetIndex is the row's final position after the move.
type ReorderIntent struct {
	ParentID    string
	ParentType  model.EntityType
	SourceIndex int
	TargetIndex int
}

// Reorder applies an intent optimistically and returns the remote half.
// Moving a row onto its own position is a no-op: no mutation, no call, nil
// Pending.
func (c *Coordinator) Reorder(intent ReorderIntent) (*Pending, error) {
	switch intent.ParentType {
	case model.EntityCourse:
		return c.reorderProjects(intent)
	case model.EntityProject:
		return c.reorderLessons(intent)
	case model.EntityLesson:
		return c.reorderSteps(intent)
	default:
		return nil, ValidationError{Field: "parentType", Reason: fmt.Sprintf("%s has no reorderable children", intent.ParentType)}
	}
}

func (c *Coordinator) reorderProjects(intent ReorderIntent) (*Pending, error) {
	ids := c.cache.ProjectIDs()
	ordered, ok := moveIndex(ids, intent.SourceIndex, intent.TargetIndex)
	if !ok {
		return nil, ValidationError{Field: "index", Reason: "out of range"}
	}
	if ordered == nil {
		return nil, nil
	}
	snap, err := c.cache.ReorderProjects(ordered)
	if err != nil {
		return nil, err
	}
	parentID := intent.ParentID
	if parentID == "" {
		parentID = c.courseID
	}
	return c.reorderPending("reorder projects", parentID, model.EntityCourse, ordered, snap), nil
}

func (c *Coordinator) reorderLessons(intent ReorderIntent) (*Pending, error) {
	ids := c.cache.LessonIDs(intent.ParentID)
	ordered, ok := moveIndex(ids, intent.SourceIndex, intent.TargetIndex)
	if !ok {
		return nil, ValidationError{Field: "index", Reason: "out of range"}
	}
	if ordered == nil {
		return nil, nil
	}
	snap, err := c.cache.ReorderLessons(intent.ParentID, ordered)
	if err != nil {
		return nil, err
	}
	return c.reorderPending("reorder lessons", intent.ParentID, model.EntityProject, ordered, snap), nil
}

// reorderSteps persists through the whole content blob: steps are not
// individually addressable server-side.
func (c *Coordinator) reorderSteps(intent ReorderIntent) (*Pending, error) {
	lessonID := intent.ParentID
	steps := c.cache.Steps(lessonID)
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.ID
	}
	ordered, ok := moveIndex(ids, intent.SourceIndex, intent.TargetIndex)
	if !ok {
		return nil, ValidationError{Field: "index", Reason: "out of range"}
	}
	if ordered == nil {
		return nil, nil
	}
	snap, err := c.cache.ReorderSteps(lessonID, ordered)
	if err != nil {
		return nil, err
	}
	return c.contentPending("reorder steps", lessonID, snap), nil
}

func (c *Coordinator) reorderPending(action, parentID string, parentType model.EntityType, ordered []string, snaps ...outline.Snapshot) *Pending {
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.ReorderSiblings(ctx, parentID, parentType, ordered)
			return Result{err: err, resolve: func() error {
				if err == nil {
					return nil
				}
				_, uerr := c.fail(action, err, snaps...)
				return uerr
			}}
		},
	}
}

// contentPending pushes a lesson's current step sequence and rolls the given
// snapshots back if the push fails. The steps are deep-copied here, on the
// event loop, so the remote call never reads cache-owned memory.
func (c *Coordinator) contentPending(action, lessonID string, snaps ...outline.Snapshot) *Pending {
	steps := model.CloneSteps(c.cache.Steps(lessonID))
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.UpdateLessonContent(ctx, lessonID, steps)
			return Result{err: err, resolve: func() error {
				if err == nil {
					return nil
				}
				_, uerr := c.fail(action, err, snaps...)
				return uerr
			}}
		},
	}
}

// moveIndex moves ids[from] so it lands at index to in the result. Returns
// (nil, true) when the move is a no-op and (nil, false) when an index is out
// of range.
func moveIndex(ids []string, from, to int) ([]string, bool) {
	if from < 0 || from >= len(ids) {
		return nil, false
	}
	if to < 0 {
		to = 0
	}
	if to > len(ids)-1 {
		to = len(ids) - 1
	}
	if from == to {
		return nil, true
	}
	moved := ids[from]
	rest := make([]string, 0, len(ids)-1)
	rest = append(rest, ids[:from]...)
	rest = append(rest, ids[from+1:]...)
	out := make([]string, 0, len(ids))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return out, true
}
