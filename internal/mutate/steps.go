package mutate

import (
	"context"
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"
)

// ReplaceSteps swaps a lesson's whole step sequence. Add, remove, reorder and
// edit all come down to this server-side; the wrappers below build the new
// sequence while keeping step ids stable.
func (c *Coordinator) ReplaceSteps(lessonID string, steps []model.Step) (*Pending, error) {
	snap, err := c.cache.ReplaceSteps(lessonID, steps)
	if err != nil {
		return nil, err
	}
	return c.contentPending("edit steps", lessonID, snap), nil
}

// InsertStep inserts a step at the given position (clamped). A missing step
// id is minted here; blob steps keep their client ids for good.
func (c *Coordinator) InsertStep(lessonID string, at int, s model.Step) (*Pending, error) {
	if strings.TrimSpace(string(s.Type)) == "" {
		return nil, ValidationError{Field: "step", Reason: "missing type"}
	}
	if strings.TrimSpace(s.ID) == "" {
		id, err := store.NewStepID()
		if err != nil {
			return nil, err
		}
		s.ID = id
	}

	cur := c.cache.Steps(lessonID)
	if at < 0 || at > len(cur) {
		at = len(cur)
	}
	next := make([]model.Step, 0, len(cur)+1)
	next = append(next, cur[:at]...)
	next = append(next, s)
	next = append(next, cur[at:]...)

	snap, err := c.cache.ReplaceSteps(lessonID, next)
	if err != nil {
		return nil, err
	}
	return c.contentPending("add step", lessonID, snap), nil
}

// RemoveStep deletes the step at index. If the removed step was selected the
// selection moves to the owning lesson.
func (c *Coordinator) RemoveStep(lessonID string, index int) (*Pending, error) {
	// The id has to be read before the splice shifts the sequence.
	removedID := ""
	if cur := c.cache.Steps(lessonID); index >= 0 && index < len(cur) {
		removedID = cur[index].ID
	}
	snap, err := c.cache.RemoveStepAt(lessonID, index)
	if err != nil {
		return nil, err
	}
	repair := c.repairSelection(map[string]bool{removedID: true}, lessonID, model.EntityLesson)

	action := "remove step"
	steps := model.CloneSteps(c.cache.Steps(lessonID))
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.UpdateLessonContent(ctx, lessonID, steps)
			return Result{err: err, resolve: func() error {
				if err == nil {
					return nil
				}
				restored, uerr := c.fail(action, err, snap)
				if restored {
					repair.undo()
				}
				return uerr
			}}
		},
	}, nil
}

// EditStep patches one step's type or payload in place.
func (c *Coordinator) EditStep(lessonID, stepID string, patch outline.StepPatch) (*Pending, error) {
	snap, err := c.cache.PatchStep(lessonID, stepID, patch)
	if err != nil {
		return nil, err
	}
	return c.contentPending("edit step", lessonID, snap), nil
}
