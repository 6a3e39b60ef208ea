package mutate

import (
	"context"
	"fmt"
	"strings"

	"chalk-cli/internal/api"
	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// patchPending pushes a field patch and rolls the given snapshots back if it
// fails. Field patches have no selection or expansion effects.
func (c *Coordinator) patchPending(action, id string, typ model.EntityType, patch api.Patch, snaps ...outline.Snapshot) *Pending {
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.UpdateEntity(ctx, id, typ, patch)
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

// Rename retitles a project or lesson. An empty title is rejected before any
// local mutation.
func (c *Coordinator) Rename(id string, typ model.EntityType, title string) (*Pending, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ValidationError{Field: "title", Reason: "cannot be empty"}
	}
	switch typ {
	case model.EntityProject:
		snap, err := c.cache.PatchProject(id, outline.ProjectPatch{Title: &title})
		if err != nil {
			return nil, err
		}
		return c.patchPending("rename project", id, typ, api.Patch{"title": title}, snap), nil
	case model.EntityLesson:
		snap, err := c.cache.PatchLesson(id, outline.LessonPatch{Title: &title})
		if err != nil {
			return nil, err
		}
		return c.patchPending("rename lesson", id, typ, api.Patch{"title": title}, snap), nil
	default:
		return nil, ValidationError{Field: "type", Reason: fmt.Sprintf("%s cannot be renamed", typ)}
	}
}

// SetDescription edits a project's description.
func (c *Coordinator) SetDescription(projectID, description string) (*Pending, error) {
	snap, err := c.cache.PatchProject(projectID, outline.ProjectPatch{Description: &description})
	if err != nil {
		return nil, err
	}
	return c.patchPending("edit description", projectID, model.EntityProject, api.Patch{"description": description}, snap), nil
}

// SetXPThreshold sets the XP gate on a project or lesson.
func (c *Coordinator) SetXPThreshold(id string, typ model.EntityType, xp int) (*Pending, error) {
	if xp < 0 {
		return nil, ValidationError{Field: "xpThreshold", Reason: "must not be negative"}
	}
	switch typ {
	case model.EntityProject:
		snap, err := c.cache.PatchProject(id, outline.ProjectPatch{XPThreshold: &xp})
		if err != nil {
			return nil, err
		}
		return c.patchPending("set xp threshold", id, typ, api.Patch{"xpThreshold": xp}, snap), nil
	case model.EntityLesson:
		snap, err := c.cache.PatchLesson(id, outline.LessonPatch{XPThreshold: &xp})
		if err != nil {
			return nil, err
		}
		return c.patchPending("set xp threshold", id, typ, api.Patch{"xpThreshold": xp}, snap), nil
	default:
		return nil, ValidationError{Field: "type", Reason: fmt.Sprintf("%s has no xp threshold", typ)}
	}
}

// SetPublished flips a project's published flag.
func (c *Coordinator) SetPublished(projectID string, published bool) (*Pending, error) {
	snap, err := c.cache.PatchProject(projectID, outline.ProjectPatch{IsPublished: &published})
	if err != nil {
		return nil, err
	}
	action := "publish project"
	if !published {
		action = "unpublish project"
	}
	return c.patchPending(action, projectID, model.EntityProject, api.Patch{"isPublished": published}, snap), nil
}

// SetLessonDraft flips a lesson's draft flag.
func (c *Coordinator) SetLessonDraft(lessonID string, draft bool) (*Pending, error) {
	snap, err := c.cache.PatchLesson(lessonID, outline.LessonPatch{IsDraft: &draft})
	if err != nil {
		return nil, err
	}
	action := "publish lesson"
	if draft {
		action = "mark lesson draft"
	}
	return c.patchPending(action, lessonID, model.EntityLesson, api.Patch{"isDraft": draft}, snap), nil
}

// LinkTask attaches a task to a lesson. Linking an already-linked task is a
// no-op. The cached task slice is only updated when it has been fetched;
// otherwise the next expand pulls the authoritative list.
func (c *Coordinator) LinkTask(lessonID string, task model.Task) (*Pending, error) {
	lesson, ok := c.cache.Lesson(lessonID)
	if !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	if strings.TrimSpace(task.ID) == "" {
		return nil, ValidationError{Field: "task", Reason: "missing id"}
	}
	for _, tid := range lesson.LinkedTaskIDs {
		if tid == task.ID {
			return nil, nil
		}
	}

	ids := append(append([]string{}, lesson.LinkedTaskIDs...), task.ID)
	snap, err := c.cache.PatchLesson(lessonID, outline.LessonPatch{LinkedTaskIDs: &ids})
	if err != nil {
		return nil, err
	}
	snaps := []outline.Snapshot{snap}
	if c.cache.Loaded(outline.TasksKey(lessonID)) {
		cur := c.cache.Tasks(lessonID)
		next := make([]model.Task, 0, len(cur)+1)
		next = append(next, cur...)
		next = append(next, task)
		snaps = append(snaps, c.cache.SetTasksForLesson(lessonID, next))
	}
	return c.patchPending("link task", lessonID, model.EntityLesson, api.Patch{"linkedTaskIds": ids}, snaps...), nil
}

// UnlinkTask detaches a task from a lesson. The task itself is untouched; it
// may still be linked elsewhere.
func (c *Coordinator) UnlinkTask(lessonID, taskID string) (*Pending, error) {
	lesson, ok := c.cache.Lesson(lessonID)
	if !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	ids := make([]string, 0, len(lesson.LinkedTaskIDs))
	found := false
	for _, tid := range lesson.LinkedTaskIDs {
		if tid == taskID {
			found = true
			continue
		}
		ids = append(ids, tid)
	}
	if !found {
		return nil, nil
	}

	snap, err := c.cache.PatchLesson(lessonID, outline.LessonPatch{LinkedTaskIDs: &ids})
	if err != nil {
		return nil, err
	}
	snaps := []outline.Snapshot{snap}
	if c.cache.Loaded(outline.TasksKey(lessonID)) {
		kept := make([]model.Task, 0, len(c.cache.Tasks(lessonID)))
		for _, t := range c.cache.Tasks(lessonID) {
			if t.ID == taskID {
				continue
			}
			kept = append(kept, t)
		}
		snaps = append(snaps, c.cache.SetTasksForLesson(lessonID, kept))
	}
	repair := c.repairSelection(map[string]bool{taskID: true}, lessonID, model.EntityLesson)

	action := "unlink task"
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.UpdateEntity(ctx, lessonID, model.EntityLesson, api.Patch{"linkedTaskIds": ids})
			return Result{err: err, resolve: func() error {
				if err == nil {
					return nil
				}
				restored, uerr := c.fail(action, err, snaps...)
				if restored {
					repair.undo()
				}
				return uerr
			}}
		},
	}, nil
}
