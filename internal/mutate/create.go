package mutate

import (
	"context"
	"fmt"
	"strings"

	"chalk-cli/internal/api"
	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"
)

const untitled = "Untitled"

// CreateProject appends a draft project, selects it, and returns the remote
// create. On success the draft id is reconciled to the server id everywhere;
// on failure the draft is removed and selection falls back to where it was
// before the draft took it.
func (c *Coordinator) CreateProject(title string) (*Pending, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitled
	}
	if !c.cache.Loaded(outline.ProjectsKey()) {
		return nil, ValidationError{Field: "course", Reason: "projects not fetched yet"}
	}
	draftID, err := store.NewDraftID()
	if err != nil {
		return nil, err
	}

	at := len(c.cache.Projects())
	snap := c.cache.InsertProject(at, model.Project{
		ID:         draftID,
		CourseID:   c.courseID,
		Title:      title,
		OrderIndex: at,
	})
	// Mark the draft's (empty) lesson list loaded so expanding it does not
	// fire a fetch for an id the server has never seen.
	lessonsSnap := c.cache.SetLessonsForProject(draftID, nil)

	origID, origType, origOK := c.state.Selection()
	c.state.Select(draftID, model.EntityProject)

	courseID := c.courseID
	orderIndex := at
	return &Pending{
		Action: "create project",
		run: func(ctx context.Context) Result {
			created, err := c.client.CreateChild(ctx, courseID, model.EntityCourse, api.Draft{
				Title:      title,
				OrderIndex: &orderIndex,
			})
			if err == nil && (created == nil || strings.TrimSpace(created.ID) == "") {
				err = fmt.Errorf("server returned no id")
			}
			return Result{err: err, resolve: func() error {
				if err == nil {
					c.cache.ReconcileID(draftID, created.ID, model.EntityProject)
					c.state.RenameID(draftID, created.ID)
					c.log.Info("created project", "id", created.ID, "title", title)
					return nil
				}
				_, uerr := c.fail("create project", err, snap, lessonsSnap)
				c.cache.Forget(outline.LessonsKey(draftID))
				c.state.PurgeExpansion(draftID)
				if c.state.IsSelected(draftID, model.EntityProject) {
					if origOK {
						c.state.Select(origID, origType)
					} else {
						c.state.ClearSelection()
					}
				}
				return uerr
			}}
		},
	}, nil
}

// CreateLesson appends a draft lesson to a project, expands the project, and
// selects the draft. The project's lessons must already be fetched so the
// append position is meaningful.
func (c *Coordinator) CreateLesson(projectID, title string) (*Pending, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = untitled
	}
	if _, ok := c.cache.Project(projectID); !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityProject, ID: projectID}
	}
	if !c.cache.Loaded(outline.LessonsKey(projectID)) {
		return nil, ValidationError{Field: "project", Reason: "lessons not fetched yet"}
	}
	draftID, err := store.NewDraftID()
	if err != nil {
		return nil, err
	}

	at := len(c.cache.Lessons(projectID))
	seq := at + 1
	snap, err := c.cache.InsertLesson(projectID, at, model.Lesson{
		ID:            draftID,
		ProjectID:     projectID,
		Title:         title,
		SequenceOrder: seq,
		IsDraft:       true,
	})
	if err != nil {
		return nil, err
	}
	tasksSnap := c.cache.SetTasksForLesson(draftID, nil)

	c.state.Expand(projectID)
	c.state.Select(draftID, model.EntityLesson)

	return &Pending{
		Action: "create lesson",
		run: func(ctx context.Context) Result {
			created, err := c.client.CreateChild(ctx, projectID, model.EntityProject, api.Draft{
				Title:         title,
				SequenceOrder: &seq,
			})
			if err == nil && (created == nil || strings.TrimSpace(created.ID) == "") {
				err = fmt.Errorf("server returned no id")
			}
			return Result{err: err, resolve: func() error {
				if err == nil {
					c.cache.ReconcileID(draftID, created.ID, model.EntityLesson)
					c.state.RenameID(draftID, created.ID)
					c.log.Info("created lesson", "id", created.ID, "project", projectID, "title", title)
					return nil
				}
				_, uerr := c.fail("create lesson", err, snap, tasksSnap)
				c.cache.Forget(outline.TasksKey(draftID))
				c.state.PurgeExpansion(draftID)
				if c.state.IsSelected(draftID, model.EntityLesson) {
					c.state.Select(projectID, model.EntityProject)
				}
				return uerr
			}}
		},
	}, nil
}
