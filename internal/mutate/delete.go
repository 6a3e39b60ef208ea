package mutate

import (
	"context"

	"chalk-cli/internal/api"
	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// selRepair records a selection takeover so a rollback can undo it, but only
// if the user has not moved the selection since.
type selRepair struct {
	state   *outline.State
	did     bool
	cleared bool
	origID  string
	origTyp model.EntityType
	origOK  bool
	toID    string
	toTyp   model.EntityType
}

// repairSelection moves the selection off a removed row: to the removed
// entity's parent, or clears it when toID is empty. No-op when the selection
// is not in the removed set.
func (c *Coordinator) repairSelection(removed map[string]bool, toID string, toTyp model.EntityType) *selRepair {
	r := &selRepair{state: c.state, toID: toID, toTyp: toTyp}
	r.origID, r.origTyp, r.origOK = c.state.Selection()
	if !r.origOK || !removed[r.origID] {
		return r
	}
	r.did = true
	if toID == "" {
		r.cleared = true
		c.state.ClearSelection()
	} else {
		c.state.Select(toID, toTyp)
	}
	return r
}

func (r *selRepair) undo() {
	if !r.did {
		return
	}
	curID, curTyp, curOK := r.state.Selection()
	if r.cleared {
		if curOK {
			return
		}
	} else if !curOK || curID != r.toID || curTyp != r.toTyp {
		return
	}
	if r.origOK {
		r.state.Select(r.origID, r.origTyp)
	} else {
		r.state.ClearSelection()
	}
}

// Delete removes a project or lesson with its subtree, repairs selection and
// expansion, and returns the remote delete. A transport failure restores the
// subtree verbatim. A completed call with cascaded=false means the server
// kept the subtree: the restore happens the same way and the server's reason
// comes back as a ConflictError.
func (c *Coordinator) Delete(id string, typ model.EntityType) (*Pending, error) {
	switch typ {
	case model.EntityProject:
		return c.deleteProject(id)
	case model.EntityLesson:
		return c.deleteLesson(id)
	default:
		return nil, ValidationError{Field: "type", Reason: "only projects and lessons can be deleted"}
	}
}

func (c *Coordinator) deleteProject(id string) (*Pending, error) {
	if _, ok := c.cache.Project(id); !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityProject, ID: id}
	}
	lessons := c.cache.Lessons(id)

	purge := []string{id}
	removed := map[string]bool{id: true}
	for _, l := range lessons {
		purge = append(purge, l.ID)
		removed[l.ID] = true
		markLessonRows(c.cache, l, removed)
	}
	expandedBefore := expandedOf(c.state, purge)

	snaps, err := c.cache.RemoveProject(id)
	if err != nil {
		return nil, err
	}
	c.state.PurgeExpansion(purge...)
	// A project's parent is the course, which has no row.
	repair := c.repairSelection(removed, "", "")

	return c.deletePending("delete project", id, model.EntityProject, snaps, expandedBefore, repair), nil
}

func (c *Coordinator) deleteLesson(id string) (*Pending, error) {
	lesson, ok := c.cache.Lesson(id)
	if !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityLesson, ID: id}
	}
	projectID := lesson.ProjectID

	purge := []string{id}
	removed := map[string]bool{id: true}
	markLessonRows(c.cache, lesson, removed)
	expandedBefore := expandedOf(c.state, purge)

	snaps, err := c.cache.RemoveLesson(id)
	if err != nil {
		return nil, err
	}
	c.state.PurgeExpansion(purge...)
	repair := c.repairSelection(removed, projectID, model.EntityProject)

	return c.deletePending("delete lesson", id, model.EntityLesson, snaps, expandedBefore, repair), nil
}

func (c *Coordinator) deletePending(action, id string, typ model.EntityType, snaps []outline.Snapshot, expandedBefore []string, repair *selRepair) *Pending {
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			res, err := c.client.DeleteEntity(ctx, id, typ, api.DeleteOptions{Cascade: true})
			return Result{err: err, resolve: func() error {
				cause := err
				if cause == nil && res != nil && !res.Cascaded {
					cause = ConflictError{ID: id, Reason: res.Reason}
				}
				if cause == nil {
					c.log.Info("deleted", "type", string(typ), "id", id)
					return nil
				}
				restored, uerr := c.fail(action, cause, snaps...)
				if restored {
					for _, eid := range expandedBefore {
						c.state.Expand(eid)
					}
					repair.undo()
				}
				return uerr
			}}
		},
	}
}

// markLessonRows adds every row id rendered under a lesson: its steps and its
// linked tasks, whether or not the task slice was fetched.
func markLessonRows(cache *outline.Cache, l model.Lesson, removed map[string]bool) {
	for _, s := range l.Content {
		removed[s.ID] = true
	}
	for _, t := range cache.Tasks(l.ID) {
		removed[t.ID] = true
	}
	for _, tid := range l.LinkedTaskIDs {
		removed[tid] = true
	}
}

func expandedOf(st *outline.State, ids []string) []string {
	out := []string{}
	for _, id := range ids {
		if st.IsExpanded(id) {
			out = append(out, id)
		}
	}
	return out
}
