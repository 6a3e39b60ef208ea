package mutate

import (
	"context"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// MoveLesson reparents a lesson into another project, at a position (at < 0
// appends). The cache applies the move atomically so the lesson never shows
// under two projects; on failure both lesson lists roll back together.
//
// The server appends on its side regardless of position; a non-append local
// position holds until the next refetch of the target list.
func (c *Coordinator) MoveLesson(lessonID, toProjectID string, at int) (*Pending, error) {
	fromProjectID, ok := c.cache.ProjectOfLesson(lessonID)
	if !ok {
		return nil, &outline.NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	if fromProjectID == toProjectID {
		return nil, ValidationError{Field: "project", Reason: "lesson is already in that project"}
	}
	if !c.cache.Loaded(outline.LessonsKey(toProjectID)) {
		return nil, ValidationError{Field: "project", Reason: "target lessons not fetched yet"}
	}

	wasExpanded := c.state.IsExpanded(toProjectID)
	snaps, err := c.cache.MoveLessonBetween(lessonID, fromProjectID, toProjectID, at)
	if err != nil {
		return nil, err
	}
	// Keep the moved lesson on screen at its destination.
	c.state.Expand(toProjectID)

	action := "move lesson"
	return &Pending{
		Action: action,
		run: func(ctx context.Context) Result {
			err := c.client.MoveLesson(ctx, lessonID, fromProjectID, toProjectID)
			return Result{err: err, resolve: func() error {
				if err == nil {
					c.log.Info("moved lesson", "id", lessonID, "from", fromProjectID, "to", toProjectID)
					return nil
				}
				restored, uerr := c.fail(action, err, snaps...)
				if restored && !wasExpanded {
					c.state.Collapse(toProjectID)
				}
				return uerr
			}}
		},
	}, nil
}
