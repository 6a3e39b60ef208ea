package outline

import (
	"chalk-cli/internal/model"
)

// Row is one visible line of the outline, in the traversal order a user
// sees. The flat index backs keyboard navigation.
type Row struct {
	ID          string
	Type        model.EntityType
	ParentID    string
	Title       string
	Depth       int
	HasChildren bool
	Loaded      bool
	Expanded    bool
	Draft       bool
}

// Expandable reports whether the row can open: a container with children
// present, or one whose children were never fetched.
func (r Row) Expandable() bool {
	return r.Type.Container() && (r.HasChildren || !r.Loaded)
}

// Tree is the read side Flatten consumes: the cache itself or a filtered
// view of it.
type Tree interface {
	Projects() []model.Project
	Lessons(projectID string) []model.Lesson
	Tasks(lessonID string) []model.Task
	Loaded(key SliceKey) bool
}

// Expansion is the read side of expansion state. State implements it; the
// filter overlays forced-open ancestors with WithForced.
type Expansion interface {
	IsExpanded(id string) bool
}

type forcedExpansion struct {
	base   Expansion
	forced map[string]bool
}

func (f forcedExpansion) IsExpanded(id string) bool {
	return f.forced[id] || f.base.IsExpanded(id)
}

func WithForced(base Expansion, forced map[string]bool) Expansion {
	if len(forced) == 0 {
		return base
	}
	return forcedExpansion{base: base, forced: forced}
}

// Flatten derives the visible rows from the tree and the expansion set.
// Every project appears; a project's lessons follow it iff the project is
// expanded; a lesson's tasks, then its steps, follow it iff the lesson is
// expanded. Pure function of its inputs.
func Flatten(tree Tree, exp Expansion) []Row {
	var out []Row
	for _, p := range tree.Projects() {
		lessons := tree.Lessons(p.ID)
		out = append(out, Row{
			ID:          p.ID,
			Type:        model.EntityProject,
			Title:       p.Title,
			Depth:       0,
			HasChildren: len(lessons) > 0,
			Loaded:      tree.Loaded(LessonsKey(p.ID)),
			Expanded:    exp.IsExpanded(p.ID),
		})
		if !exp.IsExpanded(p.ID) {
			continue
		}
		for _, l := range lessons {
			tasks := tree.Tasks(l.ID)
			out = append(out, Row{
				ID:          l.ID,
				Type:        model.EntityLesson,
				ParentID:    p.ID,
				Title:       l.Title,
				Depth:       1,
				HasChildren: len(tasks) > 0 || len(l.Content) > 0,
				Loaded:      tree.Loaded(TasksKey(l.ID)),
				Expanded:    exp.IsExpanded(l.ID),
				Draft:       l.IsDraft,
			})
			if !exp.IsExpanded(l.ID) {
				continue
			}
			for _, t := range tasks {
				out = append(out, Row{
					ID:       t.ID,
					Type:     model.EntityTask,
					ParentID: l.ID,
					Title:    t.Title,
					Depth:    2,
					Loaded:   true,
				})
			}
			for _, s := range l.Content {
				out = append(out, Row{
					ID:       s.ID,
					Type:     model.EntityStep,
					ParentID: l.ID,
					Title:    string(s.Type),
					Depth:    2,
					Loaded:   true,
				})
			}
		}
	}
	return out
}
