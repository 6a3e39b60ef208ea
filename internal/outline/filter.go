package outline

import (
	"strings"

	"chalk-cli/internal/model"
)

// View is a read-only filtered slice of the cache: only entities whose title
// matches the query, plus the ancestor chain of every match. Forced carries
// the ancestors that must render expanded so matches are immediately
// visible. An empty query yields the cache unfiltered with nothing forced.
type View struct {
	base             *Cache
	projects         []model.Project
	lessonsByProject map[string][]model.Lesson
	tasksByLesson    map[string][]model.Task
	forced           map[string]bool
	filtered         bool
}

func (v *View) Projects() []model.Project {
	if !v.filtered {
		return v.base.Projects()
	}
	return v.projects
}

func (v *View) Lessons(projectID string) []model.Lesson {
	if !v.filtered {
		return v.base.Lessons(projectID)
	}
	return v.lessonsByProject[projectID]
}

func (v *View) Tasks(lessonID string) []model.Task {
	if !v.filtered {
		return v.base.Tasks(lessonID)
	}
	return v.tasksByLesson[lessonID]
}

func (v *View) Loaded(key SliceKey) bool { return v.base.Loaded(key) }

// Forced is the expansion overlay for matched ancestors.
func (v *View) Forced() map[string]bool { return v.forced }

func (v *View) Filtered() bool { return v.filtered }

// ApplyFilter computes the filtered view for a case-insensitive substring
// query over project, lesson and task titles. The cache is never mutated;
// the view is recomputed per call.
func ApplyFilter(c *Cache, query string) *View {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return &View{base: c, forced: map[string]bool{}}
	}

	v := &View{
		base:             c,
		lessonsByProject: map[string][]model.Lesson{},
		tasksByLesson:    map[string][]model.Task{},
		forced:           map[string]bool{},
		filtered:         true,
	}

	match := func(title string) bool {
		return strings.Contains(strings.ToLower(title), query)
	}

	for _, p := range c.Projects() {
		projectMatches := match(p.Title)
		var keptLessons []model.Lesson

		for _, l := range c.Lessons(p.ID) {
			lessonMatches := match(l.Title)
			var keptTasks []model.Task
			for _, t := range c.Tasks(l.ID) {
				if match(t.Title) {
					keptTasks = append(keptTasks, t)
				}
			}

			if len(keptTasks) > 0 {
				// The lesson is an ancestor of a match: keep it and
				// force it open so results are visible.
				v.tasksByLesson[l.ID] = keptTasks
				v.forced[l.ID] = true
				keptLessons = append(keptLessons, l)
				continue
			}
			if lessonMatches {
				keptLessons = append(keptLessons, l)
			}
		}

		if len(keptLessons) > 0 {
			v.lessonsByProject[p.ID] = keptLessons
			v.forced[p.ID] = true
			v.projects = append(v.projects, p)
			continue
		}
		if projectMatches {
			v.projects = append(v.projects, p)
		}
	}

	return v
}
