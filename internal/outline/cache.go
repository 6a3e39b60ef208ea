package outline

import (
	"fmt"
	"sort"
	"strings"

	"chalk-cli/internal/model"
)

type SliceKind string

const (
	SliceProjects SliceKind = "projects"
	SliceLessons  SliceKind = "lessons"
	SliceTasks    SliceKind = "tasks"
	SliceSteps    SliceKind = "steps"
)

// SliceKey names one independently-mutated slice of the cache: the project
// list, one project's lesson list, one lesson's task list, or one lesson's
// step sequence.
type SliceKey struct {
	Kind SliceKind
	ID   string
}

func ProjectsKey() SliceKey          { return SliceKey{Kind: SliceProjects} }
func LessonsKey(pid string) SliceKey { return SliceKey{Kind: SliceLessons, ID: pid} }
func TasksKey(lid string) SliceKey   { return SliceKey{Kind: SliceTasks, ID: lid} }
func StepsKey(lid string) SliceKey   { return SliceKey{Kind: SliceSteps, ID: lid} }

// Snapshot is the prior state of one slice, captured by a mutating cache
// operation. Rev is the revision that operation produced; the snapshot may
// only be restored while the slice is still at that revision.
type Snapshot struct {
	Key SliceKey
	Rev uint64

	existed  bool
	projects []model.Project
	lessons  []model.Lesson
	tasks    []model.Task
	steps    []model.Step
}

// StaleError rejects a rollback whose slice has been mutated again since the
// snapshot was taken. Restoring it would clobber the newer state.
type StaleError struct {
	Key    SliceKey
	Expect uint64
	Actual uint64
}

func (e *StaleError) Error() string {
	return fmt.Sprintf("stale snapshot for %s/%s: expected rev %d, slice is at %d", e.Key.Kind, e.Key.ID, e.Expect, e.Actual)
}

type NotFoundError struct {
	Kind model.EntityType
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// Cache is the normalized tree held as the single source of truth for
// rendering: the course's project list, lessons keyed by project id, tasks
// keyed by lesson id, and each lesson's embedded step sequence. All mutation
// goes through methods so snapshots and dense ordering hold at the boundary.
type Cache struct {
	course           *model.Course
	projects         []model.Project
	lessonsByProject map[string][]model.Lesson
	tasksByLesson    map[string][]model.Task

	revs   map[SliceKey]uint64
	loaded map[SliceKey]bool
}

func NewCache() *Cache {
	return &Cache{
		lessonsByProject: map[string][]model.Lesson{},
		tasksByLesson:    map[string][]model.Task{},
		revs:             map[SliceKey]uint64{},
		loaded:           map[SliceKey]bool{},
	}
}

func (c *Cache) bump(key SliceKey) uint64 {
	c.revs[key]++
	return c.revs[key]
}

func (c *Cache) Revision(key SliceKey) uint64 { return c.revs[key] }

// Loaded reports whether the slice has been populated from the server at
// least once. Expansion of an unloaded container triggers a lazy fetch.
func (c *Cache) Loaded(key SliceKey) bool { return c.loaded[key] }

// Invalidate forgets that a slice was loaded, forcing a refetch on the next
// expansion. Used after a rejected (stale) rollback.
func (c *Cache) Invalidate(key SliceKey) { delete(c.loaded, key) }

// Forget drops every trace of a slice, revision counter included. Only for
// owners that can never come back, such as a draft id the server rejected;
// a live slice must use Invalidate so old snapshots cannot match a restarted
// counter.
func (c *Cache) Forget(key SliceKey) {
	delete(c.loaded, key)
	delete(c.revs, key)
	switch key.Kind {
	case SliceLessons:
		delete(c.lessonsByProject, key.ID)
	case SliceTasks:
		delete(c.tasksByLesson, key.ID)
	}
}

func (c *Cache) SetCourse(course *model.Course) { c.course = course }
func (c *Cache) Course() *model.Course          { return c.course }

func (c *Cache) Projects() []model.Project { return c.projects }

func (c *Cache) Lessons(projectID string) []model.Lesson {
	return c.lessonsByProject[projectID]
}

func (c *Cache) Tasks(lessonID string) []model.Task {
	return c.tasksByLesson[lessonID]
}

func (c *Cache) Steps(lessonID string) []model.Step {
	l, ok := c.findLesson(lessonID)
	if !ok {
		return nil
	}
	return l.Content
}

func (c *Cache) Project(id string) (model.Project, bool) {
	for _, p := range c.projects {
		if p.ID == id {
			return p, true
		}
	}
	return model.Project{}, false
}

func (c *Cache) Lesson(id string) (model.Lesson, bool) {
	l, ok := c.findLesson(id)
	if !ok {
		return model.Lesson{}, false
	}
	return l.Clone(), true
}

// ProjectOfLesson returns the id of the project currently owning the lesson.
func (c *Cache) ProjectOfLesson(lessonID string) (string, bool) {
	for pid, ls := range c.lessonsByProject {
		for i := range ls {
			if ls[i].ID == lessonID {
				return pid, true
			}
		}
	}
	return "", false
}

func (c *Cache) findLesson(id string) (*model.Lesson, bool) {
	for pid := range c.lessonsByProject {
		ls := c.lessonsByProject[pid]
		for i := range ls {
			if ls[i].ID == id {
				return &ls[i], true
			}
		}
	}
	return nil, false
}

func (c *Cache) snapProjects() Snapshot {
	return Snapshot{Key: ProjectsKey(), existed: true, projects: model.CloneProjects(c.projects)}
}

func (c *Cache) snapLessons(projectID string) Snapshot {
	ls, ok := c.lessonsByProject[projectID]
	return Snapshot{Key: LessonsKey(projectID), existed: ok, lessons: model.CloneLessons(ls)}
}

func (c *Cache) snapTasks(lessonID string) Snapshot {
	ts, ok := c.tasksByLesson[lessonID]
	return Snapshot{Key: TasksKey(lessonID), existed: ok, tasks: model.CloneTasks(ts)}
}

func (c *Cache) snapSteps(lessonID string, l *model.Lesson) Snapshot {
	return Snapshot{Key: StepsKey(lessonID), existed: true, steps: model.CloneSteps(l.Content)}
}

func (c *Cache) SetProjects(ps []model.Project) Snapshot {
	snap := c.snapProjects()
	sorted := model.CloneProjects(ps)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].OrderIndex != sorted[j].OrderIndex {
			return sorted[i].OrderIndex < sorted[j].OrderIndex
		}
		return sorted[i].ID < sorted[j].ID
	})
	c.projects = sorted
	c.loaded[ProjectsKey()] = true
	snap.Rev = c.bump(ProjectsKey())
	return snap
}

func (c *Cache) SetLessonsForProject(projectID string, ls []model.Lesson) Snapshot {
	snap := c.snapLessons(projectID)
	sorted := model.CloneLessons(ls)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].SequenceOrder != sorted[j].SequenceOrder {
			return sorted[i].SequenceOrder < sorted[j].SequenceOrder
		}
		return sorted[i].ID < sorted[j].ID
	})
	for i := range sorted {
		sorted[i].ProjectID = projectID
		sortSteps(sorted[i].Content)
	}
	c.lessonsByProject[projectID] = sorted
	c.loaded[LessonsKey(projectID)] = true
	snap.Rev = c.bump(LessonsKey(projectID))
	return snap
}

func (c *Cache) SetTasksForLesson(lessonID string, ts []model.Task) Snapshot {
	snap := c.snapTasks(lessonID)
	c.tasksByLesson[lessonID] = model.CloneTasks(ts)
	c.loaded[TasksKey(lessonID)] = true
	snap.Rev = c.bump(TasksKey(lessonID))
	return snap
}

func (c *Cache) SetTasksForLessons(byLesson map[string][]model.Task) []Snapshot {
	ids := make([]string, 0, len(byLesson))
	for id := range byLesson {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snaps := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		snaps = append(snaps, c.SetTasksForLesson(id, byLesson[id]))
	}
	return snaps
}

// ProjectPatch carries the mutable project fields; nil means unchanged.
type ProjectPatch struct {
	Title       *string
	Description *string
	IsPublished *bool
	XPThreshold *int
}

// LessonPatch carries the mutable lesson fields; nil means unchanged.
// LinkedTaskIDs replaces the whole reference set.
type LessonPatch struct {
	Title         *string
	XPThreshold   *int
	IsDraft       *bool
	LinkedTaskIDs *[]string
}

type StepPatch struct {
	Type    *model.StepType
	Payload *[]byte
}

func (c *Cache) PatchProject(id string, patch ProjectPatch) (Snapshot, error) {
	idx := -1
	for i := range c.projects {
		if c.projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Snapshot{}, &NotFoundError{Kind: model.EntityProject, ID: id}
	}
	snap := c.snapProjects()
	p := &c.projects[idx]
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.IsPublished != nil {
		p.IsPublished = *patch.IsPublished
	}
	if patch.XPThreshold != nil {
		p.XPThreshold = *patch.XPThreshold
	}
	snap.Rev = c.bump(ProjectsKey())
	return snap, nil
}

func (c *Cache) PatchLesson(id string, patch LessonPatch) (Snapshot, error) {
	pid, ok := c.ProjectOfLesson(id)
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityLesson, ID: id}
	}
	snap := c.snapLessons(pid)
	l, _ := c.findLesson(id)
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.XPThreshold != nil {
		l.XPThreshold = *patch.XPThreshold
	}
	if patch.IsDraft != nil {
		l.IsDraft = *patch.IsDraft
	}
	if patch.LinkedTaskIDs != nil {
		l.LinkedTaskIDs = append([]string(nil), (*patch.LinkedTaskIDs)...)
	}
	snap.Rev = c.bump(LessonsKey(pid))
	return snap, nil
}

func (c *Cache) PatchStep(lessonID, stepID string, patch StepPatch) (Snapshot, error) {
	l, ok := c.findLesson(lessonID)
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	idx := -1
	for i := range l.Content {
		if l.Content[i].ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Snapshot{}, &NotFoundError{Kind: model.EntityStep, ID: stepID}
	}
	snap := c.snapSteps(lessonID, l)
	s := &l.Content[idx]
	if patch.Type != nil {
		s.Type = *patch.Type
	}
	if patch.Payload != nil {
		s.Payload = append([]byte(nil), (*patch.Payload)...)
	}
	snap.Rev = c.bumpSteps(lessonID)
	return snap, nil
}

// bumpSteps advances the step slice and its owning lesson list: the step
// sequence is embedded in the lesson record, so a step change is also a
// lesson-list change for staleness purposes.
func (c *Cache) bumpSteps(lessonID string) uint64 {
	if pid, ok := c.ProjectOfLesson(lessonID); ok {
		c.bump(LessonsKey(pid))
	}
	return c.bump(StepsKey(lessonID))
}

func (c *Cache) ReplaceSteps(lessonID string, steps []model.Step) (Snapshot, error) {
	l, ok := c.findLesson(lessonID)
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	snap := c.snapSteps(lessonID, l)
	l.Content = model.CloneSteps(steps)
	renumberSteps(l.Content)
	snap.Rev = c.bumpSteps(lessonID)
	return snap, nil
}

func (c *Cache) InsertProject(at int, p model.Project) Snapshot {
	snap := c.snapProjects()
	if at < 0 || at > len(c.projects) {
		at = len(c.projects)
	}
	c.projects = append(c.projects, model.Project{})
	copy(c.projects[at+1:], c.projects[at:])
	c.projects[at] = p
	renumberProjects(c.projects)
	snap.Rev = c.bump(ProjectsKey())
	return snap
}

func (c *Cache) InsertLesson(projectID string, at int, l model.Lesson) (Snapshot, error) {
	if _, ok := c.Project(projectID); !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityProject, ID: projectID}
	}
	snap := c.snapLessons(projectID)
	ls := c.lessonsByProject[projectID]
	if at < 0 || at > len(ls) {
		at = len(ls)
	}
	l.ProjectID = projectID
	ls = append(ls, model.Lesson{})
	copy(ls[at+1:], ls[at:])
	ls[at] = l
	renumberLessons(ls)
	c.lessonsByProject[projectID] = ls
	snap.Rev = c.bump(LessonsKey(projectID))
	return snap, nil
}

// RemoveProject drops the project and its whole subtree: the lessons map
// entry and every task entry under its lessons. Snapshots cover each removed
// slice so the subtree can be restored verbatim.
func (c *Cache) RemoveProject(id string) ([]Snapshot, error) {
	idx := -1
	for i := range c.projects {
		if c.projects[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &NotFoundError{Kind: model.EntityProject, ID: id}
	}

	snaps := []Snapshot{c.snapProjects()}
	if _, ok := c.lessonsByProject[id]; ok {
		snaps = append(snaps, c.snapLessons(id))
	}
	for _, l := range c.lessonsByProject[id] {
		if _, ok := c.tasksByLesson[l.ID]; ok {
			snaps = append(snaps, c.snapTasks(l.ID))
		}
	}

	for _, l := range c.lessonsByProject[id] {
		delete(c.tasksByLesson, l.ID)
		delete(c.loaded, TasksKey(l.ID))
		c.bump(TasksKey(l.ID))
		c.bump(StepsKey(l.ID))
	}
	delete(c.lessonsByProject, id)
	delete(c.loaded, LessonsKey(id))
	c.bump(LessonsKey(id))

	c.projects = append(c.projects[:idx], c.projects[idx+1:]...)
	renumberProjects(c.projects)
	c.bump(ProjectsKey())

	for i := range snaps {
		snaps[i].Rev = c.revs[snaps[i].Key]
	}
	return snaps, nil
}

func (c *Cache) RemoveLesson(id string) ([]Snapshot, error) {
	pid, ok := c.ProjectOfLesson(id)
	if !ok {
		return nil, &NotFoundError{Kind: model.EntityLesson, ID: id}
	}

	snaps := []Snapshot{c.snapLessons(pid)}
	if _, ok := c.tasksByLesson[id]; ok {
		snaps = append(snaps, c.snapTasks(id))
	}

	delete(c.tasksByLesson, id)
	delete(c.loaded, TasksKey(id))
	c.bump(TasksKey(id))
	c.bump(StepsKey(id))

	ls := c.lessonsByProject[pid]
	for i := range ls {
		if ls[i].ID == id {
			ls = append(ls[:i], ls[i+1:]...)
			break
		}
	}
	renumberLessons(ls)
	c.lessonsByProject[pid] = ls
	c.bump(LessonsKey(pid))

	for i := range snaps {
		snaps[i].Rev = c.revs[snaps[i].Key]
	}
	return snaps, nil
}

func (c *Cache) RemoveStepAt(lessonID string, index int) (Snapshot, error) {
	l, ok := c.findLesson(lessonID)
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	if index < 0 || index >= len(l.Content) {
		return Snapshot{}, fmt.Errorf("step index %d out of range (lesson has %d steps)", index, len(l.Content))
	}
	snap := c.snapSteps(lessonID, l)
	l.Content = append(l.Content[:index], l.Content[index+1:]...)
	renumberSteps(l.Content)
	snap.Rev = c.bumpSteps(lessonID)
	return snap, nil
}

// MoveLessonBetween reparents a lesson in one call so it never appears under
// two projects, and never under none. The target position is clamped;
// at < 0 appends.
func (c *Cache) MoveLessonBetween(lessonID, fromProjectID, toProjectID string, at int) ([]Snapshot, error) {
	if fromProjectID == toProjectID {
		return nil, fmt.Errorf("move requires distinct projects")
	}
	if _, ok := c.Project(toProjectID); !ok {
		return nil, &NotFoundError{Kind: model.EntityProject, ID: toProjectID}
	}
	src := c.lessonsByProject[fromProjectID]
	idx := -1
	for i := range src {
		if src[i].ID == lessonID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}

	snaps := []Snapshot{c.snapLessons(fromProjectID), c.snapLessons(toProjectID)}

	moved := src[idx].Clone()
	src = append(src[:idx], src[idx+1:]...)
	renumberLessons(src)
	c.lessonsByProject[fromProjectID] = src

	dst := c.lessonsByProject[toProjectID]
	if at < 0 || at > len(dst) {
		at = len(dst)
	}
	moved.ProjectID = toProjectID
	dst = append(dst, model.Lesson{})
	copy(dst[at+1:], dst[at:])
	dst[at] = moved
	renumberLessons(dst)
	c.lessonsByProject[toProjectID] = dst

	snaps[0].Rev = c.bump(LessonsKey(fromProjectID))
	snaps[1].Rev = c.bump(LessonsKey(toProjectID))
	return snaps, nil
}

// ReorderProjects applies a full new ordering. The ids must be a permutation
// of the current project list.
func (c *Cache) ReorderProjects(orderedIDs []string) (Snapshot, error) {
	reordered, err := permute(c.projects, orderedIDs, func(p model.Project) string { return p.ID })
	if err != nil {
		return Snapshot{}, fmt.Errorf("reorder projects: %w", err)
	}
	snap := c.snapProjects()
	c.projects = reordered
	renumberProjects(c.projects)
	snap.Rev = c.bump(ProjectsKey())
	return snap, nil
}

func (c *Cache) ReorderLessons(projectID string, orderedIDs []string) (Snapshot, error) {
	ls, ok := c.lessonsByProject[projectID]
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityProject, ID: projectID}
	}
	reordered, err := permute(ls, orderedIDs, func(l model.Lesson) string { return l.ID })
	if err != nil {
		return Snapshot{}, fmt.Errorf("reorder lessons of %s: %w", projectID, err)
	}
	snap := c.snapLessons(projectID)
	renumberLessons(reordered)
	c.lessonsByProject[projectID] = reordered
	snap.Rev = c.bump(LessonsKey(projectID))
	return snap, nil
}

func (c *Cache) ReorderSteps(lessonID string, orderedIDs []string) (Snapshot, error) {
	l, ok := c.findLesson(lessonID)
	if !ok {
		return Snapshot{}, &NotFoundError{Kind: model.EntityLesson, ID: lessonID}
	}
	reordered, err := permute(l.Content, orderedIDs, func(s model.Step) string { return s.ID })
	if err != nil {
		return Snapshot{}, fmt.Errorf("reorder steps of %s: %w", lessonID, err)
	}
	snap := c.snapSteps(lessonID, l)
	renumberSteps(reordered)
	l.Content = reordered
	snap.Rev = c.bumpSteps(lessonID)
	return snap, nil
}

// ReconcileID rewrites a locally-generated draft id to the server-assigned
// one everywhere it appears in the cache. Selection and expansion are
// reconciled by the caller in the same logical step.
func (c *Cache) ReconcileID(oldID, newID string, typ model.EntityType) {
	if oldID == newID || strings.TrimSpace(newID) == "" {
		return
	}
	switch typ {
	case model.EntityProject:
		for i := range c.projects {
			if c.projects[i].ID == oldID {
				c.projects[i].ID = newID
			}
		}
		if ls, ok := c.lessonsByProject[oldID]; ok {
			for i := range ls {
				ls[i].ProjectID = newID
			}
			c.lessonsByProject[newID] = ls
			delete(c.lessonsByProject, oldID)
		}
		c.renameKey(LessonsKey(oldID), LessonsKey(newID))
		c.bump(LessonsKey(newID))
		c.bump(ProjectsKey())
	case model.EntityLesson:
		if l, ok := c.findLesson(oldID); ok {
			l.ID = newID
		}
		if ts, ok := c.tasksByLesson[oldID]; ok {
			c.tasksByLesson[newID] = ts
			delete(c.tasksByLesson, oldID)
		}
		c.renameKey(TasksKey(oldID), TasksKey(newID))
		c.renameKey(StepsKey(oldID), StepsKey(newID))
		if pid, ok := c.ProjectOfLesson(newID); ok {
			c.bump(LessonsKey(pid))
		}
	case model.EntityStep:
		for pid := range c.lessonsByProject {
			ls := c.lessonsByProject[pid]
			for i := range ls {
				for j := range ls[i].Content {
					if ls[i].Content[j].ID == oldID {
						ls[i].Content[j].ID = newID
						c.bump(StepsKey(ls[i].ID))
						c.bump(LessonsKey(pid))
					}
				}
			}
		}
	}
}

func (c *Cache) renameKey(old, new SliceKey) {
	if rev, ok := c.revs[old]; ok {
		c.revs[new] = rev
		delete(c.revs, old)
	}
	if v, ok := c.loaded[old]; ok {
		c.loaded[new] = v
		delete(c.loaded, old)
	}
}

// RestoreAll rolls slices back to their snapshots, all or nothing: if any
// snapshot is stale the whole restore is rejected, since partially restoring
// a multi-slice operation (a move) could duplicate or lose an entity.
func (c *Cache) RestoreAll(snaps ...Snapshot) error {
	for _, s := range snaps {
		if cur := c.revs[s.Key]; cur != s.Rev {
			return &StaleError{Key: s.Key, Expect: s.Rev, Actual: cur}
		}
	}
	for _, s := range snaps {
		c.restore(s)
	}
	return nil
}

func (c *Cache) restore(s Snapshot) {
	switch s.Key.Kind {
	case SliceProjects:
		c.projects = model.CloneProjects(s.projects)
	case SliceLessons:
		if !s.existed {
			delete(c.lessonsByProject, s.Key.ID)
		} else {
			c.lessonsByProject[s.Key.ID] = model.CloneLessons(s.lessons)
		}
	case SliceTasks:
		if !s.existed {
			delete(c.tasksByLesson, s.Key.ID)
		} else {
			c.tasksByLesson[s.Key.ID] = model.CloneTasks(s.tasks)
		}
	case SliceSteps:
		if l, ok := c.findLesson(s.Key.ID); ok {
			l.Content = model.CloneSteps(s.steps)
		}
	}
	c.bump(s.Key)
}

// LessonIDs returns the ids of a project's cached lessons, in order.
func (c *Cache) LessonIDs(projectID string) []string {
	ls := c.lessonsByProject[projectID]
	out := make([]string, len(ls))
	for i := range ls {
		out[i] = ls[i].ID
	}
	return out
}

func (c *Cache) ProjectIDs() []string {
	out := make([]string, len(c.projects))
	for i := range c.projects {
		out[i] = c.projects[i].ID
	}
	return out
}

func permute[T any](cur []T, orderedIDs []string, id func(T) string) ([]T, error) {
	if len(orderedIDs) != len(cur) {
		return nil, fmt.Errorf("expected %d ids, got %d", len(cur), len(orderedIDs))
	}
	byID := make(map[string]T, len(cur))
	for _, v := range cur {
		byID[id(v)] = v
	}
	out := make([]T, 0, len(cur))
	seen := map[string]bool{}
	for _, want := range orderedIDs {
		v, ok := byID[want]
		if !ok || seen[want] {
			return nil, fmt.Errorf("id %s is not a current sibling", want)
		}
		seen[want] = true
		out = append(out, v)
	}
	return out, nil
}

func renumberProjects(ps []model.Project) {
	for i := range ps {
		ps[i].OrderIndex = i
	}
}

func renumberLessons(ls []model.Lesson) {
	for i := range ls {
		ls[i].SequenceOrder = i + 1
	}
}

func renumberSteps(ss []model.Step) {
	for i := range ss {
		ss[i].Order = i
	}
}

func sortSteps(ss []model.Step) {
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].Order < ss[j].Order })
}
