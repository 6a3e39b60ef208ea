package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"chalk-cli/internal/api"
	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// scriptClient is a minimal platform stub. failWith fails every call; the
// list fields answer the read endpoints.
type scriptClient struct {
	failWith error
	lessons  map[string][]model.Lesson
	tasks    map[string][]model.Task
}

func (f *scriptClient) GetCourse(context.Context, string) (*model.Course, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &model.Course{ID: "crs-1", Title: "Course", Status: model.CoursePublished}, nil
}

func (f *scriptClient) ListProjects(context.Context, string) ([]model.Project, error) {
	return nil, f.failWith
}

func (f *scriptClient) ListLessons(_ context.Context, projectID string, _ bool) ([]model.Lesson, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.lessons[projectID], nil
}

func (f *scriptClient) ListTasksForLesson(_ context.Context, lessonID, _ string) ([]model.Task, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.tasks[lessonID], nil
}

func (f *scriptClient) CreateChild(context.Context, string, model.EntityType, api.Draft) (*api.Created, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &api.Created{ID: "srv-new"}, nil
}

func (f *scriptClient) UpdateEntity(context.Context, string, model.EntityType, api.Patch) error {
	return f.failWith
}

func (f *scriptClient) DeleteEntity(context.Context, string, model.EntityType, api.DeleteOptions) (*api.DeleteResult, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return &api.DeleteResult{Cascaded: true}, nil
}

func (f *scriptClient) ReorderSiblings(context.Context, string, model.EntityType, []string) error {
	return f.failWith
}

func (f *scriptClient) MoveLesson(context.Context, string, string, string) error {
	return f.failWith
}

func (f *scriptClient) UpdateLessonContent(context.Context, string, []model.Step) error {
	return f.failWith
}

func (f *scriptClient) Ping(context.Context) error { return f.failWith }

// newTestModel seeds a loaded two-project outline and selects the first
// project, skipping the startup load.
func newTestModel(t *testing.T, fc *scriptClient) appModel {
	t.Helper()

	cache := outline.NewCache()
	cache.SetCourse(&model.Course{ID: "crs-1", Title: "Course", Status: model.CoursePublished})
	cache.SetProjects([]model.Project{
		{ID: "p1", CourseID: "crs-1", Title: "Alpha", OrderIndex: 0},
		{ID: "p2", CourseID: "crs-1", Title: "Beta", OrderIndex: 1},
	})
	cache.SetLessonsForProject("p1", []model.Lesson{
		{ID: "l1", ProjectID: "p1", Title: "Intro", SequenceOrder: 1},
		{ID: "l2", ProjectID: "p1", Title: "Setup", SequenceOrder: 2},
	})
	cache.SetLessonsForProject("p2", []model.Lesson{
		{ID: "l3", ProjectID: "p2", Title: "Deploy", SequenceOrder: 1},
	})

	co, err := mutate.New(mutate.Config{
		Cache:         cache,
		State:         outline.NewState(),
		Client:        fc,
		Log:           logging.Nop(),
		CourseID:      "crs-1",
		IncludeDrafts: true,
	})
	if err != nil {
		t.Fatalf("mutate.New: %v", err)
	}

	st := store.Store{Path: filepath.Join(t.TempDir(), "state.db")}
	m := newAppModel(co, st, logging.Nop(), "crs-1")
	m.booted = true
	// Select implies expand; start from a fully collapsed outline.
	m.co.State().Select("p1", model.EntityProject)
	m.co.State().Collapse("p1")
	m.refreshRows()
	return m
}

func press(t *testing.T, m appModel, keys ...tea.KeyMsg) appModel {
	t.Helper()
	for _, k := range keys {
		mm, _ := m.Update(k)
		var ok bool
		m, ok = mm.(appModel)
		if !ok {
			t.Fatalf("Update returned %T", mm)
		}
	}
	return m
}

func runes(s string) []tea.KeyMsg {
	var out []tea.KeyMsg
	for _, r := range s {
		out = append(out, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return out
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func selectedID(t *testing.T, m appModel) string {
	t.Helper()
	id, _, ok := m.co.State().Selection()
	if !ok {
		t.Fatalf("nothing selected")
	}
	return id
}

func TestNavigationAndExpand(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	// Two collapsed projects.
	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}

	// Landing on a container expands it: j selects p2 and opens it.
	m = press(t, m, key("j"))
	if got := selectedID(t, m); got != "p2" {
		t.Fatalf("expected p2 selected after j, got %s", got)
	}
	if !m.co.State().IsExpanded("p2") || len(m.rows) != 3 {
		t.Fatalf("expected p2 opened on landing (3 rows), got %d rows", len(m.rows))
	}

	// Back up to p1, which opens too: both projects' lessons visible.
	m = press(t, m, key("k"))
	if got := selectedID(t, m); got != "p1" {
		t.Fatalf("expected p1 selected after k, got %s", got)
	}
	if len(m.rows) != 5 {
		t.Fatalf("expected all lessons visible, got %d rows", len(m.rows))
	}

	// h collapses the selected branch; p2 stays open.
	m = press(t, m, key("h"))
	if m.co.State().IsExpanded("p1") {
		t.Fatalf("expected p1 collapsed after h")
	}
	if len(m.rows) != 3 {
		t.Fatalf("expected 3 rows after collapsing p1, got %d", len(m.rows))
	}

	// l reopens it.
	m = press(t, m, key("l"))
	if !m.co.State().IsExpanded("p1") || len(m.rows) != 5 {
		t.Fatalf("expected p1 reopened (5 rows), got %d rows", len(m.rows))
	}
}

func TestBackspaceDoesNotOpenDelete(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	m = press(t, m, key("backspace"))
	if m.modal != modalNone {
		t.Fatalf("expected backspace to be a no-op, modal = %v", m.modal)
	}

	m = press(t, m, key("d"))
	if m.modal != modalConfirmDelete {
		t.Fatalf("expected d to open the delete confirm, modal = %v", m.modal)
	}
}

func TestRenameAppliesOptimistically(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	m = press(t, m, key("r"))
	if m.modal != modalRename {
		t.Fatalf("expected rename modal, got %v", m.modal)
	}
	m = press(t, m, runes("Gamma")...)
	m = press(t, m, key("enter"))

	if m.modal != modalNone {
		t.Fatalf("expected modal closed after enter")
	}
	p, ok := m.co.Cache().Project("p1")
	if !ok || p.Title != "AlphaGamma" {
		t.Fatalf("expected optimistic title before the server answers, got %+v", p)
	}
	if m.pendingN != 1 {
		t.Fatalf("expected one in-flight mutation, got %d", m.pendingN)
	}
	if m.rows[0].Title != "AlphaGamma" {
		t.Fatalf("expected visible row refreshed, got %q", m.rows[0].Title)
	}
}

func TestFailedMutationRollsBack(t *testing.T) {
	fc := &scriptClient{}
	m := newTestModel(t, fc)

	fc.failWith = errors.New("boom")
	p, err := m.co.Rename("p1", model.EntityProject, "Gamma")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	m.pendingN++
	if got, _ := m.co.Cache().Project("p1"); got.Title != "Gamma" {
		t.Fatalf("expected optimistic apply, got %q", got.Title)
	}

	mm, _ := m.Update(mutationDoneMsg{res: p.Run(context.Background())})
	m = mm.(appModel)

	if got, _ := m.co.Cache().Project("p1"); got.Title != "Alpha" {
		t.Fatalf("expected rollback to the pre-edit title, got %q", got.Title)
	}
	if m.rows[0].Title != "Alpha" {
		t.Fatalf("expected rows redrawn after rollback, got %q", m.rows[0].Title)
	}
	if m.statusText == "" || !m.statusErr {
		t.Fatalf("expected an error status, got %q (err=%v)", m.statusText, m.statusErr)
	}
	if m.pendingN != 0 {
		t.Fatalf("expected pending count back to 0, got %d", m.pendingN)
	}
}

func TestFilterForcesAncestorsOpen(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	m = press(t, m, key("/"))
	if !m.filtering {
		t.Fatalf("expected filter input active")
	}
	m = press(t, m, runes("Deploy")...)
	m = press(t, m, key("enter"))

	var ids []string
	for _, r := range m.rows {
		ids = append(ids, r.ID)
	}
	if len(ids) != 2 || ids[0] != "p2" || ids[1] != "l3" {
		t.Fatalf("expected the match plus its forced-open ancestor, got %v", ids)
	}
	if m.co.State().IsExpanded("p2") {
		t.Fatalf("forced expansion must not leak into the persistent state")
	}

	// Esc clears the filter and restores the plain projection.
	m = press(t, m, key("esc"))
	if len(m.rows) != 2 {
		t.Fatalf("expected 2 collapsed projects after clearing, got %d rows", len(m.rows))
	}
}

func TestFilterHidingSelectionRepairsToAncestor(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	m = press(t, m, key("l"), key("j"))
	if got := selectedID(t, m); got != "l1" {
		t.Fatalf("expected first lesson selected, got %s", got)
	}

	m = press(t, m, key("/"))
	m = press(t, m, runes("Setup")...)
	m = press(t, m, key("enter"))

	if got := selectedID(t, m); got != "p1" {
		t.Fatalf("expected selection repaired to the visible parent, got %s", got)
	}
	var ids []string
	for _, r := range m.rows {
		ids = append(ids, r.ID)
	}
	if len(ids) != 2 || ids[0] != "p1" || ids[1] != "l2" {
		t.Fatalf("expected parent plus the match, got %v", ids)
	}

	// The repaired selection keeps the cursor on a real row, so the next
	// move lands on the surviving lesson instead of a projection end.
	m = press(t, m, key("j"))
	if got := selectedID(t, m); got != "l2" {
		t.Fatalf("expected move to the surviving lesson, got %s", got)
	}
}

func TestQuitPersistsUIState(t *testing.T) {
	m := newTestModel(t, &scriptClient{})

	m = press(t, m, key("l"), key("j"))
	if got := selectedID(t, m); got != "l1" {
		t.Fatalf("expected first lesson selected, got %s", got)
	}
	m = press(t, m, key("q"))

	ui, err := m.st.LoadUIState(context.Background(), "crs-1")
	if err != nil {
		t.Fatalf("LoadUIState: %v", err)
	}
	if ui.SelectedID != "l1" || ui.SelectedType != model.EntityLesson {
		t.Fatalf("expected saved selection l1/lesson, got %s/%s", ui.SelectedID, ui.SelectedType)
	}
	found := false
	for _, id := range ui.Expanded {
		if id == "p1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected p1 recorded as expanded, got %v", ui.Expanded)
	}
}
