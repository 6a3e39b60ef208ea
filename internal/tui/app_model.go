package tui

import (
	"context"
	"time"

	"chalk-cli/internal/logging"
	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
)

const (
	statusClearAfter      = 4 * time.Second
	statusErrorClearAfter = 8 * time.Second

	// Concurrent child fetches during the startup prefetch.
	prefetchParallel = 4
)

// appModel is the bubbletea model for the outline editor. All cache and
// state access happens on the Update goroutine; the remote half of every
// mutation runs inside a tea command and comes back as a mutationDoneMsg
// whose Result is resolved here.
type appModel struct {
	co       *mutate.Coordinator
	st       store.Store
	log      *logging.Logger
	courseID string

	width          int
	height         int
	seenWindowSize bool

	// rows is the current visible projection; recomputed after every change
	// to the cache, the expansion set or the filter.
	rows []outline.Row

	pane    pane
	preview viewport.Model

	filterInput textinput.Model
	filtering   bool
	filterQuery string

	modal          modalKind
	modalForID     string
	modalForType   model.EntityType
	modalForParent string
	input          textinput.Model
	textarea       textarea.Model
	confirmFocus   confirmModalFocus

	// Move-lesson target picker.
	moveTargets []model.Project
	moveIdx     int
	// A move whose target lessons are still being fetched; it applies as
	// soon as that fetch resolves.
	pendingMoveLessonID string
	pendingMoveTargetID string

	// Add-step type picker; addStepAt is the insert position.
	stepTypeIdx int
	addStepAt   int

	jumpInput   textinput.Model
	jumpMatches []outline.Row
	jumpIdx     int

	spin     spinner.Model
	spinning bool

	// Selection saved by the previous session; restored once its row exists.
	savedSelID   string
	savedSelType model.EntityType
	booted       bool

	// Remote calls in flight.
	pendingN int

	statusText string
	statusErr  bool
	statusSeq  int
}

func newAppModel(co *mutate.Coordinator, st store.Store, log *logging.Logger, courseID string) appModel {
	m := appModel{
		co:       co,
		st:       st,
		log:      log,
		courseID: courseID,
		pane:     paneOutline,
	}

	m.input = textinput.New()
	m.input.Placeholder = "Title"
	m.input.CharLimit = 200
	m.input.Width = 40

	m.filterInput = textinput.New()
	m.filterInput.Placeholder = "filter titles"
	m.filterInput.Prompt = "/"
	m.filterInput.CharLimit = 120
	m.filterInput.Width = 32

	m.jumpInput = textinput.New()
	m.jumpInput.Placeholder = "jump to project, lesson or task"
	m.jumpInput.Prompt = "> "
	m.jumpInput.CharLimit = 120
	m.jumpInput.Width = 44

	m.textarea = textarea.New()
	m.textarea.Placeholder = "{}"
	m.textarea.CharLimit = 0
	m.textarea.SetWidth(72)
	m.textarea.SetHeight(10)
	m.textarea.ShowLineNumbers = false

	m.spin = spinner.New()
	m.spin.Spinner = spinner.MiniDot

	m.preview = viewport.New(0, 0)

	// Best effort: restore expansion and selection from the last session.
	if ui, err := st.LoadUIState(context.Background(), courseID); err == nil {
		m.applySavedUIState(ui)
	}

	m.refreshRows()
	return m
}

func (m *appModel) applySavedUIState(ui *store.UIState) {
	if ui == nil {
		return
	}
	m.co.State().SetExpanded(ui.Expanded)
	m.savedSelID = ui.SelectedID
	m.savedSelType = ui.SelectedType
}

// saveUIState persists selection and expansion for the next launch. Called
// on quit; failures are ignored, the worst case is a fresh outline.
func (m *appModel) saveUIState() {
	selID, selType, _ := m.co.State().Selection()
	_ = m.st.SaveUIState(context.Background(), &store.UIState{
		CourseID:     m.courseID,
		SelectedID:   selID,
		SelectedType: selType,
		Expanded:     m.co.State().ExpandedIDs(),
	})
}

// refreshRows recomputes the visible projection, applying the filter query
// and its forced-open ancestors when one is active.
func (m *appModel) refreshRows() {
	prev := m.rows
	view := outline.ApplyFilter(m.co.Cache(), m.filterQuery)
	var exp outline.Expansion = m.co.State()
	if view.Filtered() {
		exp = outline.WithForced(m.co.State(), view.Forced())
	}
	m.rows = outline.Flatten(view, exp)
	if view.Filtered() {
		m.repairFilteredSelection(prev)
	}
}

// repairFilteredSelection moves a selection the filter just hid onto its
// nearest still-visible ancestor, walking the previous projection's parent
// chain. When no ancestor survives the filter the selection is left alone;
// the entity still exists and comes back when the filter is cleared.
func (m *appModel) repairFilteredSelection(prev []outline.Row) {
	id, typ, ok := m.co.State().Selection()
	if !ok || m.selectedIndex() >= 0 {
		return
	}
	for {
		row, found := rowAt(prev, id, typ)
		if !found {
			return
		}
		switch typ {
		case model.EntityLesson:
			id, typ = row.ParentID, model.EntityProject
		case model.EntityTask, model.EntityStep:
			id, typ = row.ParentID, model.EntityLesson
		default:
			return
		}
		if _, visible := rowAt(m.rows, id, typ); visible {
			m.co.State().Select(id, typ)
			return
		}
	}
}

func rowAt(rows []outline.Row, id string, typ model.EntityType) (outline.Row, bool) {
	for _, r := range rows {
		if r.ID == id && r.Type == typ {
			return r, true
		}
	}
	return outline.Row{}, false
}

func (m *appModel) selectedRow() (outline.Row, bool) {
	id, typ, ok := m.co.State().Selection()
	if !ok {
		return outline.Row{}, false
	}
	for _, r := range m.rows {
		if r.ID == id && r.Type == typ {
			return r, true
		}
	}
	return outline.Row{}, false
}

func (m *appModel) selectedIndex() int {
	id, typ, ok := m.co.State().Selection()
	if !ok {
		return -1
	}
	for i, r := range m.rows {
		if r.ID == id && r.Type == typ {
			return i
		}
	}
	return -1
}

// projectOf resolves the owning project for any row type.
func (m *appModel) projectOf(r outline.Row) (string, bool) {
	switch r.Type {
	case model.EntityProject:
		return r.ID, true
	case model.EntityLesson:
		return r.ParentID, true
	case model.EntityTask, model.EntityStep:
		return m.co.Cache().ProjectOfLesson(r.ParentID)
	}
	return "", false
}

// lessonOf resolves the owning lesson for task and step rows.
func (m *appModel) lessonOf(r outline.Row) (string, bool) {
	switch r.Type {
	case model.EntityLesson:
		return r.ID, true
	case model.EntityTask, model.EntityStep:
		return r.ParentID, true
	}
	return "", false
}

// start hands a Pending to a tea command. The command may run on any
// goroutine; only client calls and cloned values live inside it.
func (m *appModel) start(p *mutate.Pending) tea.Cmd {
	if p == nil {
		return nil
	}
	m.pendingN++
	return func() tea.Msg {
		return mutationDoneMsg{res: p.Run(context.Background())}
	}
}

// dispatch is start plus the loading spinner.
func (m *appModel) dispatch(p *mutate.Pending) tea.Cmd {
	run := m.start(p)
	if run == nil {
		return nil
	}
	if spin := m.ensureSpinner(); spin != nil {
		return tea.Batch(run, spin)
	}
	return run
}

func (m *appModel) ensureSpinner() tea.Cmd {
	if m.spinning {
		return nil
	}
	m.spinning = true
	return m.spin.Tick
}

// prefetchExpandedProjects fetches lessons for every project the restored
// expansion set left open, a few at a time. Each fetch's outcome rides in
// its own Result; a failed one must not cancel its siblings.
func (m *appModel) prefetchExpandedProjects() tea.Cmd {
	var pendings []*mutate.Pending
	for _, p := range m.co.Cache().Projects() {
		if !m.co.State().IsExpanded(p.ID) {
			continue
		}
		if pd := m.co.EnsureChildren(p.ID, model.EntityProject); pd != nil {
			pendings = append(pendings, pd)
		}
	}
	if len(pendings) == 0 {
		return nil
	}
	m.pendingN += len(pendings)
	spin := m.ensureSpinner()
	fetch := func() tea.Msg {
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(prefetchParallel)
		results := make([]mutate.Result, len(pendings))
		for i, p := range pendings {
			g.Go(func() error {
				results[i] = p.Run(ctx)
				return nil
			})
		}
		_ = g.Wait()
		return prefetchDoneMsg{results: results}
	}
	if spin != nil {
		return tea.Batch(fetch, spin)
	}
	return fetch
}

// restoreSelection points the selection at the saved row once it exists.
// final falls back to the first row when the saved one is gone for good.
func (m *appModel) restoreSelection(final bool) {
	if m.savedSelID != "" {
		for _, r := range m.rows {
			if r.ID == m.savedSelID && r.Type == m.savedSelType {
				m.co.State().Select(r.ID, r.Type)
				m.savedSelID = ""
				m.savedSelType = ""
				break
			}
		}
	}
	if !final {
		return
	}
	m.savedSelID = ""
	m.savedSelType = ""
	if _, ok := m.selectedRow(); !ok && len(m.rows) > 0 {
		m.co.State().Select(m.rows[0].ID, m.rows[0].Type)
	}
}

func (m *appModel) showStatus(text string) tea.Cmd {
	return m.flash(text, false, statusClearAfter)
}

func (m *appModel) showError(text string) tea.Cmd {
	return m.flash(text, true, statusErrorClearAfter)
}

func (m *appModel) flash(text string, isErr bool, after time.Duration) tea.Cmd {
	m.statusText = text
	m.statusErr = isErr
	m.statusSeq++
	seq := m.statusSeq
	return tea.Tick(after, func(time.Time) tea.Msg { return statusDoneMsg{seq: seq} })
}
