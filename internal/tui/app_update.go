package tui

import (
	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/outline"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

func (m appModel) Init() tea.Cmd {
	return func() tea.Msg { return initLoadMsg{} }
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case initLoadMsg:
		var cmds []tea.Cmd
		if c := (&m).dispatch(m.co.LoadCourse()); c != nil {
			cmds = append(cmds, c)
		}
		if c := (&m).dispatch(m.co.LoadProjects()); c != nil {
			cmds = append(cmds, c)
		}
		return m, tea.Batch(cmds...)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.seenWindowSize = true
		(&m).resizePanes()
		(&m).syncPreview()
		return m, nil

	case spinner.TickMsg:
		if m.pendingN == 0 {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case statusDoneMsg:
		if msg.seq == m.statusSeq {
			m.statusText = ""
			m.statusErr = false
		}
		return m, nil

	case mutationDoneMsg:
		return m.resolveResult(msg.res)

	case prefetchDoneMsg:
		var firstErr error
		for _, res := range msg.results {
			if m.pendingN > 0 {
				m.pendingN--
			}
			if err := res.Resolve(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		(&m).refreshRows()
		(&m).restoreSelection(true)
		(&m).syncPreview()
		if firstErr != nil {
			return m, (&m).showError(firstErr.Error())
		}
		return m, nil

	case tea.KeyMsg:
		if m.modal != modalNone {
			return m.updateModal(msg)
		}
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

// resolveResult applies one finished remote call: commit or roll back the
// optimistic local change, then redraw from whatever the cache now holds.
func (m appModel) resolveResult(res mutate.Result) (tea.Model, tea.Cmd) {
	if m.pendingN > 0 {
		m.pendingN--
	}
	var cmds []tea.Cmd

	err := res.Resolve()
	if err != nil {
		m.log.Warn("mutation failed", "action", res.Action, "err", err)
		cmds = append(cmds, (&m).showError(res.Action+": "+err.Error()))
		// A deferred move rode on this call; drop it rather than retry.
		m.pendingMoveLessonID = ""
		m.pendingMoveTargetID = ""
	}

	// First successful project load: the outline is real now. Restore the
	// saved selection, prefetching children for projects left expanded.
	if res.Action == "load projects" && err == nil && !m.booted {
		m.booted = true
		(&m).refreshRows()
		prefetch := (&m).prefetchExpandedProjects()
		(&m).restoreSelection(prefetch == nil)
		if prefetch != nil {
			cmds = append(cmds, prefetch)
		}
	}

	// A move waiting on the target project's lesson fetch.
	if err == nil && m.pendingMoveLessonID != "" && m.co.Cache().Loaded(outline.LessonsKey(m.pendingMoveTargetID)) {
		lessonID, targetID := m.pendingMoveLessonID, m.pendingMoveTargetID
		m.pendingMoveLessonID = ""
		m.pendingMoveTargetID = ""
		if p, merr := m.co.MoveLesson(lessonID, targetID, -1); merr != nil {
			cmds = append(cmds, (&m).showError(merr.Error()))
		} else if c := (&m).dispatch(p); c != nil {
			cmds = append(cmds, c)
		}
	}

	(&m).refreshRows()
	(&m).syncPreview()
	return m, tea.Batch(cmds...)
}

func (m appModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		(&m).saveUIState()
		return m, tea.Quit
	case "ctrl+z":
		return m, tea.Suspend
	case "tab":
		if m.pane == paneOutline {
			m.pane = paneDetail
		} else {
			m.pane = paneOutline
		}
		return m, nil
	case "?":
		m.modal = modalHelp
		return m, nil
	}

	// Detail focus scrolls the preview; everything else falls through to
	// the outline bindings so mutations keep working.
	if m.pane == paneDetail {
		switch msg.String() {
		case "esc":
			m.pane = paneOutline
			return m, nil
		case "up", "down", "pgup", "pgdown", "k", "j", "ctrl+u", "ctrl+d", "home", "end", "g", "G":
			var cmd tea.Cmd
			m.preview, cmd = m.preview.Update(msg)
			return m, cmd
		}
	}

	switch msg.String() {
	case "esc":
		if m.filterQuery != "" {
			m.filterQuery = ""
			m.filterInput.SetValue("")
			(&m).refreshRows()
			(&m).syncPreview()
		}
		return m, nil
	case "up", "k":
		return m, (&m).navigate(outline.KeyUp)
	case "down", "j":
		return m, (&m).navigate(outline.KeyDown)
	case "left", "h":
		return m, (&m).navigate(outline.KeyLeft)
	case "right", "l":
		return m, (&m).navigate(outline.KeyRight)
	case "home", "g":
		return m, (&m).navigate(outline.KeyHome)
	case "end", "G":
		return m, (&m).navigate(outline.KeyEnd)
	case " ":
		r, ok := (&m).selectedRow()
		if !ok || !r.Expandable() {
			return m, nil
		}
		cmd := (&m).dispatch(m.co.ToggleExpand(r.ID, r.Type))
		(&m).refreshRows()
		(&m).syncPreview()
		return m, cmd
	case "enter":
		r, ok := (&m).selectedRow()
		if !ok {
			return m, nil
		}
		switch r.Type {
		case model.EntityProject, model.EntityLesson:
			return m, (&m).openRename(r)
		case model.EntityStep:
			return m, (&m).openStepEditor(r)
		case model.EntityTask:
			return m, (&m).showStatus("tasks are edited in the task catalog; x unlinks")
		}
		return m, nil
	case "e":
		if r, ok := (&m).selectedRow(); ok && r.Type == model.EntityStep {
			return m, (&m).openStepEditor(r)
		}
		return m, (&m).showStatus("e edits a step payload")
	case "N":
		if !m.co.Cache().Loaded(outline.ProjectsKey()) {
			return m, (&m).showStatus("projects are still loading")
		}
		m.modal = modalNewProject
		m.input.Placeholder = "Project title"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "n":
		return m.openNewLesson()
	case "a":
		return m.openAddStep()
	case "r":
		r, ok := (&m).selectedRow()
		if !ok {
			return m, nil
		}
		if r.Type != model.EntityProject && r.Type != model.EntityLesson {
			return m, (&m).showStatus("rename applies to projects and lessons")
		}
		return m, (&m).openRename(r)
	case "d", "delete":
		r, ok := (&m).selectedRow()
		if !ok {
			return m, nil
		}
		(&m).openConfirmDelete(r)
		return m, nil
	case "m":
		return m.openMovePicker()
	case "alt+up":
		return m.reorderSelected(-1)
	case "alt+down":
		return m.reorderSelected(+1)
	case "t":
		r, ok := (&m).selectedRow()
		if !ok {
			return m, nil
		}
		lid, ok := (&m).lessonOf(r)
		if !ok {
			return m, (&m).showStatus("select a lesson to link a task")
		}
		m.modal = modalLinkTask
		m.modalForID = lid
		m.input.Placeholder = "Task id"
		m.input.SetValue("")
		return m, m.input.Focus()
	case "x":
		r, ok := (&m).selectedRow()
		if !ok || r.Type != model.EntityTask {
			return m, (&m).showStatus("select a linked task to unlink")
		}
		(&m).openConfirmDelete(r)
		return m, nil
	case "p":
		return m.togglePublish()
	case "y":
		if r, ok := (&m).selectedRow(); ok {
			if err := copyToClipboard(r.ID); err != nil {
				return m, (&m).showError("clipboard: " + err.Error())
			}
			return m, (&m).showStatus("copied " + r.ID)
		}
		return m, nil
	case "R":
		cmd := (&m).dispatch(m.co.Refresh())
		(&m).refreshRows()
		return m, tea.Batch(cmd, (&m).showStatus("refreshing"))
	case "/":
		m.filtering = true
		m.filterInput.SetValue(m.filterQuery)
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()
	case "ctrl+p":
		m.modal = modalJump
		m.jumpInput.SetValue("")
		m.jumpIdx = 0
		(&m).recomputeJump()
		return m, m.jumpInput.Focus()
	}
	return m, nil
}

// navigate routes a movement key through the outline rules. Landing on an
// expandable row expands it, so a container whose children were never
// fetched triggers the lazy load here.
func (m *appModel) navigate(key outline.Key) tea.Cmd {
	outline.Navigate(m.rows, m.co.State(), key)
	m.refreshRows()
	var cmd tea.Cmd
	if r, ok := m.selectedRow(); ok && r.Expandable() && !r.Loaded && m.co.State().IsExpanded(r.ID) {
		cmd = m.dispatch(m.co.EnsureChildren(r.ID, r.Type))
	}
	m.syncPreview()
	return cmd
}

func (m *appModel) openRename(r outline.Row) tea.Cmd {
	m.modal = modalRename
	m.modalForID = r.ID
	m.modalForType = r.Type
	m.input.Placeholder = "Title"
	m.input.SetValue(r.Title)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m appModel) openNewLesson() (tea.Model, tea.Cmd) {
	r, ok := (&m).selectedRow()
	if !ok {
		return m, (&m).showStatus("select a project first")
	}
	pid, ok := (&m).projectOf(r)
	if !ok {
		return m, (&m).showStatus("select a project first")
	}
	if !m.co.Cache().Loaded(outline.LessonsKey(pid)) {
		// The append position needs the sibling list; fetch it first.
		cmd := (&m).dispatch(m.co.EnsureChildren(pid, model.EntityProject))
		return m, tea.Batch(cmd, (&m).showStatus("fetching lessons, try again in a moment"))
	}
	m.modal = modalNewLesson
	m.modalForID = pid
	m.input.Placeholder = "Lesson title"
	m.input.SetValue("")
	return m, m.input.Focus()
}

func (m appModel) openAddStep() (tea.Model, tea.Cmd) {
	r, ok := (&m).selectedRow()
	if !ok {
		return m, nil
	}
	lid, ok := (&m).lessonOf(r)
	if !ok {
		return m, (&m).showStatus("steps live inside lessons")
	}
	steps := m.co.Cache().Steps(lid)
	m.modal = modalAddStep
	m.modalForID = lid
	m.stepTypeIdx = 0
	m.addStepAt = len(steps)
	if r.Type == model.EntityStep {
		for i, s := range steps {
			if s.ID == r.ID {
				m.addStepAt = i + 1
				break
			}
		}
	}
	return m, nil
}

func (m *appModel) openStepEditor(r outline.Row) tea.Cmd {
	lid := r.ParentID
	var step model.Step
	found := false
	for _, s := range m.co.Cache().Steps(lid) {
		if s.ID == r.ID {
			step = s
			found = true
			break
		}
	}
	if !found {
		return m.showError("step not found")
	}
	m.modal = modalEditStep
	m.modalForID = r.ID
	m.modalForType = model.EntityStep
	m.modalForParent = lid
	m.textarea.SetValue(prettyPayload(step.Payload))
	return m.textarea.Focus()
}

func (m *appModel) openConfirmDelete(r outline.Row) {
	m.modal = modalConfirmDelete
	m.modalForID = r.ID
	m.modalForType = r.Type
	m.modalForParent, _ = m.lessonOf(r)
	m.confirmFocus = confirmFocusCancel
}

func (m appModel) openMovePicker() (tea.Model, tea.Cmd) {
	r, ok := (&m).selectedRow()
	if !ok || r.Type != model.EntityLesson {
		return m, (&m).showStatus("select a lesson to move")
	}
	var targets []model.Project
	for _, p := range m.co.Cache().Projects() {
		if p.ID != r.ParentID {
			targets = append(targets, p)
		}
	}
	if len(targets) == 0 {
		return m, (&m).showStatus("no other project to move to")
	}
	m.modal = modalMoveLesson
	m.modalForID = r.ID
	m.moveTargets = targets
	m.moveIdx = 0
	return m, nil
}

func (m appModel) togglePublish() (tea.Model, tea.Cmd) {
	r, ok := (&m).selectedRow()
	if !ok {
		return m, nil
	}
	var p *mutate.Pending
	var err error
	switch r.Type {
	case model.EntityProject:
		proj, found := m.co.Cache().Project(r.ID)
		if !found {
			return m, nil
		}
		p, err = m.co.SetPublished(r.ID, !proj.IsPublished)
	case model.EntityLesson:
		lesson, found := m.co.Cache().Lesson(r.ID)
		if !found {
			return m, nil
		}
		p, err = m.co.SetLessonDraft(r.ID, !lesson.IsDraft)
	default:
		return m, (&m).showStatus("publish applies to projects and lessons")
	}
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func (m appModel) reorderSelected(delta int) (tea.Model, tea.Cmd) {
	r, ok := (&m).selectedRow()
	if !ok {
		return m, nil
	}
	var intent mutate.ReorderIntent
	switch r.Type {
	case model.EntityProject:
		src := indexOf(m.co.Cache().ProjectIDs(), r.ID)
		intent = mutate.ReorderIntent{ParentType: model.EntityCourse, SourceIndex: src, TargetIndex: src + delta}
	case model.EntityLesson:
		src := indexOf(m.co.Cache().LessonIDs(r.ParentID), r.ID)
		intent = mutate.ReorderIntent{ParentID: r.ParentID, ParentType: model.EntityProject, SourceIndex: src, TargetIndex: src + delta}
	case model.EntityStep:
		src := -1
		for i, s := range m.co.Cache().Steps(r.ParentID) {
			if s.ID == r.ID {
				src = i
				break
			}
		}
		intent = mutate.ReorderIntent{ParentID: r.ParentID, ParentType: model.EntityLesson, SourceIndex: src, TargetIndex: src + delta}
	default:
		return m, (&m).showStatus("linked tasks keep their link order")
	}
	p, err := m.co.Reorder(intent)
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func (m appModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		(&m).saveUIState()
		return m, tea.Quit
	case "esc", "ctrl+g":
		m.filtering = false
		m.filterQuery = ""
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		(&m).refreshRows()
		(&m).syncPreview()
		return m, nil
	case "enter":
		// Keep the query applied, hand focus back to the outline.
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if q := m.filterInput.Value(); q != m.filterQuery {
		m.filterQuery = q
		(&m).refreshRows()
		(&m).syncPreview()
	}
	return m, cmd
}
