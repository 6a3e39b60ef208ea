package tui

import (
	"bytes"
	"encoding/json"
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/outline"
	"chalk-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// stepTypeChoices is the picker order for new steps.
var stepTypeChoices = []model.StepType{
	model.StepText,
	model.StepVideo,
	model.StepFile,
	model.StepQuiz,
	model.StepEmbed,
}

func (m appModel) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		(&m).saveUIState()
		return m, tea.Quit
	}
	switch m.modal {
	case modalHelp:
		(&m).closeAllModals()
		return m, nil
	case modalRename, modalNewProject, modalNewLesson, modalLinkTask:
		return m.updateInputModal(msg)
	case modalConfirmDelete:
		return m.updateConfirmModal(msg)
	case modalMoveLesson:
		return m.updateMoveModal(msg)
	case modalAddStep:
		return m.updateAddStepModal(msg)
	case modalEditStep:
		return m.updateStepEditorModal(msg)
	case modalJump:
		return m.updateJumpModal(msg)
	}
	return m, nil
}

func (m appModel) updateInputModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		(&m).closeAllModals()
		return m, nil
	case "enter":
		return m.applyInputModal()
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m appModel) applyInputModal() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	kind, id, typ := m.modal, m.modalForID, m.modalForType
	(&m).closeAllModals()

	var p *mutate.Pending
	var err error
	switch kind {
	case modalRename:
		p, err = m.co.Rename(id, typ, value)
	case modalNewProject:
		p, err = m.co.CreateProject(value)
	case modalNewLesson:
		p, err = m.co.CreateLesson(id, value)
	case modalLinkTask:
		if value == "" {
			return m, nil
		}
		// The catalog title comes back on the next task fetch; until then
		// the id stands in for it.
		p, err = m.co.LinkTask(id, model.Task{ID: value, Title: value})
	}
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func (m appModel) updateConfirmModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g", "n":
		(&m).closeAllModals()
		return m, nil
	case "tab", "left", "right", "h", "l":
		if m.confirmFocus == confirmFocusConfirm {
			m.confirmFocus = confirmFocusCancel
		} else {
			m.confirmFocus = confirmFocusConfirm
		}
		return m, nil
	case "y":
		return m.applyConfirmDelete()
	case "enter":
		if m.confirmFocus == confirmFocusConfirm {
			return m.applyConfirmDelete()
		}
		(&m).closeAllModals()
		return m, nil
	}
	return m, nil
}

func (m appModel) applyConfirmDelete() (tea.Model, tea.Cmd) {
	id, typ, lessonID := m.modalForID, m.modalForType, m.modalForParent
	(&m).closeAllModals()

	var p *mutate.Pending
	var err error
	switch typ {
	case model.EntityProject, model.EntityLesson:
		p, err = m.co.Delete(id, typ)
	case model.EntityStep:
		idx := -1
		for i, s := range m.co.Cache().Steps(lessonID) {
			if s.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return m, (&m).showError("step not found")
		}
		p, err = m.co.RemoveStep(lessonID, idx)
	case model.EntityTask:
		p, err = m.co.UnlinkTask(lessonID, id)
	default:
		return m, nil
	}
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	(&m).refreshRows()
	(&m).restoreSelection(true)
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func (m appModel) updateMoveModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		(&m).closeAllModals()
		return m, nil
	case "up", "k":
		if m.moveIdx > 0 {
			m.moveIdx--
		}
		return m, nil
	case "down", "j":
		if m.moveIdx < len(m.moveTargets)-1 {
			m.moveIdx++
		}
		return m, nil
	case "enter":
		return m.applyMove()
	}
	return m, nil
}

func (m appModel) applyMove() (tea.Model, tea.Cmd) {
	if m.moveIdx < 0 || m.moveIdx >= len(m.moveTargets) {
		(&m).closeAllModals()
		return m, nil
	}
	lessonID := m.modalForID
	target := m.moveTargets[m.moveIdx]
	(&m).closeAllModals()

	if !m.co.Cache().Loaded(outline.LessonsKey(target.ID)) {
		// A move lands at a position inside the target's sibling list, so
		// that list has to exist first. Fetch it and finish the move when
		// the result comes back.
		m.pendingMoveLessonID = lessonID
		m.pendingMoveTargetID = target.ID
		cmd := (&m).dispatch(m.co.EnsureChildren(target.ID, model.EntityProject))
		return m, tea.Batch(cmd, (&m).showStatus("fetching "+target.Title))
	}

	p, err := m.co.MoveLesson(lessonID, target.ID, -1)
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	m.co.State().Expand(target.ID)
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func (m appModel) updateAddStepModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		(&m).closeAllModals()
		return m, nil
	case "up", "k":
		if m.stepTypeIdx > 0 {
			m.stepTypeIdx--
		}
		return m, nil
	case "down", "j":
		if m.stepTypeIdx < len(stepTypeChoices)-1 {
			m.stepTypeIdx++
		}
		return m, nil
	case "enter":
		return m.applyAddStep()
	}
	return m, nil
}

func (m appModel) applyAddStep() (tea.Model, tea.Cmd) {
	lessonID, at := m.modalForID, m.addStepAt
	typ := stepTypeChoices[m.stepTypeIdx]
	(&m).closeAllModals()

	stepID, err := store.NewStepID()
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	p, err := m.co.InsertStep(lessonID, at, model.Step{
		ID:      stepID,
		Type:    typ,
		Payload: json.RawMessage(`{}`),
	})
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	m.co.State().Expand(lessonID)
	m.co.State().Select(stepID, model.EntityStep)
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

func (m appModel) updateStepEditorModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		(&m).closeAllModals()
		return m, nil
	case "ctrl+s":
		return m.applyStepEdit()
	}
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m appModel) applyStepEdit() (tea.Model, tea.Cmd) {
	raw := strings.TrimSpace(m.textarea.Value())
	if raw == "" {
		raw = "{}"
	}
	if !json.Valid([]byte(raw)) {
		// Keep the modal open so the edit isn't lost.
		return m, (&m).showError("payload is not valid JSON")
	}
	stepID, lessonID := m.modalForID, m.modalForParent
	(&m).closeAllModals()

	payload := []byte(raw)
	p, err := m.co.EditStep(lessonID, stepID, outline.StepPatch{Payload: &payload})
	if err != nil {
		return m, (&m).showError(err.Error())
	}
	(&m).refreshRows()
	(&m).syncPreview()
	return m, (&m).dispatch(p)
}

// prettyPayload renders a step payload for the editor; raw server bytes may
// be compact.
func prettyPayload(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
