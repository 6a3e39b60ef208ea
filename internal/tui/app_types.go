package tui

import (
	"chalk-cli/internal/mutate"
)

type pane int

const (
	paneOutline pane = iota
	paneDetail
)

type modalKind int

const (
	modalNone modalKind = iota
	modalNewProject
	modalNewLesson
	modalRename
	modalLinkTask
	modalConfirmDelete
	modalMoveLesson
	modalAddStep
	modalEditStep
	modalJump
	modalHelp
)

type confirmModalFocus int

const (
	confirmFocusConfirm confirmModalFocus = iota
	confirmFocusCancel
)

// mutationDoneMsg carries a finished remote call back onto the event loop.
// Result.Resolve must only run there; the Update handler does it.
type mutationDoneMsg struct {
	res mutate.Result
}

// prefetchDoneMsg is the batched variant for startup child fetches.
type prefetchDoneMsg struct {
	results []mutate.Result
}

// statusDoneMsg expires the status line; seq guards against clearing a newer
// message.
type statusDoneMsg struct{ seq int }

// initLoadMsg kicks off the initial course and project loads. Init can't
// mutate the model, so the bookkeeping happens in Update.
type initLoadMsg struct{}

func (m *appModel) closeAllModals() {
	if m == nil {
		return
	}
	m.modal = modalNone
	m.modalForID = ""
	m.modalForType = ""
	m.modalForParent = ""
	m.confirmFocus = confirmFocusCancel
	m.moveTargets = nil
	m.moveIdx = 0
	m.stepTypeIdx = 0
	m.addStepAt = 0
	m.jumpMatches = nil
	m.jumpIdx = 0

	// Reset inputs (safe even if not currently used).
	m.input.Placeholder = "Title"
	m.input.SetValue("")
	m.input.Blur()

	m.jumpInput.SetValue("")
	m.jumpInput.Blur()

	m.textarea.SetValue("")
	m.textarea.Blur()
}
