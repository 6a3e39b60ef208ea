package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const (
	// Below this total width the detail pane is hidden.
	minSplitW   = 80
	splitGapW   = 2
	maxOutlineW = 48
	minOutlineW = 30

	headerLines = 2
	statusLines = 1
	footerLines = 1
)

// paneSizes derives the outline width, detail width (0 when hidden) and the
// shared body height from the last WindowSizeMsg.
func (m appModel) paneSizes() (outlineW, detailW, bodyH int) {
	bodyH = m.height - headerLines - statusLines - footerLines
	if bodyH < 3 {
		bodyH = 3
	}
	if m.width < minSplitW {
		return m.width, 0, bodyH
	}
	outlineW = m.width * 2 / 5
	if outlineW > maxOutlineW {
		outlineW = maxOutlineW
	}
	if outlineW < minOutlineW {
		outlineW = minOutlineW
	}
	detailW = m.width - outlineW - splitGapW
	return outlineW, detailW, bodyH
}

func (m *appModel) resizePanes() {
	_, detailW, bodyH := m.paneSizes()
	if detailW > 0 {
		m.preview.Width = detailW
		m.preview.Height = bodyH
	}
}

func (m appModel) View() string {
	if !m.seenWindowSize {
		return "starting…"
	}
	outlineW, detailW, bodyH := m.paneSizes()

	var body string
	if m.modal != modalNone {
		body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center, m.renderModal())
	} else {
		left := normalizePane(m.renderOutlinePane(outlineW, bodyH), outlineW, bodyH)
		if detailW > 0 {
			gap := normalizePane("", splitGapW, bodyH)
			right := normalizePane(m.preview.View(), detailW, bodyH)
			body = lipgloss.JoinHorizontal(lipgloss.Top, left, gap, right)
		} else {
			body = left
		}
	}

	return strings.Join([]string{
		m.renderHeader(),
		body,
		m.renderStatusLine(),
		m.renderFooter(),
	}, "\n")
}

func (m appModel) renderHeader() string {
	title := "chalk"
	var status string
	if c := m.co.Cache().Course(); c != nil {
		if c.Title != "" {
			title = c.Title
		}
		status = string(c.Status)
	}
	left := lipgloss.NewStyle().Bold(true).Render(title)
	if status != "" {
		left += " " + styleMuted().Render("("+status+")")
	}

	var rightParts []string
	if m.filterQuery != "" && !m.filtering {
		rightParts = append(rightParts, "filter: "+strconv.Quote(m.filterQuery))
	}
	if m.pane == paneDetail {
		rightParts = append(rightParts, "detail")
	}
	line := left
	if len(rightParts) > 0 {
		right := styleMuted().Render(strings.Join(rightParts, "  "))
		pad := m.width - xansi.StringWidth(left) - xansi.StringWidth(right)
		if pad < 1 {
			pad = 1
		}
		line = left + strings.Repeat(" ", pad) + right
	}

	ruleW := m.width
	if ruleW < 1 {
		ruleW = 1
	}
	rule := styleMuted().Render(strings.Repeat(glyphHRule(), ruleW))
	return padLine(line, m.width) + "\n" + rule
}

func (m appModel) renderStatusLine() string {
	var parts []string
	if m.pendingN > 0 {
		sync := m.spin.View() + " syncing"
		if m.pendingN > 1 {
			sync += " (" + strconv.Itoa(m.pendingN) + ")"
		}
		parts = append(parts, styleMuted().Render(sync))
	}
	if m.statusText != "" {
		st := styleMuted()
		if m.statusErr {
			st = lipgloss.NewStyle().Foreground(colorErrorFg)
		}
		parts = append(parts, st.Render(m.statusText))
	}
	return padLine(strings.Join(parts, "  "), m.width)
}

func (m appModel) renderFooter() string {
	var hint string
	switch {
	case m.filtering:
		return padLine(m.filterInput.View()+"  "+styleMuted().Render("enter: keep  esc: clear"), m.width)
	case m.modal != modalNone:
		hint = "esc: close"
	case m.pane == paneDetail:
		hint = "↑/↓: scroll  tab: back to outline  q: quit"
	default:
		hint = "↑↓: move  space: fold  enter: edit  n/N: new  a: step  d: delete  m: move  alt+↑↓: reorder  /: filter  ctrl+p: jump  ?: help  q: quit"
	}
	st := faintIfDark(lipgloss.NewStyle().Foreground(colorChromeMutedFg))
	return padLine(st.Render(hint), m.width)
}

func (m appModel) renderModal() string {
	switch m.modal {
	case modalNewProject:
		return m.renderInputModal("New project")
	case modalNewLesson:
		return m.renderInputModal("New lesson")
	case modalRename:
		return m.renderInputModal("Rename " + string(m.modalForType))
	case modalLinkTask:
		return m.renderInputModal("Link task")
	case modalConfirmDelete:
		return m.renderConfirmDeleteModal()
	case modalMoveLesson:
		return m.renderMoveModal()
	case modalAddStep:
		return m.renderAddStepModal()
	case modalEditStep:
		return m.renderStepEditorModal()
	case modalJump:
		return m.renderJumpModal(m.width)
	case modalHelp:
		return m.renderHelpModal()
	}
	return ""
}
