package tui

import (
	"strings"

	"chalk-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
)

func (m appModel) renderInputModal(title string) string {
	bodyW := modalBodyWidth(m.width)
	content := strings.Join([]string{
		renderInputLine(bodyW, m.input.View()),
		"",
		styleMuted().Width(bodyW).Render("enter: save   esc/ctrl+g: cancel"),
	}, "\n")
	return renderModalBox(m.width, title, content)
}

func (m appModel) renderConfirmDeleteModal() string {
	name := m.modalForID
	switch m.modalForType {
	case model.EntityProject:
		if p, ok := m.co.Cache().Project(m.modalForID); ok && p.Title != "" {
			name = p.Title
		}
	case model.EntityLesson:
		if l, ok := m.co.Cache().Lesson(m.modalForID); ok && l.Title != "" {
			name = l.Title
		}
	case model.EntityTask:
		for _, t := range m.co.Cache().Tasks(m.modalForParent) {
			if t.ID == m.modalForID && t.Title != "" {
				name = t.Title
			}
		}
	}

	var body, verb string
	switch m.modalForType {
	case model.EntityProject:
		body = "Delete project “" + name + "” and all of its lessons?"
		verb = "Delete"
	case model.EntityLesson:
		body = "Delete lesson “" + name + "”?"
		verb = "Delete"
	case model.EntityStep:
		body = "Delete this step?"
		verb = "Delete"
	case model.EntityTask:
		// Unlink only; the task itself lives in the catalog.
		body = "Unlink task “" + name + "” from this lesson?"
		verb = "Unlink"
	}
	bodyW := modalBodyWidth(m.width)
	return renderConfirmModal(m.width, verb,
		lipgloss.NewStyle().Width(bodyW).Render(body), verb, "Cancel", m.confirmFocus)
}

func (m appModel) renderMoveModal() string {
	bodyW := modalBodyWidth(m.width)
	var b strings.Builder
	b.WriteString(styleMuted().Width(bodyW).Render("Move lesson to:"))
	b.WriteString("\n\n")
	for i, p := range m.moveTargets {
		line := "  " + p.Title
		if i == m.moveIdx {
			line = lipgloss.NewStyle().
				Foreground(colorSelectedFg).
				Background(colorSelectedBg).
				Bold(true).
				Render(padLine("> "+p.Title, bodyW))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Width(bodyW).Render("↑/↓: choose   enter: move   esc: cancel"))
	return renderModalBox(m.width, "Move lesson", b.String())
}

func (m appModel) renderAddStepModal() string {
	bodyW := modalBodyWidth(m.width)
	var b strings.Builder
	b.WriteString(styleMuted().Width(bodyW).Render("Step type:"))
	b.WriteString("\n\n")
	for i, t := range stepTypeChoices {
		line := "  " + string(t)
		if i == m.stepTypeIdx {
			line = lipgloss.NewStyle().
				Foreground(colorSelectedFg).
				Background(colorSelectedBg).
				Bold(true).
				Render(padLine("> "+string(t), bodyW))
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Width(bodyW).Render("↑/↓: choose   enter: add   esc: cancel"))
	return renderModalBox(m.width, "Add step", b.String())
}

func (m appModel) renderStepEditorModal() string {
	bodyW := modalBodyWidth(m.width)
	content := strings.Join([]string{
		m.textarea.View(),
		"",
		styleMuted().Width(bodyW).Render("ctrl+s: save   esc/ctrl+g: cancel"),
	}, "\n")
	return renderModalBox(m.width, "Edit step payload", content)
}

func (m appModel) renderHelpModal() string {
	bodyW := modalBodyWidth(m.width)
	rows := []string{
		"↑/↓, j/k     move",
		"←/→, h/l     collapse / expand",
		"space        toggle fold",
		"g / G        first / last row",
		"enter        rename or edit",
		"N            new project",
		"n            new lesson in project",
		"a            add step",
		"e            edit step payload",
		"r            rename",
		"d, del       delete (with confirm)",
		"m            move lesson to another project",
		"alt+↑/↓      reorder within parent",
		"t            link a task to a lesson",
		"x            unlink a task",
		"p            toggle published / draft",
		"y            copy id to clipboard",
		"/            filter titles",
		"ctrl+p       jump to anything",
		"R            refresh from server",
		"tab          switch pane",
		"q, ctrl+c    quit",
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(padLine(r, bodyW))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styleMuted().Width(bodyW).Render("any key closes this help"))
	return renderModalBox(m.width, "Keys", b.String())
}
