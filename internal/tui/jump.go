package tui

import (
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// jumpCandidates lists everything reachable by title: projects, lessons and
// linked tasks. Steps are skipped, their titles are just type names.
func (m *appModel) jumpCandidates() []outline.Row {
	var out []outline.Row
	for _, p := range m.co.Cache().Projects() {
		out = append(out, outline.Row{ID: p.ID, Type: model.EntityProject, Title: p.Title})
		for _, l := range m.co.Cache().Lessons(p.ID) {
			out = append(out, outline.Row{ID: l.ID, Type: model.EntityLesson, ParentID: p.ID, Title: l.Title, Draft: l.IsDraft})
			for _, t := range m.co.Cache().Tasks(l.ID) {
				out = append(out, outline.Row{ID: t.ID, Type: model.EntityTask, ParentID: l.ID, Title: t.Title})
			}
		}
	}
	return out
}

// recomputeJump reranks candidates against the query. An empty query keeps
// outline order; otherwise best fuzzy score first.
func (m *appModel) recomputeJump() {
	cands := m.jumpCandidates()
	q := strings.TrimSpace(m.jumpInput.Value())
	m.jumpMatches = m.jumpMatches[:0]
	if q == "" {
		m.jumpMatches = append(m.jumpMatches, cands...)
	} else {
		titles := make([]string, len(cands))
		for i, r := range cands {
			titles[i] = r.Title
		}
		for _, match := range fuzzy.Find(q, titles) {
			m.jumpMatches = append(m.jumpMatches, cands[match.Index])
		}
	}
	if m.jumpIdx >= len(m.jumpMatches) {
		m.jumpIdx = 0
	}
}

func (m appModel) updateJumpModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+g":
		(&m).closeAllModals()
		return m, nil
	case "up", "ctrl+k":
		if m.jumpIdx > 0 {
			m.jumpIdx--
		}
		return m, nil
	case "down", "ctrl+j", "ctrl+n":
		if m.jumpIdx < len(m.jumpMatches)-1 {
			m.jumpIdx++
		}
		return m, nil
	case "enter":
		return m.applyJump()
	}
	var cmd tea.Cmd
	m.jumpInput, cmd = m.jumpInput.Update(msg)
	(&m).recomputeJump()
	return m, cmd
}

func (m appModel) applyJump() (tea.Model, tea.Cmd) {
	if m.jumpIdx < 0 || m.jumpIdx >= len(m.jumpMatches) {
		(&m).closeAllModals()
		return m, nil
	}
	target := m.jumpMatches[m.jumpIdx]
	(&m).closeAllModals()

	// Open the ancestor chain so the row is on screen.
	switch target.Type {
	case model.EntityLesson:
		m.co.State().Expand(target.ParentID)
	case model.EntityTask, model.EntityStep:
		m.co.State().Expand(target.ParentID)
		if pid, ok := m.co.Cache().ProjectOfLesson(target.ParentID); ok {
			m.co.State().Expand(pid)
		}
	}
	m.co.State().Select(target.ID, target.Type)
	(&m).refreshRows()
	(&m).syncPreview()
	return m, nil
}

const jumpVisible = 8

func (m appModel) renderJumpModal(width int) string {
	bodyW := modalBodyWidth(width)

	var b strings.Builder
	b.WriteString(renderInputLine(bodyW, m.jumpInput.View()))
	b.WriteString("\n\n")

	if len(m.jumpMatches) == 0 {
		b.WriteString(styleMuted().Render("no matches"))
	} else {
		top := 0
		if m.jumpIdx >= jumpVisible {
			top = m.jumpIdx - jumpVisible + 1
		}
		for i := top; i < len(m.jumpMatches) && i < top+jumpVisible; i++ {
			r := m.jumpMatches[i]
			line := "  " + styleMuted().Render(string(r.Type)) + " " + r.Title
			if i == m.jumpIdx {
				line = lipgloss.NewStyle().
					Foreground(colorSelectedFg).
					Background(colorSelectedBg).
					Bold(true).
					Render(padLine("> "+string(r.Type)+" "+r.Title, bodyW))
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styleMuted().Width(bodyW).Render("↑/↓: choose   enter: go   esc: cancel"))
	return renderModalBox(width, "Jump to", b.String())
}
