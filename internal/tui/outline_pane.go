package tui

import (
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"

	"github.com/charmbracelet/lipgloss"
)

// renderOutlinePane draws the visible rows into a width×height rectangle,
// scrolling so the selected row stays on screen.
func (m appModel) renderOutlinePane(width, height int) string {
	if len(m.rows) == 0 {
		if m.pendingN > 0 {
			return styleMuted().Render("loading…")
		}
		if m.filterQuery != "" {
			return styleMuted().Render("no matches for " + m.filterQuery)
		}
		return styleMuted().Render("no projects yet (N creates one)")
	}

	sel := m.selectedIndex()
	top := 0
	if sel >= 0 && height > 0 && sel >= height {
		top = sel - height + 1
	}
	if top > len(m.rows)-height {
		top = len(m.rows) - height
	}
	if top < 0 {
		top = 0
	}

	var b strings.Builder
	for i := top; i < len(m.rows) && i < top+height; i++ {
		if i > top {
			b.WriteString("\n")
		}
		b.WriteString(m.renderOutlineRow(m.rows[i], width, i == sel))
	}
	return b.String()
}

func (m appModel) renderOutlineRow(r outline.Row, width int, selected bool) string {
	indent := strings.Repeat("  ", r.Depth)

	// Twisty column is always two characters wide so titles line up across
	// container and leaf rows.
	marker := "  "
	switch {
	case r.Expandable() && r.Expanded:
		marker = glyphTwistyExpanded() + " "
	case r.Expandable():
		marker = glyphTwistyCollapsed() + " "
	case r.Type == model.EntityTask:
		marker = glyphLink() + " "
	default:
		marker = glyphBullet() + " "
	}

	title := r.Title
	if title == "" {
		title = r.ID
	}
	var suffix string
	if r.Draft {
		suffix = " (draft)"
	}
	if r.Expandable() && !r.Loaded && r.Expanded {
		suffix += " …"
	}

	line := indent + marker + title + suffix

	if selected {
		st := lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true)
		return st.Render(padLine(line, width))
	}

	if r.Draft {
		return lipgloss.NewStyle().Foreground(colorDraftFg).Render(padLine(line, width))
	}
	if r.Type == model.EntityTask || r.Type == model.EntityStep {
		return styleMuted().Render(padLine(line, width))
	}
	return padLine(line, width)
}
