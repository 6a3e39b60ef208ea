package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// normalizePane forces s to exactly width columns (ANSI-aware) and height
// lines. Split-pane rendering with lipgloss.JoinHorizontal is only stable
// when both panes are rectangular.
func normalizePane(s string, width, height int) string {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	lines := strings.Split(s, "\n")

	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	for i := range lines {
		lines[i] = padLine(lines[i], width)
	}

	return strings.Join(lines, "\n")
}

// padLine truncates or pads one line to exactly width columns, ANSI-aware.
func padLine(ln string, width int) string {
	// Fast path: skip StringWidth on extremely long lines. A raw string this
	// large is visually wider than any pane; cut early so the width
	// computations below stay bounded.
	if width > 0 && len(ln) > 8192 {
		if width == 1 {
			ln = xansi.Cut(ln, 0, 1)
		} else {
			ln = xansi.Cut(ln, 0, width-1) + "…"
		}
	}

	w := xansi.StringWidth(ln)
	if w > width {
		if width <= 0 {
			return ""
		}
		if width == 1 {
			ln = xansi.Cut(ln, 0, 1)
		} else {
			ln = xansi.Cut(ln, 0, width-1) + "…"
		}
		w = xansi.StringWidth(ln)
	}
	if w < width {
		ln += strings.Repeat(" ", width-w)
	}
	return ln
}
