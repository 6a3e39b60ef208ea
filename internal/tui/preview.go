package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"chalk-cli/internal/model"
	"chalk-cli/internal/outline"
)

// syncPreview rebuilds the detail pane for the current selection. Cheap
// enough to run after every cache or selection change; the markdown renderer
// is cached by width.
func (m *appModel) syncPreview() {
	_, detailW, _ := m.paneSizes()
	if detailW <= 0 {
		return
	}
	r, ok := m.selectedRow()
	if !ok {
		m.preview.SetContent(styleMuted().Render("nothing selected"))
		return
	}
	md := m.previewMarkdown(r)
	m.preview.SetContent(renderMarkdown(md, detailW))
}

func (m *appModel) previewMarkdown(r outline.Row) string {
	switch r.Type {
	case model.EntityProject:
		p, ok := m.co.Cache().Project(r.ID)
		if !ok {
			return ""
		}
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", p.Title)
		if p.Description != "" {
			b.WriteString(p.Description + "\n\n")
		}
		state := "unpublished"
		if p.IsPublished {
			state = "published"
		}
		fmt.Fprintf(&b, "- %s\n- XP threshold: %d\n- Lessons: %d\n", state, p.XPThreshold, len(m.co.Cache().Lessons(p.ID)))
		return b.String()

	case model.EntityLesson:
		return m.lessonMarkdown(r.ID)

	case model.EntityTask:
		for _, t := range m.co.Cache().Tasks(r.ParentID) {
			if t.ID == r.ID {
				var b strings.Builder
				fmt.Fprintf(&b, "# %s\n\n", t.Title)
				if t.Description != "" {
					b.WriteString(t.Description + "\n\n")
				}
				if t.Pillar != "" {
					fmt.Fprintf(&b, "- Pillar: %s\n", t.Pillar)
				}
				fmt.Fprintf(&b, "- XP: %d\n", t.XPValue)
				if t.IsRequired {
					b.WriteString("- required\n")
				}
				return b.String()
			}
		}
		return ""

	case model.EntityStep:
		for _, s := range m.co.Cache().Steps(r.ParentID) {
			if s.ID == r.ID {
				return stepMarkdown(s)
			}
		}
		return ""
	}
	return ""
}

func (m *appModel) lessonMarkdown(lessonID string) string {
	l, ok := m.co.Cache().Lesson(lessonID)
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", l.Title)
	if l.IsDraft {
		b.WriteString("*draft*\n\n")
	}
	if len(l.LinkedTaskIDs) > 0 {
		fmt.Fprintf(&b, "Linked tasks: %d\n\n", len(l.LinkedTaskIDs))
	}
	for i, s := range l.Content {
		fmt.Fprintf(&b, "## %d. %s\n\n", i+1, s.Type)
		b.WriteString(stepBody(s))
		b.WriteString("\n")
	}
	return b.String()
}

func stepMarkdown(s model.Step) string {
	return fmt.Sprintf("## %s\n\n%s", s.Type, stepBody(s))
}

// stepBody extracts something readable from the opaque payload. Text steps
// conventionally carry a markdown body; media steps a URL. Anything else
// shows as a fenced JSON block.
func stepBody(s model.Step) string {
	var payload map[string]any
	if err := json.Unmarshal(s.Payload, &payload); err == nil {
		for _, k := range []string{"body", "markdown", "text"} {
			if v, ok := payload[k].(string); ok && strings.TrimSpace(v) != "" {
				return v + "\n"
			}
		}
		if v, ok := payload["url"].(string); ok && strings.TrimSpace(v) != "" {
			return v + "\n"
		}
	}
	if len(s.Payload) == 0 || string(s.Payload) == "{}" {
		return "*(empty)*\n"
	}
	return "```json\n" + prettyPayload(s.Payload) + "\n```\n"
}
