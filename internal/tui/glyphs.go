package tui

import (
	"os"
	"strings"
	"sync"
)

// glyphSet holds the outline markers: twisties on containers, a bullet on
// steps, a link marker on tasks (linked into lessons, not owned by them) and
// the status-line rule. The ASCII set keeps the outline legible on terminals
// that render the Unicode glyphs poorly.
type glyphSet struct {
	twistyCollapsed string
	twistyExpanded  string
	bullet          string
	link            string
	hrule           string
}

var (
	glyphsUnicode = glyphSet{
		twistyCollapsed: "▸",
		twistyExpanded:  "▾",
		bullet:          "•",
		link:            "⇄",
		hrule:           "─",
	}
	glyphsASCII = glyphSet{
		twistyCollapsed: ">",
		twistyExpanded:  "v",
		bullet:          "*",
		link:            "~",
		hrule:           "-",
	}

	glyphsMu      sync.RWMutex
	currentGlyphs = glyphsUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CHALK_TUI_GLYPHS"))) {
	case "ascii":
		setGlyphs(glyphsASCII)
	case "", "unicode", "utf8":
		setGlyphs(glyphsUnicode)
	default:
		// Unknown value: ignore.
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

func glyphTwistyCollapsed() string { return glyphs().twistyCollapsed }
func glyphTwistyExpanded() string  { return glyphs().twistyExpanded }
func glyphBullet() string          { return glyphs().bullet }
func glyphLink() string            { return glyphs().link }
func glyphHRule() string           { return glyphs().hrule }
