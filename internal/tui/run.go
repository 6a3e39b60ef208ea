package tui

import (
	"chalk-cli/internal/logging"
	"chalk-cli/internal/mutate"
	"chalk-cli/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the interactive outline editor and blocks until the user quits.
// The coordinator owns the cache and state; the store persists UI state
// between sessions.
func Run(co *mutate.Coordinator, st store.Store, log *logging.Logger, courseID string) error {
	applyColorProfilePreference()
	applyThemePreference()
	applyGlyphPreference()

	m := newAppModel(co, st, log, courseID)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
