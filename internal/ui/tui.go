// ABOUTME: TUI initialization and control
// ABOUTME: Wraps bubbletea program for the session monitor
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run builds the TUI program. The caller starts its event loop.
func Run(ctrl *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(ctrl), tea.WithAltScreen())
	return p, nil
}
