package tui

import (
	"fmt"

	"resumechat/internal/api"
	"resumechat/internal/config"
	"resumechat/internal/identity"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the interactive chat view inline. A nil client still lets the
// user log in; every exchange then fails with the standard error message.
func Run(version string, cfg *config.Config, gate *identity.Gate, client api.ChatAPI) error {
	m := initialModel(version, cfg, client, gate)

	p := tea.NewProgram(m)
	defer close(m.done)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}
