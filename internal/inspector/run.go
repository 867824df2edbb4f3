package inspector

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ideamans/playback-proxy-go/internal/inventory"
)

// Run loads the inventory at dir (C1) and opens the inspector TUI over
// it. It never mutates the inventory or holds the process open once the
// user quits.
func Run(dir string) error {
	inv, err := inventory.Load(dir)
	if err != nil {
		return fmt.Errorf("load inventory: %w", err)
	}

	p := tea.NewProgram(NewModel(dir, inv.Resources), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
