package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/taxtab/internal/aggregate"
)

// Run shows tables in an interactive viewer until the user quits or ctx is canceled.
func Run(ctx context.Context, tables ...*aggregate.Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to show")
	}

	program := tea.NewProgram(
		NewModel(tables, Default),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
