package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sells-group/preview-cli/internal/orchestrator"
)

// Start runs the watch surface until the user quits. Any running job is
// cancelled on exit.
func Start(ctx context.Context, orch *orchestrator.Orchestrator) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel(ctx, orch)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	model.surface.Cancel()
	return err
}
