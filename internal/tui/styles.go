package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hiveworks/hiveflow/pkg/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFC857"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#45B7D1"))
)

// statusStyle returns the render style for one task status.
func statusStyle(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.TaskStatusInProgress:
		return progressStyle
	case models.TaskStatusCompleted:
		return okStyle
	case models.TaskStatusFailed:
		return errStyle
	case models.TaskStatusCancelled:
		return dimStyle
	default:
		return pendingStyle
	}
}
