package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agbru/optix/internal/ui"
)

// Dashboard styles, rebuilt from the ui theme by initStyles.
var (
	panelStyle       lipgloss.Style
	titleStyle       lipgloss.Style
	dimStyle         lipgloss.Style
	labelStyle       lipgloss.Style
	valueStyle       lipgloss.Style
	cpuStyle         lipgloss.Style
	memStyle         lipgloss.Style
	footerKeyStyle   lipgloss.Style
	statusLiveStyle  lipgloss.Style
	statusPauseStyle lipgloss.Style
	statusErrorStyle lipgloss.Style
)

func init() {
	initStyles()
}

// initStyles is called again from Run after the theme is set from flags.
func initStyles() {
	t := ui.GetCurrentTUITheme()

	panelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Foreground(t.Text).
		Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(t.Accent)
	dimStyle = lipgloss.NewStyle().Foreground(t.Dim)
	labelStyle = lipgloss.NewStyle().Foreground(t.Dim).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	cpuStyle = lipgloss.NewStyle().Foreground(t.Accent)
	memStyle = lipgloss.NewStyle().Foreground(t.Warning)
	footerKeyStyle = lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	statusLiveStyle = lipgloss.NewStyle().Foreground(t.Success).Bold(true)
	statusPauseStyle = lipgloss.NewStyle().Foreground(t.Warning).Bold(true)
	statusErrorStyle = lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}
