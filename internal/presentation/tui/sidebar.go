package tui

import (
	"strconv"
	"strings"

	"github.com/aretw0/stageflow/pkg/domain"
	"github.com/charmbracelet/lipgloss"
)

var (
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#818cf8")).
			Padding(0, 1)
	currentStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#fbc02d"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#2e7d32"))
	lockedStyle    = lipgloss.NewStyle().Faint(true)
)

// Step markers.
const (
	MarkCurrent   = "▶"
	MarkCompleted = "✓"
	MarkOpen      = "○"
	MarkLocked    = "✗"
)

// Sidebar renders the pipeline progress as a bordered list, one stage per line.
func Sidebar(steps []domain.StageStatus) string {
	lines := make([]string, 0, len(steps))
	for i, st := range steps {
		name := st.Name
		if name == "" {
			name = st.ID
		}
		lines = append(lines, stepLine(i+1, name, st))
	}
	return sidebarStyle.Render(strings.Join(lines, "\n"))
}

func stepLine(n int, name string, st domain.StageStatus) string {
	num := lipgloss.NewStyle().Width(3).Render(strconv.Itoa(n) + ".")
	switch {
	case st.Current:
		return currentStyle.Render(MarkCurrent + " " + num + name)
	case st.Completed:
		return completedStyle.Render(MarkCompleted + " " + num + name)
	case !st.Reachable:
		return lockedStyle.Render(MarkLocked + " " + num + name)
	default:
		return MarkOpen + " " + num + name
	}
}
