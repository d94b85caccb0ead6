package notifier

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nateberkopec/cardnudge/internal/badge"
)

const cardWidth = 44

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1).
			Width(cardWidth)

	starStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	messageStyle = lipgloss.NewStyle().Bold(true)
	statusStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	imageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	trayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func renderView(m *Model) string {
	if m.quitting {
		return ""
	}
	if !m.Visible() {
		return renderTray(m)
	}
	return renderCard(m.card)
}

func renderTray(m *Model) string {
	line := trayStyle.Render(badge.Label(m.count))
	if m.paused {
		line += helpStyle.Render("  reviewing")
	}
	return line + "\n" + helpStyle.Render("[enter] show • [c] close")
}

func renderCard(card Card) string {
	var lines []string
	lines = append(lines, starStyle.Render("★")+" "+messageStyle.Render(card.Message))

	switch {
	case card.Image != "" && card.ImageMissing:
		lines = append(lines, missingStyle.Render("[image not found: "+filepath.Base(card.Image)+"]"))
	case card.Image != "":
		lines = append(lines, imageStyle.Render("[image: "+filepath.Base(card.Image)+"]"))
	}

	if card.Status != "" {
		lines = append(lines, "", statusStyle.Render(card.Status))
	}
	return cardStyle.Render(strings.Join(lines, "\n"))
}
