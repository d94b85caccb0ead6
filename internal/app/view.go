package app

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nateberkopec/cardnudge/internal/badge"
	"github.com/nateberkopec/cardnudge/internal/content"
)

var (
	badgeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))

	settingsStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("247"))

	rowStyle = lipgloss.NewStyle()

	selectedRowStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("57")).
				Foreground(lipgloss.Color("230"))

	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)

	statusNeutralStyle = lipgloss.NewStyle()
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))

	formStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("105")).Padding(0, 1)

	tableGap = " │ "
)

var tableColumns = []struct {
	Title  string
	Weight float64
	Min    int
}{
	{"#", 0.05, 3},
	{"Message", 0.65, 20},
	{"Image", 0.30, 10},
}

func renderView(m *Model) string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}

	var out []string
	out = append(out, renderHeader(m))
	out = append(out, renderSettingsLine(m))
	if m.form != nil {
		out = append(out, formStyle.Render(m.form.View()))
		out = append(out, renderStatusLine(m))
		return strings.Join(out, "\n")
	}
	out = append(out, renderPairsTable(m))
	out = append(out, renderStatusLine(m))
	out = append(out, m.help.View(m.keys))

	return strings.Join(out, "\n")
}

func renderHeader(m *Model) string {
	text := badgeStyle.Render(badge.Label(m.progress.Count)) + "  " + titleStyle.Render(m.progress.Title)
	return pad(text, m.width)
}

func renderSettingsLine(m *Model) string {
	s := m.state.Settings
	notifications := "off"
	if s.NotificationEnabled {
		notifications = fmt.Sprintf("every %d min", s.NotificationIntervalMinutes)
	}
	review := "idle"
	if m.state.InReview {
		review = "reviewing"
	}
	notifier := "closed"
	if m.state.NotifierActive {
		notifier = "open"
	}
	text := fmt.Sprintf("reminders: %s • category: %s • %s • notifier: %s",
		notifications, s.SelectedCategory, review, notifier)
	return settingsStyle.Width(m.width).Render(pad(text, m.width))
}

func renderPairsTable(m *Model) string {
	widths := calculateColumnWidths(m.width)

	builder := strings.Builder{}
	builder.WriteString(renderRow(tableHeaders(), widths, headerStyle))

	linesUsed := 1
	if len(m.pairs) == 0 {
		builder.WriteString("\n")
		builder.WriteString(missingStyle.Render(pad("No messages yet. Press a to add one.", m.width)))
		linesUsed++
	}

	start := m.scrollOffset
	end := min(start+m.dataRows(), len(m.pairs))
	for idx := start; idx < end; idx++ {
		builder.WriteString("\n")
		rowStr := renderRow(tableRowData(idx, m.pairs[idx], m.marked[m.pairs[idx].ID]), widths, rowStyle)
		if idx == m.selectedIndex {
			rowStr = selectedRowStyle.Width(m.width).Render(rowStr)
		}
		builder.WriteString(rowStr)
		linesUsed++
	}

	for linesUsed < m.listArea.height {
		builder.WriteString("\n")
		builder.WriteString(strings.Repeat(" ", max(0, m.width)))
		linesUsed++
	}

	return builder.String()
}

func renderStatusLine(m *Model) string {
	msg := m.status.text

	style := statusNeutralStyle
	switch m.status.kind {
	case statusError:
		style = statusErrorStyle
	case statusSuccess:
		style = statusSuccessStyle
	}

	if m.refreshing {
		label := fmt.Sprintf("counting cards %s", m.spin.View())
		if msg == "" {
			msg = label
		} else {
			msg = fmt.Sprintf("%s   %s", msg, label)
		}
	}

	return style.Width(m.width).Render(pad(msg, m.width))
}

func tableHeaders() []string {
	titles := make([]string, len(tableColumns))
	for i, c := range tableColumns {
		titles[i] = c.Title
	}
	return titles
}

func tableRowData(idx int, pair content.Pair, marked bool) []string {
	message := strings.Join(strings.Fields(pair.Message), " ")
	if message == "" {
		message = "(No message)"
	}
	image := ""
	if pair.ImageReference != "" {
		image = filepath.Base(pair.ImageReference)
		if !pair.HasImage() {
			image += " (missing)"
		}
	}
	num := strconv.Itoa(idx + 1)
	if marked {
		num = "✓" + num
	}
	return []string{num, message, image}
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	// Only include columns with non-zero widths
	var parts []string
	visibleCols := 0
	for i, cell := range cells {
		if widths[i] > 0 {
			cell = truncate(cell, widths[i])
			parts = append(parts, lipgloss.NewStyle().Width(widths[i]).Render(cell))
			visibleCols++
		}
	}
	row := strings.Join(parts, tableGap)
	rowWidth := lipgloss.Width(row)
	target := 0
	for _, w := range widths {
		if w > 0 {
			target += w
		}
	}
	if visibleCols > 0 {
		target += (visibleCols - 1) * lipgloss.Width(tableGap)
	}
	if rowWidth < target {
		row += strings.Repeat(" ", target-rowWidth)
	}
	return style.Render(row)
}

// calculateColumnWidths drops columns from the right until the rest fit at
// their minimum widths, then shares the slack by weight.
func calculateColumnWidths(total int) []int {
	if total <= 0 {
		total = 80
	}

	widths := make([]int, len(tableColumns))
	gapWidth := lipgloss.Width(tableGap)

	for numCols := len(tableColumns); numCols >= 1; numCols-- {
		available := total - (numCols-1)*gapWidth
		minRequired := 0
		totalWeight := 0.0
		for i := 0; i < numCols; i++ {
			minRequired += tableColumns[i].Min
			totalWeight += tableColumns[i].Weight
		}
		if available < minRequired {
			continue
		}

		sum := 0
		for i := 0; i < numCols; i++ {
			col := tableColumns[i]
			width := max(int(float64(available)*col.Weight/totalWeight), col.Min)
			widths[i] = width
			sum += width
		}
		if diff := available - sum; diff > 0 {
			widths[numCols-1] += diff
		}
		for i := numCols; i < len(tableColumns); i++ {
			widths[i] = 0
		}
		return widths
	}

	widths[0] = max(1, total)
	return widths
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	if width <= 1 {
		return lipgloss.NewStyle().MaxWidth(1).Render(text)
	}
	trimmed := lipgloss.NewStyle().MaxWidth(width - 1).Render(text)
	return trimmed + "…"
}

func pad(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
