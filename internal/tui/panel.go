package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dm/solrctl/internal/format"
	"github.com/dm/solrctl/internal/model"
)

// renderPanels renders one card per monitored core, side by side on wide
// terminals and stacked below 80 columns. Returns empty string until the
// first poll succeeds.
func renderPanels(app *App) string {
	if app.current == nil {
		return ""
	}

	width := app.width
	if width <= 0 {
		width = 80
	}

	n := len(app.current)
	if n == 0 {
		return ""
	}
	stacked := width < 80 || n == 1

	// Each card renders at cardWidth + 2 columns once the border is added.
	cardWidth := width - 2
	if !stacked {
		cardWidth = width/n - 2
	}
	if cardWidth < 24 {
		cardWidth = 24
	}

	cards := make([]string, 0, n)
	for i, st := range app.current {
		var (
			rates   model.ProgressRates
			history *model.ProgressHistory
		)
		if i < len(app.rates) {
			rates = app.rates[i]
		}
		if i < len(app.history) {
			history = app.history[i]
		}
		cards = append(cards, renderCoreCard(st, rates, history, cardWidth))
	}

	if stacked {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

// renderCoreCard renders a single core.
//
//	╭──────────────────────────────╮
//	│ stage                   BUSY │
//	│ Version     1336041600000    │
//	│ Documents   1,204,332        │
//	│ Processed   10,400           │
//	│ Fetched     10,512           │
//	│ Elapsed     0:2:10.500       │
//	│ Rows/s      84.1 /s ▁▂▃▅▇    │
//	│ Docs/s      80.0 /s ▁▂▃▅▆    │
//	╰──────────────────────────────╯
func renderCoreCard(st *model.CoreStatus, rates model.ProgressRates, history *model.ProgressHistory, cardWidth int) string {
	// Content width excludes the horizontal padding.
	inner := cardWidth - 2
	if inner < 1 {
		inner = 1
	}

	if st == nil {
		return cardStyle(cardWidth).Render(StyleDim.Render("no data"))
	}

	status := strings.ToUpper(st.Status)
	if status == "" {
		status = "UNKNOWN"
	}
	badge := StatusStyle(st.Status).Render(status)
	name := lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Render(st.Core)
	gap := inner - lipgloss.Width(name) - lipgloss.Width(badge)
	if gap < 1 {
		gap = 1
	}
	title := name + strings.Repeat(" ", gap) + badge

	elapsed := st.TimeElapsed
	if st.IsIdle() && st.TimeTaken != "" {
		elapsed = st.TimeTaken
	}

	var rowsSpark, docsSpark []float64
	if history != nil {
		rowsSpark = history.Values("rowsPerSec")
		docsSpark = history.Values("docsPerSec")
	}
	sparkWidth := inner - 12 - 12
	if sparkWidth < 0 {
		sparkWidth = 0
	}

	lines := []string{
		title,
		field("Version", orDash(st.IndexVersion), colorPurple),
		field("Documents", format.FormatNumber(st.DocumentCount), colorBlue),
		field("Processed", format.FormatNumber(st.DocumentsProcessed), colorCyan),
		field("Fetched", orDash(st.RowsFetched), colorCyan),
		field("Elapsed", orDash(elapsed), colorWhite),
		rateField("Rows/s", rates.RowsPerSec, rowsSpark, sparkWidth, colorGreen),
		rateField("Docs/s", rates.DocsPerSec, docsSpark, sparkWidth, colorGreen),
	}
	if st.IsRolledback() {
		lines = append(lines, StyleError.Render("Rolled back "+st.Rolledback))
	}

	return cardStyle(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func cardStyle(cardWidth int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorGray).
		Padding(0, 1).
		Width(cardWidth)
}

func field(label, value string, color lipgloss.Color) string {
	return StyleLabel.Render(label) + lipgloss.NewStyle().Foreground(color).Render(value)
}

func rateField(label string, rate float64, spark []float64, sparkWidth int, color lipgloss.Color) string {
	value := lipgloss.NewStyle().Bold(true).Foreground(color).Width(12).Render(format.FormatRate(rate))
	return StyleLabel.Render(label) + value + RenderSparkline(spark, sparkWidth, color)
}

func orDash(s string) string {
	if s == "" {
		return "---"
	}
	return s
}
