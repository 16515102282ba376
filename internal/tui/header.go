package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the top header bar with server, core states and
// timing info.
//
// Layout:
//
//	left:   server URL (or "Connecting to <URL>..." on first connect)
//	center: "● core STATUS" per core (or "● DISCONNECTED  <error>" when offline)
//	right:  "Last: HH:MM:SS  Poll: Ns" (or "Press r to retry" when offline)
func renderHeader(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}

	baseURL := ""
	if app.client != nil {
		baseURL = app.client.BaseURL()
	}

	var left, center, right string

	switch {
	case app.current == nil:
		left = "Connecting to " + baseURL + "..."
		if app.connState == stateDisconnected && app.lastError != nil {
			center = StyleError.Render("● DISCONNECTED  " + shortError(app.lastError))
			right = StyleError.Render("Press r to retry")
		}

	case app.connState == stateDisconnected:
		left = baseURL
		errDisplay := "● DISCONNECTED"
		if app.lastError != nil {
			errDisplay += "  " + shortError(app.lastError)
		}
		center = StyleError.Render(errDisplay)
		right = StyleError.Render("Press r to retry")

	default:
		left = baseURL
		var states []string
		for _, st := range app.current {
			if st == nil {
				continue
			}
			status := strings.ToUpper(st.Status)
			if status == "" {
				status = "UNKNOWN"
			}
			states = append(states, StatusStyle(st.Status).Render("● "+st.Core+" "+status))
		}
		center = strings.Join(states, "  ")

		lastStr := "Connecting..."
		if !app.lastUpdated.IsZero() {
			lastStr = app.lastUpdated.Format("15:04:05")
		}
		right = StyleDim.Render(fmt.Sprintf("Last: %s  Poll: %s", lastStr, formatDuration(app.pollInterval)))
	}

	// StyleHeader has Padding(0, 1) so inner content width = total width - 2.
	innerWidth := width - 2
	spacing := innerWidth - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if spacing < 0 {
		spacing = 0
	}
	leftSpacing := spacing / 2
	rightSpacing := spacing - leftSpacing

	row := left +
		strings.Repeat(" ", leftSpacing) +
		center +
		strings.Repeat(" ", rightSpacing) +
		right

	return StyleHeader.Width(width).Render(row)
}

func shortError(err error) string {
	msg := err.Error()
	if len(msg) > 40 {
		msg = msg[:40] + "..."
	}
	return msg
}

// formatDuration formats a poll interval as a compact string, e.g. "10s" or "2m".
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
