package tui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks are the eight bar heights, lowest first.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderSparkline converts a series of rates into a block sparkline of exactly
// width characters, scaled to the largest value in view.
//
// Rules:
//   - Empty values → return width spaces
//   - All zeros or unknown (negative) rates → floor level '▁'
//   - Values longer than width → use last width values
//   - Fewer values than width → left-pad with spaces
func RenderSparkline(values []float64, width int, color lipgloss.Color) string {
	if width <= 0 {
		return ""
	}

	if len(values) == 0 {
		return strings.Repeat(" ", width)
	}

	// Take last `width` values if the slice is longer.
	if len(values) > width {
		values = values[len(values)-width:]
	}

	maxVal := slices.Max(values)

	style := lipgloss.NewStyle().Foreground(color)

	var sb strings.Builder
	// Left-pad with spaces when fewer values than width.
	padLen := width - len(values)
	sb.WriteString(strings.Repeat(" ", padLen))

	for _, v := range values {
		var idx int
		if maxVal > 0 {
			idx = int(v / maxVal * 7)
		}
		// Clamp to [0, 7].
		if idx < 0 {
			idx = 0
		}
		if idx > 7 {
			idx = 7
		}
		sb.WriteRune(sparkBlocks[idx])
	}

	return style.Render(sb.String())
}
