package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mentorloop/internal/ui/theme"
)

// Bar renders a horizontal bar for a value in [0, 1], followed by a
// percentage when showPercent is set. The bar fills width cells minus the
// label and percentage.
func Bar(label string, value float64, showPercent bool, width int) string {
	var b strings.Builder
	if label != "" {
		b.WriteString(theme.Label.Render(label))
	}

	percentWidth := 0
	if showPercent {
		percentWidth = 6
	}
	cells := width - lipgloss.Width(b.String()) - percentWidth
	if cells < 4 {
		cells = 4
	}

	filled := int(float64(cells) * value)
	filled = max(0, min(filled, cells))

	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", cells-filled)))
	if showPercent {
		b.WriteString(theme.Hint.Render(fmt.Sprintf(" %4d%%", int(value*100))))
	}
	return b.String()
}
