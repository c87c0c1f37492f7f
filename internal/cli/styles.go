package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("#6C63FF")
	colorMuted   = lipgloss.Color("#666666")
	colorSuccess = lipgloss.Color("#2ECC71")
	colorWarning = lipgloss.Color("#F39C12")
	colorError   = lipgloss.Color("#E74C3C")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	runningStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	warnStyle    = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
)

// table renders rows in fixed-width columns. Cells wider than their column are cut.
type table struct {
	widths []int
	header []string
	rows   [][]string
}

func newTable(header ...string) *table {
	t := &table{header: header, widths: make([]int, len(header))}
	for i, h := range header {
		t.widths[i] = lipgloss.Width(h)
	}
	return t
}

func (t *table) add(cells ...string) {
	for i, c := range cells {
		if i < len(t.widths) && lipgloss.Width(c) > t.widths[i] {
			t.widths[i] = lipgloss.Width(c)
		}
	}
	t.rows = append(t.rows, cells)
}

func (t *table) String() string {
	const maxWidth = 40

	var b strings.Builder
	line := func(cells []string, style *lipgloss.Style) {
		for i, c := range cells {
			if i >= len(t.widths) {
				break
			}
			w := t.widths[i]
			if w > maxWidth {
				w = maxWidth
			}
			cell := lipgloss.NewStyle().Width(w + 2).MaxWidth(w + 2).Render(c)
			if style != nil {
				cell = style.Render(cell)
			}
			b.WriteString(cell)
		}
		b.WriteString("\n")
	}
	line(t.header, &headerStyle)
	for _, r := range t.rows {
		line(r, nil)
	}
	return b.String()
}
