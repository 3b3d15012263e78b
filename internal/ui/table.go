package ui

// table.go holds the bubbles/table helpers: column math, construction and
// rendering with a full-width selection highlight.

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/infernoscraper/inferno/internal/models"
	"github.com/infernoscraper/inferno/internal/normalize"
)

// ColumnSpec defines a table column with flexible or fixed width.
type ColumnSpec struct {
	Title      string
	MinWidth   int // Minimum width (0 = no minimum)
	FixedWidth int // If > 0, use this exact width (ignores FlexRatio)
	FlexRatio  int // Relative ratio for flexible columns (0 = fixed-only)
}

// CalculateColumns computes column widths from specs. Flexible columns split
// the space left after fixed columns by ratio, respecting minimums.
func CalculateColumns(specs []ColumnSpec, totalWidth int) []table.Column {
	if totalWidth < 50 {
		totalWidth = 50
	}

	fixedTotal := 0
	flexTotal := 0
	for _, s := range specs {
		if s.FixedWidth > 0 {
			fixedTotal += s.FixedWidth
		} else {
			flexTotal += s.FlexRatio
		}
	}
	// bubbles pads every cell by one column on each side
	remaining := totalWidth - fixedTotal - 2*len(specs)
	if remaining < 0 {
		remaining = 0
	}

	columns := make([]table.Column, len(specs))
	for i, s := range specs {
		var width int
		if s.FixedWidth > 0 {
			width = s.FixedWidth
		} else if flexTotal > 0 {
			width = remaining * s.FlexRatio / flexTotal
		}
		if s.MinWidth > 0 && width < s.MinWidth {
			width = s.MinWidth
		}
		columns[i] = table.Column{Title: s.Title, Width: width}
	}
	return columns
}

// ResultColumns returns column specs for the result table
func ResultColumns() []ColumnSpec {
	return []ColumnSpec{
		{Title: "#", FixedWidth: 5},
		{Title: "Inzerát", FlexRatio: 60, MinWidth: 30},
		{Title: "Kategória", FlexRatio: 18, MinWidth: 10},
		{Title: "Mesto", FlexRatio: 22, MinWidth: 10},
		{Title: "PSČ", FixedWidth: 6},
		{Title: "Dátum", FixedWidth: 10},
	}
}

// ResultRows converts records to table rows in order
func ResultRows(records []models.ResultRecord) []table.Row {
	rows := make([]table.Row, len(records))
	for i, r := range records {
		day := r.RawDate
		if r.HasDay() {
			day = normalize.FormatDay(r.Day)
		}
		rows[i] = table.Row{strconv.Itoa(i + 1), r.URL, r.Subcat, r.City, r.ZipCode, day}
	}
	return rows
}

// InitTable creates and configures a table with the standard styling
func InitTable(columns []table.Column, rows []table.Row, layout Layout) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(layout.TableHeight),
	)
	ApplyTableStyles(&t)
	t.GotoTop()
	return t
}

// RenderTableWithSelection renders a bubbles table with a full-width
// selection highlight. Line 0 of the table output is the header; data rows
// follow, already scrolled to the viewport.
func RenderTableWithSelection(t table.Model, layout Layout) string {
	lines := strings.Split(t.View(), "\n")
	result := make([]string, 0, len(lines)+1)

	cursor := t.Cursor()
	height := t.Height()
	totalRows := len(t.Rows())

	start := 0
	if totalRows > height && cursor >= height {
		start = cursor - height + 1
		if maxStart := totalRows - height; start > maxStart {
			start = maxStart
		}
	}
	visibleCursor := cursor - start

	for i, line := range lines {
		if i == 0 {
			result = append(result, NormalStyle.Render(line))
			result = append(result, FullWidthDivider(layout.InnerWidth))
			continue
		}

		if i-1 == visibleCursor && totalRows > 0 {
			clean := ansi.Strip(line)
			if w := StringWidth(clean); w < layout.InnerWidth {
				clean += strings.Repeat(" ", layout.InnerWidth-w)
			} else if w > layout.InnerWidth {
				clean = ansi.Truncate(clean, layout.InnerWidth, "")
			}
			result = append(result, SelectedStyle.Render(clean))
			continue
		}
		result = append(result, NormalStyle.Render(line))
	}
	return strings.Join(result, "\n")
}

// FullWidthDivider returns a horizontal divider spanning the inner width.
func FullWidthDivider(innerWidth int) string {
	return strings.Repeat("─", innerWidth)
}

// ViewHeader renders title + subtitle + full-width divider.
func ViewHeader(title, subtitle string, innerWidth int) string {
	var b strings.Builder
	b.WriteString(RenderTitle(title))
	if subtitle != "" {
		b.WriteString("  ")
		b.WriteString(subtitle)
	}
	b.WriteString("\n")
	b.WriteString(FullWidthDivider(innerWidth))
	b.WriteString("\n")
	return b.String()
}

// StringWidth returns the display width of s, ignoring escape codes
func StringWidth(s string) int {
	return ansi.StringWidth(s)
}
