// Package formatter renders aligned console tables.
package formatter

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// minWidth is the narrowest a column is drawn, so the separator reads "---".
const minWidth = 3

// Table is a header plus rows of text cells. Rows may be ragged.
type Table struct {
	Header []string
	Rows   [][]string
}

// NewTable creates a table with the given header.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// Append adds a row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Lines renders the table as pipe-delimited lines padded by display width,
// with a dash separator under the header. An empty table renders nothing.
func (t *Table) Lines() []string {
	if len(t.Header) == 0 && len(t.Rows) == 0 {
		return nil
	}

	colCount := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = minWidth
	}

	measure := func(row []string) {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	measure(t.Header)

	for _, row := range t.Rows {
		measure(row)
	}

	result := make([]string, 0, len(t.Rows)+2)
	result = append(result, renderRow(t.Header, colWidths))

	separator := make([]string, colCount)
	for i, w := range colWidths {
		separator[i] = strings.Repeat("-", w)
	}

	result = append(result, renderRow(separator, colWidths))

	for _, row := range t.Rows {
		result = append(result, renderRow(row, colWidths))
	}

	return result
}

// String renders the table, one line per row, newline-terminated.
func (t *Table) String() string {
	lines := t.Lines()
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

func renderRow(row []string, colWidths []int) string {
	var sb strings.Builder

	sb.WriteString("|")

	for j, width := range colWidths {
		sb.WriteString(" ")

		content := ""
		if j < len(row) {
			content = row[j]
		}

		sb.WriteString(content)

		// Pad with spaces based on display width
		if padding := width - runewidth.StringWidth(content); padding > 0 {
			sb.WriteString(strings.Repeat(" ", padding))
		}

		sb.WriteString(" |")
	}

	return sb.String()
}
