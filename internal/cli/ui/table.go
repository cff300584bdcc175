// Package ui renders command output for terminals
package ui

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/conduit-lang/metadata-validator/internal/state"
	"github.com/fatih/color"
)

const columnGap = "  "

// Column describes one table column
type Column struct {
	Title string
	// State columns hold state names. They print as upper-case labels in
	// the state's color.
	State bool
	// Numeric columns are right aligned
	Numeric bool
}

// Table collects rows and writes them aligned on Flush. Width is measured on
// the plain text, so colored cells line up with plain ones.
type Table struct {
	w       io.Writer
	columns []Column
	rows    [][]string
	noColor bool
}

// NewTable creates a table that writes to w
func NewTable(w io.Writer, noColor bool, columns ...Column) *Table {
	return &Table{w: w, columns: columns, noColor: noColor}
}

// Row appends a row. Missing trailing cells print as "-" and extra cells are dropped.
func (t *Table) Row(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		row[i] = "-"
		if i < len(cells) && cells[i] != "" {
			row[i] = cells[i]
		}
		if t.columns[i].State {
			row[i] = strings.ToUpper(row[i])
		}
	}
	t.rows = append(t.rows, row)
}

// Flush writes the header, a rule and every row
func (t *Table) Flush() error {
	if len(t.columns) == 0 {
		return nil
	}

	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = textWidth(c.Title)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			widths[i] = max(widths[i], textWidth(cell))
		}
	}

	title := paint(t.noColor, color.Bold, color.FgCyan)
	rule := paint(t.noColor, color.FgHiBlack)

	var b strings.Builder
	last := len(t.columns) - 1
	for i, c := range t.columns {
		b.WriteString(title.Sprint(t.align(i, c.Title, widths[i])))
		if i < last {
			b.WriteString(columnGap)
		}
	}
	b.WriteByte('\n')

	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("─", w)
	}
	b.WriteString(rule.Sprint(strings.Join(rules, columnGap)))
	b.WriteByte('\n')

	for _, row := range t.rows {
		for i, cell := range row {
			text := t.align(i, cell, widths[i])
			if t.columns[i].State {
				if c := StateColor(state.MetadataState(strings.ToLower(cell))); c != nil {
					if t.noColor {
						c.DisableColor()
					}
					text = c.Sprint(text)
				}
			}
			b.WriteString(text)
			if i < last {
				b.WriteString(columnGap)
			}
		}
		b.WriteByte('\n')
	}

	_, err := io.WriteString(t.w, b.String())
	return err
}

// align pads cell to width. The last column is left unpadded unless numeric.
func (t *Table) align(column int, cell string, width int) string {
	gap := width - textWidth(cell)
	if gap <= 0 {
		return cell
	}
	if t.columns[column].Numeric {
		return strings.Repeat(" ", gap) + cell
	}
	if column == len(t.columns)-1 {
		return cell
	}
	return cell + strings.Repeat(" ", gap)
}

func textWidth(s string) int {
	return utf8.RuneCountInString(s)
}

func paint(noColor bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if noColor {
		c.DisableColor()
	}
	return c
}

// Detail is one labelled line of a detail block
type Detail struct {
	Label string
	Value string
}

// WriteDetails prints "label: value" lines with the values aligned
func WriteDetails(w io.Writer, noColor bool, details ...Detail) {
	width := 0
	for _, d := range details {
		width = max(width, textWidth(d.Label))
	}

	label := paint(noColor, color.FgCyan)
	for _, d := range details {
		pad := strings.Repeat(" ", width-textWidth(d.Label))
		io.WriteString(w, label.Sprint(d.Label+":")+pad+" "+d.Value+"\n")
	}
}

// Header prints a title with a rule under it
func Header(w io.Writer, title string, noColor bool) {
	io.WriteString(w, paint(noColor, color.Bold, color.FgCyan).Sprint(title)+"\n")
	io.WriteString(w, paint(noColor, color.FgHiBlack).Sprint(strings.Repeat("─", textWidth(title)))+"\n")
}
