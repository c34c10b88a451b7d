package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column describes one column of a Listing.
type Column struct {
	Title string
	// Right aligns the column to the right edge, for counts.
	Right bool
	// Max truncates longer cells with an ellipsis. Zero keeps them whole.
	Max int
	// Status colors cells by request or operation status.
	Status bool
}

// Listing renders the rows a CLI list command prints: a title, aligned
// columns and a total line.
type Listing struct {
	Title   string
	Columns []Column
	Rows    [][]string
	// Empty is shown instead of the table when there are no rows.
	Empty string
	// Total labels the footer count, e.g. "categories". Empty hides it.
	Total string
}

// NewListing starts a listing with plain left-aligned columns.
func NewListing(title string, headers ...string) *Listing {
	l := &Listing{Title: title}
	for _, h := range headers {
		l.Columns = append(l.Columns, Column{Title: h})
	}
	return l
}

// Column returns the named column for tweaking, or nil.
func (l *Listing) Column(title string) *Column {
	for i := range l.Columns {
		if l.Columns[i].Title == title {
			return &l.Columns[i]
		}
	}
	return nil
}

// AddRow appends a row. Missing cells render blank; extra cells are dropped.
func (l *Listing) AddRow(cells ...string) {
	row := make([]string, len(l.Columns))
	copy(row, cells)
	for i, c := range l.Columns {
		row[i] = truncate(row[i], c.Max)
	}
	l.Rows = append(l.Rows, row)
}

// View renders the listing using the provided styles.
func (l *Listing) View(styles Styles) string {
	if len(l.Rows) == 0 {
		if l.Empty == "" {
			return ""
		}
		return styles.Muted.Render(l.Empty) + "\n"
	}

	widths := make([]int, len(l.Columns))
	for i, c := range l.Columns {
		widths[i] = lipgloss.Width(c.Title)
	}
	for _, row := range l.Rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var sb strings.Builder
	if l.Title != "" {
		sb.WriteString(styles.Title.Render(l.Title) + "\n")
	}

	sep := styles.Muted.Render(" │ ")
	header := make([]string, len(l.Columns))
	for i, c := range l.Columns {
		header[i] = cell(styles.Bold, c, widths[i], c.Title)
	}
	sb.WriteString(strings.Join(header, sep) + "\n")

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("─", w)
	}
	sb.WriteString(styles.Muted.Render(strings.Join(rule, "─┼─")) + "\n")

	for _, row := range l.Rows {
		out := make([]string, len(row))
		for i, v := range row {
			style := styles.Body
			if l.Columns[i].Status {
				style = styles.StatusStyle(strings.ToLower(v))
			}
			out[i] = cell(style, l.Columns[i], widths[i], v)
		}
		sb.WriteString(strings.Join(out, sep) + "\n")
	}

	if l.Total != "" {
		sb.WriteString(styles.Muted.Render(fmt.Sprintf("%d %s", len(l.Rows), l.Total)) + "\n")
	}
	return sb.String()
}

func cell(style lipgloss.Style, c Column, width int, v string) string {
	align := lipgloss.Left
	if c.Right {
		align = lipgloss.Right
	}
	return style.Width(width).Align(align).Render(v)
}

func truncate(s string, n int) string {
	if n <= 0 || lipgloss.Width(s) <= n {
		return s
	}
	r := []rune(s)
	if n == 1 || len(r) <= n {
		return string(r[:min(n, len(r))])
	}
	return string(r[:n-1]) + "…"
}
