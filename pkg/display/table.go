package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// TableWriter builds aligned terminal tables with a fluent interface.
type TableWriter struct {
	writer    *tabwriter.Writer
	headers   []string
	rows      [][]string
	separator string
}

// NewTable creates a table writer that outputs to stdout.
func NewTable() *TableWriter {
	return NewTableTo(os.Stdout)
}

// NewTableTo creates a table writer that outputs to w.
func NewTableTo(w io.Writer) *TableWriter {
	return &TableWriter{
		writer:    tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
		separator: "-",
	}
}

// WithHeaders sets the column headers.
func (t *TableWriter) WithHeaders(headers ...string) *TableWriter {
	t.headers = headers
	return t
}

// AddRow appends one row of data.
func (t *TableWriter) AddRow(values ...string) *TableWriter {
	t.rows = append(t.rows, values)
	return t
}

// AddRows appends multiple rows of data.
func (t *TableWriter) AddRows(rows [][]string) *TableWriter {
	t.rows = append(t.rows, rows...)
	return t
}

// Render writes the table.
func (t *TableWriter) Render() error {
	if len(t.headers) > 0 {
		fmt.Fprintln(t.writer, strings.Join(t.headers, "\t"))
		separators := make([]string, len(t.headers))
		for i, h := range t.headers {
			separators[i] = strings.Repeat(t.separator, len(h))
		}
		fmt.Fprintln(t.writer, strings.Join(separators, "\t"))
	}
	for _, row := range t.rows {
		fmt.Fprintln(t.writer, strings.Join(row, "\t"))
	}
	return t.writer.Flush()
}

// SimpleTable creates and renders a table in one call.
func SimpleTable(headers []string, rows [][]string) error {
	return NewTable().WithHeaders(headers...).AddRows(rows).Render()
}
