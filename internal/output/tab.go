// Package output provides row output formatters.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

// RowWriter defines the interface for writing query rows.
type RowWriter interface {
	WriteHeader() error
	Write(row brca.Row) error
	Flush() error
}

// Formats lists the supported output formats.
var Formats = []string{"tab", "vcf", "yaml"}

// NewWriter returns a RowWriter for the named format. columns is the full
// row header, as returned by (*brca.Adapter).Columns.
func NewWriter(format string, w io.Writer, columns []string) (RowWriter, error) {
	switch format {
	case "tab":
		return NewTabWriter(w, columns), nil
	case "vcf":
		return NewVCFWriter(w, columns)
	case "yaml":
		return NewYAMLWriter(w, columns), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (supported: %s)", format, strings.Join(Formats, ", "))
	}
}

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single row. Empty cells are written as "-".
func (tw *TabWriter) Write(row brca.Row) error {
	values := make([]string, len(row))
	for i, v := range row {
		if v == "" {
			v = "-"
		}
		values[i] = v
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
