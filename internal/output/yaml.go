package output

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

// YAMLWriter buffers rows and writes them as a YAML sequence of mappings,
// keyed by column name in column order, when flushed.
type YAMLWriter struct {
	w       io.Writer
	columns []string
	doc     yaml.Node
}

// NewYAMLWriter creates a new YAML output writer.
func NewYAMLWriter(w io.Writer, columns []string) *YAMLWriter {
	return &YAMLWriter{
		w:       w,
		columns: columns,
		doc:     yaml.Node{Kind: yaml.SequenceNode},
	}
}

// WriteHeader is a no-op; column names are written as mapping keys.
func (yw *YAMLWriter) WriteHeader() error {
	return nil
}

// Write buffers one row.
func (yw *YAMLWriter) Write(row brca.Row) error {
	if len(row) != len(yw.columns) {
		return fmt.Errorf("yaml: row has %d fields, header has %d", len(row), len(yw.columns))
	}
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i, col := range yw.columns {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: col},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: row[i]},
		)
	}
	yw.doc.Content = append(yw.doc.Content, m)
	return nil
}

// Flush encodes all buffered rows.
func (yw *YAMLWriter) Flush() error {
	enc := yaml.NewEncoder(yw.w)
	enc.SetIndent(2)
	if err := enc.Encode(&yw.doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	yw.doc.Content = nil
	return enc.Close()
}
