package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

// Positions of the fixed prefix fields in a row.
const (
	colGene = iota
	colChrom
	colStart
	colEnd
	colRef
	colAlt
)

// VCFWriter writes rows as VCF records. Annotation columns become INFO fields
// and the row's own gene symbol is written as GENE.
type VCFWriter struct {
	w       *bufio.Writer
	columns []string // annotation columns, after the fixed prefix
	idCol   int      // index of the "id" column in the row, or -1
}

// NewVCFWriter creates a new VCF output writer. Annotation columns must map
// to distinct INFO keys, none of them GENE.
func NewVCFWriter(w io.Writer, columns []string) (*VCFWriter, error) {
	var annot []string
	if len(columns) > len(brca.PrefixColumns) {
		annot = columns[len(brca.PrefixColumns):]
	}

	keys := map[string]string{"GENE": "gene symbol"}
	idCol := -1
	for i, c := range annot {
		key := infoKey(c)
		if prev, ok := keys[key]; ok {
			return nil, fmt.Errorf("vcf: column %q and %s both map to INFO key %s", c, prev, key)
		}
		keys[key] = fmt.Sprintf("column %q", c)
		if c == "id" && idCol < 0 {
			idCol = len(brca.PrefixColumns) + i
		}
	}

	return &VCFWriter{
		w:       bufio.NewWriter(w),
		columns: annot,
		idCol:   idCol,
	}, nil
}

// WriteHeader writes the meta-information lines and the #CHROM header.
func (vw *VCFWriter) WriteHeader() error {
	lines := []string{
		"##fileformat=VCFv4.3",
		"##source=brca-query",
		`##INFO=<ID=GENE,Number=1,Type=String,Description="Gene symbol reported by BRCA Exchange">`,
	}
	for _, col := range vw.columns {
		lines = append(lines, fmt.Sprintf(
			`##INFO=<ID=%s,Number=1,Type=String,Description="BRCA Exchange %s">`,
			infoKey(col), col))
	}
	lines = append(lines, "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO")

	for _, line := range lines {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes one row as a VCF line. The row start is 0-based and is
// shifted to the 1-based POS column.
func (vw *VCFWriter) Write(row brca.Row) error {
	if len(row) < len(brca.PrefixColumns) {
		return fmt.Errorf("vcf: row has %d fields, need at least %d", len(row), len(brca.PrefixColumns))
	}
	start, err := strconv.ParseInt(row[colStart], 10, 64)
	if err != nil {
		return fmt.Errorf("vcf: invalid start %q: %w", row[colStart], err)
	}

	var id string
	if vw.idCol >= 0 && vw.idCol < len(row) {
		id = row[vw.idCol]
	}
	if strings.ContainsRune(id, ';') {
		return fmt.Errorf("vcf: invalid ID %q", id)
	}
	fixed := [...]struct{ name, value string }{
		{"CHROM", row[colChrom]},
		{"ID", id},
		{"REF", row[colRef]},
		{"ALT", row[colAlt]},
	}
	for _, f := range fixed {
		if strings.ContainsAny(f.value, " \t\r\n") {
			return fmt.Errorf("vcf: invalid %s %q", f.name, f.value)
		}
	}

	var info strings.Builder
	info.WriteString("GENE=")
	info.WriteString(escapeInfoValue(row[colGene]))
	for i, col := range vw.columns {
		idx := len(brca.PrefixColumns) + i
		if idx >= len(row) || row[idx] == "" {
			continue
		}
		info.WriteByte(';')
		info.WriteString(infoKey(col))
		info.WriteByte('=')
		info.WriteString(escapeInfoValue(row[idx]))
	}

	var lb strings.Builder
	lb.Grow(128)
	lb.WriteString(row[colChrom])
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(start+1, 10))
	lb.WriteByte('\t')
	lb.WriteString(orDot(id))
	lb.WriteByte('\t')
	lb.WriteString(orDot(row[colRef]))
	lb.WriteByte('\t')
	lb.WriteString(orDot(row[colAlt]))
	lb.WriteString("\t.\t.\t")
	lb.WriteString(info.String())
	lb.WriteByte('\n')

	_, err = vw.w.WriteString(lb.String())
	return err
}

// Flush flushes the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// infoKey maps a column name onto the INFO key alphabet [A-Za-z0-9_.].
func infoKey(col string) string {
	var b strings.Builder
	for i, r := range col {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r == '_':
			b.WriteRune(r)
		case (r >= '0' && r <= '9') || r == '.':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// infoEscaper percent-encodes characters with special meaning in VCF 4.3 INFO values.
var infoEscaper = strings.NewReplacer(
	"%", "%25",
	":", "%3A",
	";", "%3B",
	"=", "%3D",
	",", "%2C",
	"\r", "%0D",
	"\n", "%0A",
	"\t", "%09",
)

func escapeInfoValue(s string) string {
	return infoEscaper.Replace(s)
}
