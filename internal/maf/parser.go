// Package maf reads query regions from MAF (Mutation Annotation Format) files.
package maf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

// MAF column names used to build regions.
const (
	ColHugoSymbol    = "Hugo_Symbol"
	ColStartPosition = "Start_Position"
	ColEndPosition   = "End_Position"
)

// Parser reads one region per MAF data line.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	lineNumber int
	geneCol    int
	startCol   int
	endCol     int
}

// Open creates a parser for the MAF file at path.
// Supports both plain MAF and gzipped MAF (.maf.gz) files.
func Open(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open maf file: %w", err)
	}
	p, err := NewParser(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	p.file = file
	return p, nil
}

// NewParser creates a parser reading from r, which may be gzip-compressed.
func NewParser(r io.Reader) (*Parser, error) {
	br := bufio.NewReader(r)
	p := &Parser{reader: br}

	// Check for gzip magic number (0x1f, 0x8b)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	}

	if err := p.parseHeader(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// parseHeader skips comment lines and locates the region columns.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return &ParseError{Line: p.lineNumber, Message: "no header line found"}
		}
		if err != nil {
			return fmt.Errorf("read header: %w", err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		p.geneCol, p.startCol, p.endCol = -1, -1, -1
		for i, col := range strings.Split(line, "\t") {
			switch col {
			case ColHugoSymbol:
				p.geneCol = i
			case ColStartPosition:
				p.startCol = i
			case ColEndPosition:
				p.endCol = i
			}
		}

		switch {
		case p.geneCol < 0:
			return &ParseError{Line: p.lineNumber, Message: "missing required column " + ColHugoSymbol}
		case p.startCol < 0:
			return &ParseError{Line: p.lineNumber, Message: "missing required column " + ColStartPosition}
		case p.endCol < 0:
			return &ParseError{Line: p.lineNumber, Message: "missing required column " + ColEndPosition}
		}
		return nil
	}
}

// Next returns the region of the next data line, or nil at end of file.
// MAF positions are 1-based and are shifted to the 0-based coordinates
// the variant service uses.
func (p *Parser) Next() (*brca.Region, error) {
	for {
		line, err := p.readLine()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", p.lineNumber, err)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= max(p.geneCol, p.startCol, p.endCol) {
			return nil, &ParseError{
				Line:    p.lineNumber,
				Message: fmt.Sprintf("expected at least %d columns, got %d", max(p.geneCol, p.startCol, p.endCol)+1, len(fields)),
			}
		}

		start, err := strconv.ParseInt(strings.TrimSpace(fields[p.startCol]), 10, 64)
		if err != nil || start < 1 {
			return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid %s %q", ColStartPosition, fields[p.startCol])}
		}
		end, err := strconv.ParseInt(strings.TrimSpace(fields[p.endCol]), 10, 64)
		if err != nil || end < start {
			return nil, &ParseError{Line: p.lineNumber, Message: fmt.Sprintf("invalid %s %q", ColEndPosition, fields[p.endCol])}
		}

		return &brca.Region{
			Gene:  strings.TrimSpace(fields[p.geneCol]),
			Start: start - 1,
			End:   end - 1,
		}, nil
	}
}

// LineNumber returns the current line number.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

// Close closes the underlying file, if any.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	p.lineNumber++
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadRegions reads all regions from p in file order. Duplicate regions are
// dropped, and regions whose gene fails keep are counted as skipped.
func ReadRegions(p *Parser, keep func(gene string) bool) (regions []brca.Region, skipped int, err error) {
	seen := make(map[brca.Region]bool)
	for {
		r, err := p.Next()
		if err != nil {
			return nil, 0, err
		}
		if r == nil {
			return regions, skipped, nil
		}
		if keep != nil && !keep(r.Gene) {
			skipped++
			continue
		}
		if seen[*r] {
			continue
		}
		seen[*r] = true
		regions = append(regions, *r)
	}
}

// ParseError represents an error during MAF parsing with line context.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("maf parse error at line %d: %s", e.Line, e.Message)
}
