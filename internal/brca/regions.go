package brca

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Region is one gene/range query.
type Region struct {
	Gene  string
	Start int64
	End   int64
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Gene, r.Start, r.End)
}

// ReadRegions parses a tab-separated regions file.
// The header must name "gene", "start" and "end" columns (case-insensitive,
// an optional leading '#' is ignored). Blank lines are skipped.
func ReadRegions(r io.Reader) ([]Region, error) {
	scanner := bufio.NewScanner(r)

	// Read header to find column indices
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading regions: %w", err)
		}
		return nil, fmt.Errorf("regions: empty file")
	}
	header := strings.Split(strings.TrimPrefix(scanner.Text(), "#"), "\t")

	geneIdx, startIdx, endIdx := -1, -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "gene":
			geneIdx = i
		case "start":
			startIdx = i
		case "end":
			endIdx = i
		}
	}
	if geneIdx < 0 {
		return nil, fmt.Errorf("regions: missing 'gene' column")
	}
	if startIdx < 0 {
		return nil, fmt.Errorf("regions: missing 'start' column")
	}
	if endIdx < 0 {
		return nil, fmt.Errorf("regions: missing 'end' column")
	}
	width := max(geneIdx, startIdx, endIdx) + 1

	var regions []Region
	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < width {
			return nil, fmt.Errorf("regions line %d: expected at least %d fields, got %d", lineNum, width, len(fields))
		}

		start, err := ParsePosition(fields[startIdx])
		if err != nil {
			return nil, fmt.Errorf("regions line %d: %w", lineNum, err)
		}
		end, err := ParsePosition(fields[endIdx])
		if err != nil {
			return nil, fmt.Errorf("regions line %d: %w", lineNum, err)
		}
		regions = append(regions, Region{
			Gene:  strings.TrimSpace(fields[geneIdx]),
			Start: start,
			End:   end,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading regions: %w", err)
	}

	return regions, nil
}
