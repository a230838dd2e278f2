// Package brca queries BRCA Exchange for variants in BRCA1 and BRCA2 and
// flattens the records into rows of strings.
package brca

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultVariantSet is the BRCA Exchange variant set on GRCh37.
const DefaultVariantSet = "brca-hg37"

// chromosomes maps supported gene symbols to their reference sequence.
var chromosomes = map[string]string{
	"BRCA1": "chr17",
	"BRCA2": "chr13",
}

// ErrUnknownGene is wrapped by LookupError.
var ErrUnknownGene = errors.New("unknown gene")

// LookupError reports a gene symbol with no reference sequence mapping.
type LookupError struct {
	Gene string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("%v: %q (supported: %s)", ErrUnknownGene, e.Gene, strings.Join(Genes(), ", "))
}

func (e *LookupError) Unwrap() error { return ErrUnknownGene }

// Chromosome returns the reference sequence name for a gene symbol.
// Symbols are matched exactly.
func Chromosome(gene string) (string, error) {
	chrom, ok := chromosomes[gene]
	if !ok {
		return "", &LookupError{Gene: gene}
	}
	return chrom, nil
}

// Genes returns the supported gene symbols in sorted order.
func Genes() []string {
	genes := make([]string, 0, len(chromosomes))
	for g := range chromosomes {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

// ParsePosition converts a coordinate given as text into an integer.
func ParsePosition(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid position %q: %w", s, err)
	}
	return n, nil
}
