package brca

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/brca-exchange-query/internal/ga4gh"
)

// GeneSymbolField is the info field holding the record's own gene symbol.
const GeneSymbolField = "Gene_Symbol"

// DefaultColumns are the info fields appended to every row.
var DefaultColumns = []string{"id", "Pathogenicity_all"}

// PrefixColumns names the fixed positional fields at the start of each row.
var PrefixColumns = []string{
	"Gene_Symbol",
	"Reference_Name",
	"Start",
	"End",
	"Reference_Bases",
	"Alternate_Bases",
}

var (
	// ErrMissingField is returned when a record lacks a required info field.
	ErrMissingField = errors.New("missing required info field")
	// ErrNoAlternateBases is returned when a record has no alternate allele.
	ErrNoAlternateBases = errors.New("record has no alternate bases")
	// ErrInvalidRange is returned for negative or inverted coordinates.
	ErrInvalidRange = errors.New("invalid coordinate range")
)

// Row is one flattened variant record.
type Row []string

// VariantSearcher runs a GA4GH variant search.
type VariantSearcher interface {
	SearchVariants(ctx context.Context, req ga4gh.SearchVariantsRequest) (ga4gh.VariantReader, error)
}

// Adapter turns gene/range queries into variant searches and flattens the results.
// It holds no mutable state and is safe for concurrent use.
type Adapter struct {
	searcher   VariantSearcher
	variantSet string
	columns    []string
	logger     *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithColumns sets the info fields appended after the positional prefix.
func WithColumns(cols []string) AdapterOption {
	return func(a *Adapter) {
		a.columns = append([]string(nil), cols...)
	}
}

// WithVariantSet overrides the variant set searched.
func WithVariantSet(id string) AdapterOption {
	return func(a *Adapter) { a.variantSet = id }
}

// WithLogger sets the logger for warning and debug messages.
func WithLogger(l *zap.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter creates an adapter backed by the given searcher.
func NewAdapter(s VariantSearcher, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		searcher:   s,
		variantSet: DefaultVariantSet,
		columns:    append([]string(nil), DefaultColumns...),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Columns returns the full header for rows produced by this adapter.
func (a *Adapter) Columns() []string {
	cols := make([]string, 0, len(PrefixColumns)+len(a.columns))
	cols = append(cols, PrefixColumns...)
	return append(cols, a.columns...)
}

// AnnotationColumns returns the configured info fields.
func (a *Adapter) AnnotationColumns() []string {
	return append([]string(nil), a.columns...)
}

// VariantSet returns the variant set id searched.
func (a *Adapter) VariantSet() string {
	return a.variantSet
}

// Query searches variants of gene between start and end, both inclusive,
// and returns one row per record in result order.
//
// Errors from the searcher are returned unchanged.
func (a *Adapter) Query(ctx context.Context, gene string, start, end int64) ([]Row, error) {
	chrom, err := Chromosome(gene)
	if err != nil {
		return nil, err
	}
	// end is sent as end+1, so MaxInt64 has no representable exclusive bound.
	if start < 0 || end < start || end == math.MaxInt64 {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, start, end)
	}

	it, err := a.searcher.SearchVariants(ctx, ga4gh.SearchVariantsRequest{
		ReferenceName: chrom,
		VariantSetID:  a.variantSet,
		Start:         start,
		End:           end + 1,
	})
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		v, err := it.Next()
		if err != nil {
			return nil, err
		}
		if v == nil {
			break
		}

		row, err := a.flatten(v)
		if err != nil {
			return nil, err
		}
		if row[0] != gene {
			a.logger.Warn("record gene differs from query gene",
				zap.String("query_gene", gene),
				zap.String("record_gene", row[0]),
				zap.String("reference_name", v.ReferenceName),
				zap.Int64("start", int64(v.Start)))
		}
		rows = append(rows, row)
	}

	a.logger.Debug("query complete",
		zap.String("gene", gene),
		zap.Int64("start", start),
		zap.Int64("end", end),
		zap.Int("rows", len(rows)))

	return rows, nil
}

// QueryStrings is Query with coordinates given as text.
func (a *Adapter) QueryStrings(ctx context.Context, gene, start, end string) ([]Row, error) {
	s, err := ParsePosition(start)
	if err != nil {
		return nil, err
	}
	e, err := ParsePosition(end)
	if err != nil {
		return nil, err
	}
	return a.Query(ctx, gene, s, e)
}

// flatten builds the positional prefix followed by the annotation columns.
// Only the annotation columns may be absent; they become "".
func (a *Adapter) flatten(v *ga4gh.Variant) (Row, error) {
	gene, ok, err := v.FirstString(GeneSymbolField)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s at %s:%d", ErrMissingField, GeneSymbolField, v.ReferenceName, v.Start)
	}
	if len(v.AlternateBases) == 0 {
		return nil, fmt.Errorf("%w: %s:%d", ErrNoAlternateBases, v.ReferenceName, v.Start)
	}

	row := make(Row, 0, len(PrefixColumns)+len(a.columns))
	row = append(row,
		gene,
		v.ReferenceName,
		v.Start.String(),
		v.End.String(),
		v.ReferenceBases,
		v.AlternateBases[0],
	)

	for _, col := range a.columns {
		val, _, err := v.FirstString(col)
		if err != nil {
			return nil, err
		}
		row = append(row, val)
	}
	return row, nil
}
