package brca

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/inodb/brca-exchange-query/internal/ga4gh"
)

// fakeSearcher records requests and replays fixed variants.
type fakeSearcher struct {
	variants []*ga4gh.Variant
	err      error // returned from SearchVariants
	iterErr  error // returned after all variants are consumed
	requests []ga4gh.SearchVariantsRequest
}

func (f *fakeSearcher) SearchVariants(_ context.Context, req ga4gh.SearchVariantsRequest) (ga4gh.VariantReader, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &sliceReader{variants: f.variants, err: f.iterErr}, nil
}

type sliceReader struct {
	variants []*ga4gh.Variant
	err      error
}

func (r *sliceReader) Next() (*ga4gh.Variant, error) {
	if len(r.variants) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, nil
	}
	v := r.variants[0]
	r.variants = r.variants[1:]
	return v, nil
}

// mustVariant decodes a variant from its GA4GH JSON form.
func mustVariant(t *testing.T, js string) *ga4gh.Variant {
	t.Helper()
	var v ga4gh.Variant
	require.NoError(t, json.Unmarshal([]byte(js), &v))
	return &v
}

func TestChromosome(t *testing.T) {
	chrom, err := Chromosome("BRCA1")
	require.NoError(t, err)
	assert.Equal(t, "chr17", chrom)

	chrom, err = Chromosome("BRCA2")
	require.NoError(t, err)
	assert.Equal(t, "chr13", chrom)

	for _, gene := range []string{"TP53", "brca1", "", " BRCA1"} {
		_, err := Chromosome(gene)
		assert.ErrorIs(t, err, ErrUnknownGene, "gene %q", gene)
		var lookupErr *LookupError
		require.ErrorAs(t, err, &lookupErr)
		assert.Equal(t, gene, lookupErr.Gene)
	}
}

func TestGenes(t *testing.T) {
	assert.Equal(t, []string{"BRCA1", "BRCA2"}, Genes())
}

func TestParsePosition(t *testing.T) {
	n, err := ParsePosition(" 41196311\n")
	require.NoError(t, err)
	assert.Equal(t, int64(41196311), n)

	_, err = ParsePosition("41,196,311")
	assert.Error(t, err)
	_, err = ParsePosition("")
	assert.Error(t, err)
}

func TestQuery_EndToEnd(t *testing.T) {
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"referenceName":"chr17","start":"41196311","end":"41196312",
			"referenceBases":"C","alternateBases":["T","G"],
			"info":{"Gene_Symbol":["BRCA1"],"id":["12345"],"Pathogenicity_all":["Pathogenic(ENIGMA)"]}}`),
		mustVariant(t, `{"referenceName":"chr17","start":"41196312","end":"41196313",
			"referenceBases":"A","alternateBases":["AT"],
			"info":{"Gene_Symbol":["BRCA1"],"id":["67890"]}}`),
	}}
	a := NewAdapter(s)

	rows, err := a.Query(context.Background(), "BRCA1", 41196311, 41196312)
	require.NoError(t, err)

	require.Len(t, s.requests, 1)
	assert.Equal(t, ga4gh.SearchVariantsRequest{
		ReferenceName: "chr17",
		VariantSetID:  "brca-hg37",
		Start:         41196311,
		End:           41196313,
	}, s.requests[0])

	require.Len(t, rows, 2)
	assert.Equal(t, Row{"BRCA1", "chr17", "41196311", "41196312", "C", "T", "12345", "Pathogenic(ENIGMA)"}, rows[0])
	assert.Equal(t, Row{"BRCA1", "chr17", "41196312", "41196313", "A", "AT", "67890", ""}, rows[1])
}

func TestQuery_BRCA2UsesChr13(t *testing.T) {
	s := &fakeSearcher{}
	rows, err := NewAdapter(s).Query(context.Background(), "BRCA2", 32890000, 32890100)
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.Len(t, s.requests, 1)
	assert.Equal(t, "chr13", s.requests[0].ReferenceName)
	assert.Equal(t, int64(32890101), s.requests[0].End)
}

func TestQuery_UnknownGeneBeforeSearch(t *testing.T) {
	s := &fakeSearcher{}
	_, err := NewAdapter(s).Query(context.Background(), "TP53", 1, 2)
	assert.ErrorIs(t, err, ErrUnknownGene)
	assert.Empty(t, s.requests)
}

func TestQuery_InvalidRange(t *testing.T) {
	s := &fakeSearcher{}
	a := NewAdapter(s)

	_, err := a.Query(context.Background(), "BRCA1", -1, 5)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = a.Query(context.Background(), "BRCA1", 10, 9)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = a.Query(context.Background(), "BRCA1", 10, math.MaxInt64)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Empty(t, s.requests)

	_, err = a.Query(context.Background(), "BRCA1", 10, math.MaxInt64-1)
	require.NoError(t, err)
	require.Len(t, s.requests, 1)
	assert.Equal(t, int64(math.MaxInt64), s.requests[0].End)

	// A single-base range is valid.
	_, err = a.Query(context.Background(), "BRCA1", 10, 10)
	assert.NoError(t, err)
}

func TestQuery_RowReportsRecordGene(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"referenceName":"chr17","start":1,"end":2,"referenceBases":"A","alternateBases":["C"],
			"info":{"Gene_Symbol":["NBR2"]}}`),
	}}

	rows, err := NewAdapter(s, WithLogger(zap.New(core))).Query(context.Background(), "BRCA1", 1, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "NBR2", rows[0][0])

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "record gene differs from query gene", logs.All()[0].Message)
}

func TestQuery_RowWidth(t *testing.T) {
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"],
			"a":["1"],"b":["2"],"c":["3"],"id":["x"]}}`),
		mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"]}}`),
	}}

	rows, err := NewAdapter(s).Query(context.Background(), "BRCA1", 1, 2)
	require.NoError(t, err)
	for _, row := range rows {
		assert.Len(t, row, 8)
	}

	s.variants = []*ga4gh.Variant{
		mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"],"a":["1"]}}`),
	}
	a := NewAdapter(s, WithColumns([]string{"a", "b", "c"}))
	rows, err = a.Query(context.Background(), "BRCA1", 1, 2)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 9)
	assert.Equal(t, Row{"BRCA1", "", "1", "2", "", "C", "1", "", ""}, rows[0])
	assert.Len(t, a.Columns(), 9)
}

func TestQuery_Idempotent(t *testing.T) {
	variants := []*ga4gh.Variant{
		mustVariant(t, `{"start":5,"end":6,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA2"]}}`),
		mustVariant(t, `{"start":3,"end":4,"alternateBases":["G"],"info":{"Gene_Symbol":["BRCA2"]}}`),
		mustVariant(t, `{"start":3,"end":4,"alternateBases":["G"],"info":{"Gene_Symbol":["BRCA2"]}}`),
	}
	a := NewAdapter(&fakeSearcher{variants: variants})
	first, err := a.Query(context.Background(), "BRCA2", 1, 10)
	require.NoError(t, err)

	a = NewAdapter(&fakeSearcher{variants: variants})
	second, err := a.Query(context.Background(), "BRCA2", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	// No reordering or dedup.
	require.Len(t, first, 3)
	assert.Equal(t, "5", first[0][2])
	assert.Equal(t, "3", first[1][2])
}

func TestQuery_SearchErrorPropagatesUnchanged(t *testing.T) {
	backendErr := &ga4gh.HTTPError{StatusCode: 502, Body: "bad gateway"}
	_, err := NewAdapter(&fakeSearcher{err: backendErr}).Query(context.Background(), "BRCA1", 1, 2)
	assert.Same(t, backendErr, err)
}

func TestQuery_IteratorErrorFailsWholeCall(t *testing.T) {
	iterErr := errors.New("connection reset")
	s := &fakeSearcher{
		variants: []*ga4gh.Variant{
			mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"]}}`),
		},
		iterErr: iterErr,
	}
	rows, err := NewAdapter(s).Query(context.Background(), "BRCA1", 1, 2)
	assert.Equal(t, iterErr, err)
	assert.Nil(t, rows)
}

func TestQuery_MissingGeneSymbolFailsWholeCall(t *testing.T) {
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"]}}`),
		mustVariant(t, `{"referenceName":"chr17","start":3,"end":4,"alternateBases":["C"],"info":{"id":["9"]}}`),
	}}
	rows, err := NewAdapter(s).Query(context.Background(), "BRCA1", 1, 4)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Nil(t, rows)
}

func TestQuery_NoAlternateBases(t *testing.T) {
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"start":1,"end":2,"alternateBases":[],"info":{"Gene_Symbol":["BRCA1"]}}`),
	}}
	_, err := NewAdapter(s).Query(context.Background(), "BRCA1", 1, 2)
	assert.ErrorIs(t, err, ErrNoAlternateBases)
}

func TestQuery_EmptyOptionalColumnValues(t *testing.T) {
	s := &fakeSearcher{variants: []*ga4gh.Variant{
		mustVariant(t, `{"start":1,"end":2,"alternateBases":["C"],"info":{"Gene_Symbol":["BRCA1"],"id":[]}}`),
	}}
	_, err := NewAdapter(s).Query(context.Background(), "BRCA1", 1, 2)
	assert.Error(t, err)
}

func TestQueryStrings(t *testing.T) {
	s := &fakeSearcher{}
	a := NewAdapter(s, WithVariantSet("brca-hg38"))

	_, err := a.QueryStrings(context.Background(), "BRCA1", "41196311", " 41196312 ")
	require.NoError(t, err)
	require.Len(t, s.requests, 1)
	assert.Equal(t, "brca-hg38", s.requests[0].VariantSetID)
	assert.Equal(t, int64(41196313), s.requests[0].End)

	_, err = a.QueryStrings(context.Background(), "BRCA1", "abc", "10")
	assert.Error(t, err)
	_, err = a.QueryStrings(context.Background(), "BRCA1", "1", "1.5")
	assert.Error(t, err)
	assert.Len(t, s.requests, 1)
}

func TestWithColumns_Copies(t *testing.T) {
	cols := []string{"id"}
	a := NewAdapter(&fakeSearcher{}, WithColumns(cols))
	cols[0] = "changed"
	assert.Equal(t, []string{"id"}, a.AnnotationColumns())
	assert.Equal(t, DefaultColumns, NewAdapter(&fakeSearcher{}).AnnotationColumns())
}

func TestQuery_NullRecordFailsWholeCall(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"variants":[
			{"referenceName":"chr17","start":1,"end":2,"referenceBases":"A","alternateBases":["G"],"info":{"Gene_Symbol":["BRCA1"]}},
			null,
			{"referenceName":"chr17","start":5,"end":6,"referenceBases":"C","alternateBases":["T"],"info":{"Gene_Symbol":["BRCA1"]}}]}`))
	}))
	defer ts.Close()

	rows, err := NewAdapter(ga4gh.NewClient(ts.URL)).Query(context.Background(), "BRCA1", 0, 10)
	assert.ErrorIs(t, err, ga4gh.ErrNullVariant)
	assert.Nil(t, rows)
}
