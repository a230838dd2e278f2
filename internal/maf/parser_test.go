package maf

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

const sampleMAF = `#version 2.4
Hugo_Symbol	Entrez_Gene_Id	Center	NCBI_Build	Chromosome	Start_Position	End_Position	Strand	Variant_Classification
BRCA1	672	.	GRCh37	17	41196312	41196312	+	Missense_Mutation
KRAS	3845	.	GRCh37	12	25398285	25398285	+	Missense_Mutation
BRCA2	675	.	GRCh37	13	32890598	32890600	+	In_Frame_Del
BRCA1	672	.	GRCh37	17	41196312	41196312	+	Missense_Mutation
`

func TestParser_Next(t *testing.T) {
	p, err := NewParser(strings.NewReader(sampleMAF))
	require.NoError(t, err)
	defer p.Close()

	r, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, brca.Region{Gene: "BRCA1", Start: 41196311, End: 41196311}, *r)
	assert.Equal(t, 3, p.LineNumber())

	r, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, "KRAS", r.Gene)

	r, err = p.Next()
	require.NoError(t, err)
	assert.Equal(t, brca.Region{Gene: "BRCA2", Start: 32890597, End: 32890599}, *r)

	_, err = p.Next()
	require.NoError(t, err)
	r, err = p.Next()
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestReadRegions_SkipsAndDedupes(t *testing.T) {
	p, err := NewParser(strings.NewReader(sampleMAF))
	require.NoError(t, err)

	keep := func(gene string) bool {
		_, err := brca.Chromosome(gene)
		return err == nil
	}
	regions, skipped, err := ReadRegions(p, keep)
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, []brca.Region{
		{Gene: "BRCA1", Start: 41196311, End: 41196311},
		{Gene: "BRCA2", Start: 32890597, End: 32890599},
	}, regions)
}

func TestReadRegions_KeepAll(t *testing.T) {
	p, err := NewParser(strings.NewReader(sampleMAF))
	require.NoError(t, err)

	regions, skipped, err := ReadRegions(p, nil)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Len(t, regions, 3)
}

func TestOpen_Gzipped(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(sampleMAF))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "sample.maf.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()

	r, err := p.Next()
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "BRCA1", r.Gene)
}

func TestOpen_Missing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.maf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "#version 2.4\n", "no header line found"},
		{"missing gene", "Chromosome\tStart_Position\tEnd_Position\n", "missing required column Hugo_Symbol"},
		{"missing end", "Hugo_Symbol\tStart_Position\n", "missing required column End_Position"},
		{"short line", "Hugo_Symbol\tStart_Position\tEnd_Position\nBRCA1\t5\n", "expected at least 3 columns"},
		{"bad start", "Hugo_Symbol\tStart_Position\tEnd_Position\nBRCA1\tx\t5\n", "invalid Start_Position"},
		{"zero start", "Hugo_Symbol\tStart_Position\tEnd_Position\nBRCA1\t0\t5\n", "invalid Start_Position"},
		{"end before start", "Hugo_Symbol\tStart_Position\tEnd_Position\nBRCA1\t9\t5\n", "invalid End_Position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParser(strings.NewReader(tt.input))
			if err == nil {
				_, err = p.Next()
			}
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Message, tt.want)
		})
	}
}
