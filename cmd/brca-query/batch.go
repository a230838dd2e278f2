package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/brca-exchange-query/internal/brca"
	"github.com/inodb/brca-exchange-query/internal/maf"
	"github.com/inodb/brca-exchange-query/internal/output"
)

func newBatchCmd() *cobra.Command {
	var (
		format     string
		outputFile string
		refresh    bool
		workers    int
		mafInput   bool
	)

	cmd := &cobra.Command{
		Use:   "batch <regions.tsv>",
		Short: "Query every region listed in a tab-separated file",
		Long: `Run one query per line of a tab-separated regions file and write all rows,
in file order, under a single header.

The file needs a header naming "gene", "start" and "end" columns. Use '-'
to read regions from stdin.

With --maf (implied for .maf and .maf.gz files) regions are taken from the
Hugo_Symbol, Start_Position and End_Position columns of a MAF file. Lines for
unsupported genes are skipped and repeated regions are queried once.`,
		Example: `  brca-query batch regions.tsv
  brca-query batch --workers 8 -f vcf -o out.vcf regions.tsv
  cut -f1-3 hotspots.tsv | brca-query batch -
  brca-query batch --cache ~/.brca-query/cache.duckdb tumor.maf.gz`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(1)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				regions []brca.Region
				skipped int
				err     error
			)
			if mafInput || isMAF(args[0]) {
				regions, skipped, err = readMAFRegions(args[0], cmd.InOrStdin())
			} else {
				regions, err = readRegionsFile(args[0], cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			s, err := newSession(refresh)
			if err != nil {
				return err
			}
			defer s.Close()

			out, err := openOutput(outputFile, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()

			w, err := output.NewWriter(format, out, s.adapter.Columns())
			if err != nil {
				return &usageError{err}
			}
			if err := w.WriteHeader(); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}

			total := 0
			err = brca.QueryAll(cmd.Context(), s.querier, regions, workers, func(r brca.RegionResult) error {
				s.logger.Debug("region done", zap.Stringer("region", r.Region), zap.Int("rows", len(r.Rows)))
				total += len(r.Rows)
				return writeRows(w, r.Rows, false)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Queried %d regions, %d variants\n", len(regions), total)
			if skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Skipped %d MAF lines for unsupported genes\n", skipped)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "output-format", "f", "tab", "Output format: tab, vcf, yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached results and query the service again")
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "Concurrent queries (0 = number of CPUs)")
	cmd.Flags().BoolVar(&mafInput, "maf", false, "Read regions from a MAF file")

	return cmd
}

func readRegionsFile(path string, stdin io.Reader) ([]brca.Region, error) {
	if path == "-" {
		return brca.ReadRegions(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return brca.ReadRegions(f)
}

// isMAF detects MAF input by extension, ignoring a trailing .gz.
func isMAF(path string) bool {
	return strings.HasSuffix(strings.TrimSuffix(strings.ToLower(path), ".gz"), ".maf")
}

// readMAFRegions reads regions of supported genes from a MAF file.
func readMAFRegions(path string, stdin io.Reader) ([]brca.Region, int, error) {
	var (
		p   *maf.Parser
		err error
	)
	if path == "-" {
		p, err = maf.NewParser(stdin)
	} else {
		p, err = maf.Open(path)
	}
	if err != nil {
		return nil, 0, err
	}
	defer p.Close()

	return maf.ReadRegions(p, func(gene string) bool {
		_, err := brca.Chromosome(gene)
		return err == nil
	})
}
