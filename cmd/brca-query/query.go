package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/brca-exchange-query/internal/brca"
	"github.com/inodb/brca-exchange-query/internal/output"
)

func newQueryCmd() *cobra.Command {
	var (
		format     string
		outputFile string
		refresh    bool
	)

	cmd := &cobra.Command{
		Use:   "query <gene> <start> <end>",
		Short: "Query variants of a gene within a coordinate range",
		Long: `Search BRCA Exchange for variants of BRCA1 or BRCA2 between start and end
(both inclusive) and print one row per variant.

Each row starts with the record's own gene symbol, reference name, start,
end, reference bases and first alternate base, followed by one field per
annotation column (empty when the record lacks the field).`,
		Example: `  brca-query query BRCA1 41196311 41196312
  brca-query query BRCA2 32890572 32890600 -f vcf -o brca2.vcf
  brca-query query BRCA1 41196311 41196312 --columns id,Pathogenicity_expert`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := brca.ParsePosition(args[1])
			if err != nil {
				return &usageError{err}
			}
			end, err := brca.ParsePosition(args[2])
			if err != nil {
				return &usageError{err}
			}

			s, err := newSession(refresh)
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.querier.Query(cmd.Context(), args[0], start, end)
			if err != nil {
				return err
			}

			out, err := openOutput(outputFile, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer out.Close()

			w, err := output.NewWriter(format, out, s.adapter.Columns())
			if err != nil {
				return &usageError{err}
			}
			if err := writeRows(w, rows, true); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(rows) == 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "No variants found for %s:%d-%d\n", args[0], start, end)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output-format", "f", "tab", "Output format: tab, vcf, yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Ignore cached results and query the service again")

	return cmd
}

// writeRows writes rows, optionally preceded by the header.
func writeRows(w output.RowWriter, rows []brca.Row, header bool) error {
	if header {
		if err := w.WriteHeader(); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	return nil
}
