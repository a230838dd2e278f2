package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/inodb/brca-exchange-query/internal/brca"
)

func newGenesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genes",
		Short: "List supported genes and their reference sequences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, gene := range brca.Genes() {
				chrom, err := brca.Chromosome(gene)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", gene, chrom)
			}
			return nil
		},
	}
}
