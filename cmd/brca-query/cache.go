package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/brca-exchange-query/internal/duckdb"
)

var errNoCache = errors.New("no cache configured; pass --cache or run: brca-query config set cache <path>")

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the query result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List cached queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			queries, err := store.ListQueries()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "#gene\tstart\tend\tvariant_set\tcolumns\trows\tfetched_at")
			for _, q := range queries {
				fmt.Fprintf(out, "%s\t%d\t%d\t%s\t%s\t%d\t%s\n",
					q.Key.Gene, q.Key.Start, q.Key.End, q.Key.VariantSet, q.Key.Columns,
					q.RowCount, q.FetchedAt.Format(time.RFC3339))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearQueries(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", store.Path())
			return nil
		},
	})

	return cmd
}

func openCache() (*duckdb.Store, error) {
	path := viper.GetString("cache")
	if path == "" {
		return nil, errNoCache
	}
	return duckdb.Open(path)
}
