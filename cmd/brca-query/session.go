package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/brca-exchange-query/internal/brca"
	"github.com/inodb/brca-exchange-query/internal/duckdb"
	"github.com/inodb/brca-exchange-query/internal/ga4gh"
)

// session holds the components shared by the query and batch commands.
type session struct {
	logger  *zap.Logger
	adapter *brca.Adapter
	querier brca.Querier
	store   *duckdb.Store
}

// newSession wires the GA4GH client, adapter and optional cache from config.
func newSession(refresh bool) (*session, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	client := ga4gh.NewClient(viper.GetString("endpoint"),
		ga4gh.WithTimeout(viper.GetDuration("timeout")),
		ga4gh.WithPageSize(viper.GetInt("page_size")),
		ga4gh.WithInsecureSkipVerify(viper.GetBool("insecure")),
		ga4gh.WithLogger(logger),
	)
	if viper.GetBool("insecure") {
		logger.Warn("TLS certificate verification disabled", zap.String("endpoint", client.BaseURL()))
	}

	adapter := brca.NewAdapter(client,
		brca.WithColumns(configColumns()),
		brca.WithVariantSet(viper.GetString("variant_set")),
		brca.WithLogger(logger),
	)

	s := &session{logger: logger, adapter: adapter, querier: adapter}

	if path := viper.GetString("cache"); path != "" {
		store, err := duckdb.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
		s.store = store
		s.querier = brca.NewCachedQuerier(adapter, store, refresh)
		logger.Debug("using query cache", zap.String("path", path))
	}

	return s, nil
}

func (s *session) Close() {
	if s.store != nil {
		s.store.Close()
	}
	s.logger.Sync()
}

// configColumns returns the configured annotation columns. Values from the
// environment or config file may be a single comma-separated string.
func configColumns() []string {
	var cols []string
	for _, c := range viper.GetStringSlice("columns") {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cols = append(cols, part)
			}
		}
	}
	return cols
}

// openOutput returns stdout for an empty path or "-", otherwise creates the file.
func openOutput(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
