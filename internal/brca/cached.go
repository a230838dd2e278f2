package brca

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QueryKey identifies a cached query result.
type QueryKey struct {
	Gene       string
	Start      int64
	End        int64
	VariantSet string
	Columns    string // annotation columns joined with ","
}

// RowStore persists query results.
type RowStore interface {
	LoadQuery(key QueryKey) ([]Row, bool, error)
	SaveQuery(key QueryKey, rows []Row) error
}

// CachedQuerier serves queries from a RowStore, falling back to the adapter
// on a miss and saving what it fetched. Concurrent calls for the same key
// share one lookup, so a batch repeating a region queries it once.
type CachedQuerier struct {
	adapter *Adapter
	store   RowStore
	refresh bool
	logger  *zap.Logger
	flight  singleflight.Group
}

// NewCachedQuerier wraps adapter with store. When refresh is set, stored
// results are ignored and overwritten.
func NewCachedQuerier(adapter *Adapter, store RowStore, refresh bool) *CachedQuerier {
	return &CachedQuerier{
		adapter: adapter,
		store:   store,
		refresh: refresh,
		logger:  adapter.logger,
	}
}

// Key returns the cache key for a query run through the adapter.
func (c *CachedQuerier) Key(gene string, start, end int64) QueryKey {
	return QueryKey{
		Gene:       gene,
		Start:      start,
		End:        end,
		VariantSet: c.adapter.variantSet,
		Columns:    strings.Join(c.adapter.columns, ","),
	}
}

// Query returns stored rows when present, otherwise queries and stores the result.
// Failed queries are not stored. Callers sharing a key receive the same rows.
func (c *CachedQuerier) Query(ctx context.Context, gene string, start, end int64) ([]Row, error) {
	key := c.Key(gene, start, end)
	flightKey := fmt.Sprintf("%s\x00%d\x00%d\x00%s\x00%s", key.Gene, key.Start, key.End, key.VariantSet, key.Columns)

	v, err, _ := c.flight.Do(flightKey, func() (any, error) {
		return c.query(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.([]Row), nil
}

func (c *CachedQuerier) query(ctx context.Context, key QueryKey) ([]Row, error) {
	if !c.refresh {
		rows, ok, err := c.store.LoadQuery(key)
		if err != nil {
			return nil, err
		}
		if ok {
			c.logger.Debug("cache hit", zap.String("gene", key.Gene), zap.Int64("start", key.Start), zap.Int64("end", key.End))
			return rows, nil
		}
	}

	rows, err := c.adapter.Query(ctx, key.Gene, key.Start, key.End)
	if err != nil {
		return nil, err
	}
	if err := c.store.SaveQuery(key, rows); err != nil {
		return nil, err
	}
	return rows, nil
}
