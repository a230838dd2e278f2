package brca

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Querier runs a single gene/range query. Both Adapter and CachedQuerier
// implement it.
type Querier interface {
	Query(ctx context.Context, gene string, start, end int64) ([]Row, error)
}

// RegionResult holds the rows for one region of a batch.
type RegionResult struct {
	Seq    int
	Region Region
	Rows   []Row
	Err    error
}

// QueryAll queries every region using a pool of workers and calls fn for each
// result in input order. The first failed region stops the batch; its error
// is returned and remaining queries are canceled.
// If workers is 0, runtime.NumCPU() is used.
func QueryAll(ctx context.Context, q Querier, regions []Region, workers int, fn func(RegionResult) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan RegionResult, workers)

	go func() {
		var g errgroup.Group
		g.SetLimit(workers)
		for i, r := range regions {
			i, r := i, r
			g.Go(func() error {
				rows, err := q.Query(ctx, r.Gene, r.Start, r.End)
				results <- RegionResult{Seq: i, Region: r, Rows: rows, Err: err}
				return nil
			})
		}
		g.Wait()
		close(results)
	}()

	return OrderedCollect(results, func(r RegionResult) error {
		if r.Err != nil {
			cancel()
			return fmt.Errorf("query %s: %w", r.Region, r.Err)
		}
		return fn(r)
	})
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan RegionResult, fn func(RegionResult) error) error {
	pending := make(map[int]RegionResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
