package asgraph

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// indexFilesParallel indexes files using a three-phase pipeline:
//
//	Phase A (serial):   Hash check, cleanup of stale artifacts.
//	Phase B (parallel): Parse and build graphs in a worker pool.
//	Phase C (serial):   Commit each file's batch to SQLite.
func (e *Engine) indexFilesParallel(ctx context.Context, paths []string) (IndexStats, error) {
	var stats IndexStats
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			stats.Skipped++
			continue
		}
		items = append(items, item)
	}

	if len(items) > 0 {
		// ---- Phase B: Parallel graph building ----
		numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

		workCh := make(chan workItem, len(items))
		for _, item := range items {
			workCh <- item
		}
		close(workCh)

		type result struct {
			item workItem
			err  error
		}
		resultCh := make(chan result, len(items))

		var wg sync.WaitGroup
		for range numWorkers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for item := range workCh {
					if err := ctx.Err(); err != nil {
						resultCh <- result{item: item, err: err}
						continue
					}
					resultCh <- result{item: item, err: e.buildFile(ctx, item)}
				}
			}()
		}

		go func() {
			wg.Wait()
			close(resultCh)
		}()

		// ---- Phase C: Serial commit ----
		for res := range resultCh {
			if res.err != nil {
				stats.Failed++
				errs = append(errs, fmt.Errorf("build %s: %w", res.item.path, res.err))
				continue
			}
			if err := e.store.CommitBatch(res.item.batch); err != nil {
				stats.Failed++
				errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
				continue
			}
			stats.Indexed++
		}
	}

	if len(errs) > 0 {
		return stats, fmt.Errorf("parallel indexing had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}
