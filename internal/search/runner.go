package search

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Run drives the engine over every query the loader yields, with a
// bounded worker pool per chunk. Chunks are processed sequentially so at
// most one chunk's queries are in memory; a failed query becomes one
// error row and never blocks its siblings.
func Run(
	ctx context.Context,
	loader *Loader,
	engine *Engine,
	writer *Writer,
	parallelism int,
	logger *slog.Logger,
) error {
	if parallelism < 1 {
		parallelism = 1
	}

	processed, failed := 0, 0
	for {
		chunk, malformed, err := loader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		for _, rec := range malformed {
			failed++
			logger.Warn("skipping malformed query record", "position", rec.Position, "error", rec.Message)
			if err := writer.WriteError(rec); err != nil {
				return err
			}
		}

		jobs := make(chan Query)
		var wg sync.WaitGroup
		var writeErr error
		var writeErrOnce sync.Once

		for w := 0; w < parallelism; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for q := range jobs {
					result, err := engine.Evaluate(ctx, q)
					if err != nil {
						logger.Warn("query failed", "query", q.Key(), "error", err)
						err = writer.WriteError(ErrorRecord{ID: q.Key(), Message: err.Error()})
					} else {
						err = writer.WriteResult(result)
					}
					if err != nil {
						writeErrOnce.Do(func() { writeErr = err })
					}
				}
			}()
		}

		for _, q := range chunk {
			if ctx.Err() != nil {
				break
			}
			jobs <- q
		}
		close(jobs)
		wg.Wait()

		if writeErr != nil {
			return writeErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		processed += len(chunk)
	}

	logger.Info("grid search complete", "queries", processed, "malformed_records", failed)
	return nil
}
