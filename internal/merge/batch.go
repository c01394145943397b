package merge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"isogrid.org/internal/network"
)

// BatchOptions controls a batch run over many bundles.
type BatchOptions struct {
	StartingEdgeListID int
	Parallelism        int
	// IgnoreFailures keeps processing past failed bundles. When false the
	// first failure (in input order) halts the batch; bundles strictly
	// before it still produce output.
	IgnoreFailures bool
	Overwrite      bool
	OutputDir      string
}

// Outcome is the resolved result of one bundle, kept in input order.
type Outcome struct {
	Input    string
	Index    int
	Artifact *network.Artifact
	Err      error
}

// BatchResult summarizes a finished batch.
type BatchResult struct {
	// Outcomes holds every dispatched bundle in input order.
	Outcomes []Outcome
	// Written lists the artifacts that received edge-list ids and were
	// written, in id order.
	Written []*network.Artifact
	// Failures lists failed bundles in input order.
	Failures []Outcome
}

// CollectInputs expands a bundle path into an ordered input list: a
// directory yields its .zip entries sorted by name, anything else is a
// single bundle.
func CollectInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle input %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading bundle directory %s: %w", path, err)
	}
	var inputs []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zip") {
			continue
		}
		inputs = append(inputs, filepath.Join(path, e.Name()))
	}
	sort.Strings(inputs)
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no GTFS archives found under %s", path)
	}
	return inputs, nil
}

// RunBatch processes the bundles with a bounded worker pool and then, at
// the barrier after all dispatched bundles resolve, assigns edge-list
// ids to the survivors as a pure function of the ordered outcome list:
// the i-th success (input order) receives StartingEdgeListID + i. Ids
// are never computed concurrently, so they stay dense and contiguous no
// matter which input positions failed.
func RunBatch(
	ctx context.Context,
	inputs []string,
	base *network.Matcher,
	opts Options,
	batch BatchOptions,
	logger *slog.Logger,
) (*BatchResult, error) {
	if err := opts.Window.Validate(); err != nil {
		return nil, fmt.Errorf("invalid target window: %w", err)
	}
	if err := os.MkdirAll(batch.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	parallelism := batch.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	outcomes := make([]Outcome, len(inputs))
	jobs := make(chan int)
	var aborted atomic.Bool
	var wg sync.WaitGroup

	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				artifact, err := PreprocessBundle(inputs[i], base, opts, logger)
				outcomes[i] = Outcome{Input: inputs[i], Index: i, Artifact: artifact, Err: err}
				if err != nil && !batch.IgnoreFailures {
					aborted.Store(true)
				}
			}
		}()
	}

	dispatched := 0
	for i := range inputs {
		if aborted.Load() || ctx.Err() != nil {
			break
		}
		jobs <- i
		dispatched++
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{Outcomes: outcomes[:dispatched]}

	var vertexOffset int64
	rank := 0
	for i := 0; i < dispatched; i++ {
		o := outcomes[i]
		if o.Err != nil {
			result.Failures = append(result.Failures, o)
			logger.Error("bundle failed", "bundle", o.Input, "index", o.Index, "error", o.Err)
			if !batch.IgnoreFailures {
				// Bundles past the first failure are discarded even if a
				// worker happened to finish them while it was in flight.
				break
			}
			continue
		}
		id := batch.StartingEdgeListID + rank
		o.Artifact.Renumber(id, vertexOffset)
		if err := o.Artifact.Write(batch.OutputDir, batch.Overwrite); err != nil {
			return result, fmt.Errorf("writing artifact for %s: %w", o.Input, err)
		}
		logger.Info("bundle merged",
			"bundle", o.Input,
			"edge_list_id", id,
			"edges", len(o.Artifact.Edges),
			"new_vertices", len(o.Artifact.NewVertices))
		vertexOffset += int64(len(o.Artifact.NewVertices))
		rank++
		result.Written = append(result.Written, o.Artifact)
	}

	if !batch.IgnoreFailures && len(result.Failures) > 0 {
		return result, result.Failures[0].Err
	}
	return result, nil
}
