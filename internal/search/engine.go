package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Engine evaluates grid queries against a merged network. Each (cell,
// mode) pair costs exactly one search; the configured time bins are a
// post-hoc partition of that single reachability result, not independent
// searches.
type Engine struct {
	searcher Searcher
	bins     []int
	boundary Boundary
	logger   *slog.Logger
}

func NewEngine(searcher Searcher, bins []int, boundary Boundary, logger *slog.Logger) *Engine {
	sorted := make([]int, len(bins))
	copy(sorted, bins)
	sort.Ints(sorted)
	return &Engine{searcher: searcher, bins: sorted, boundary: boundary, logger: logger}
}

// Evaluate runs one query and derives one boundary geometry per time
// bin, ordered by bin. A failed search is returned as an error for the
// caller to record; it never affects sibling queries.
func (e *Engine) Evaluate(ctx context.Context, q Query) (*CellResult, error) {
	bins := e.bins
	if len(q.TimeBins) > 0 {
		bins = make([]int, len(q.TimeBins))
		copy(bins, q.TimeBins)
		sort.Ints(bins)
		configured := make(map[int]struct{}, len(e.bins))
		for _, bin := range e.bins {
			configured[bin] = struct{}{}
		}
		for _, bin := range bins {
			if _, ok := configured[bin]; !ok {
				// The flattened csv has one column per run-level bin, so
				// this geometry lands only in the full result stream.
				e.logger.Warn("time bin override has no isochrone column",
					"query", q.Key(), "time_bin", bin)
			}
		}
	}
	if len(bins) == 0 {
		return nil, fmt.Errorf("query %s has no time bins", q.Key())
	}

	origin := orb.Point{q.OriginX, q.OriginY}
	maxTime := time.Duration(bins[len(bins)-1]) * time.Minute
	set, err := e.searcher.Search(ctx, origin, Constraints{
		Mode:    q.Mode,
		MaxTime: maxTime,
		Config:  q.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("search for %s: %w", q.Key(), err)
	}

	result := &CellResult{GridID: q.GridID, Mode: q.Mode, Config: q.Config}
	for _, bin := range bins {
		threshold := time.Duration(bin) * time.Minute
		var points []orb.Point
		for _, sample := range set.Samples {
			if sample.Time < threshold {
				points = append(points, sample.Point)
			}
		}
		hull := e.boundary.Hull(points)
		result.Isochrones = append(result.Isochrones, IsochroneResult{
			GridID:   q.GridID,
			Mode:     q.Mode,
			Bin:      bin,
			Geometry: wkt.MarshalString(hull),
		})
	}
	return result, nil
}
