// Package app wires configuration, logging, and the merge and access
// pipelines together for the command-line entrypoint.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"isogrid.org/internal/logging"
	"isogrid.org/internal/merge"
	"isogrid.org/internal/network"
	"isogrid.org/internal/search"
)

// Application holds the dependencies shared by the pipeline commands.
type Application struct {
	Config *Config
	Logger *slog.Logger
}

// RunMerge executes the GTFS-to-network merge batch described by the
// merge section of the configuration.
func (app *Application) RunMerge(ctx context.Context) error {
	cfg := app.Config.Merge
	if cfg == nil {
		return fmt.Errorf("configuration has no merge section")
	}

	policy, err := cfg.DateMapping.SchedulePolicy()
	if err != nil {
		return err
	}
	window, err := cfg.DateMapping.Window()
	if err != nil {
		return err
	}
	missing, err := merge.ParseMissingStopLocationPolicy(cfg.MissingStopLocation)
	if err != nil {
		return err
	}
	tolerance := cfg.VertexMatchTolerance
	if tolerance == 0 {
		tolerance = DefaultVertexMatchTolerance
	}

	vertices, err := network.LoadVertices(cfg.VerticesFile)
	if err != nil {
		return err
	}
	matcher := network.NewMatcher(vertices, tolerance)
	app.Logger.Info("base network loaded",
		"vertices", len(vertices),
		"tolerance_meters", tolerance)

	inputs, err := merge.CollectInputs(cfg.Input)
	if err != nil {
		return err
	}

	result, err := merge.RunBatch(ctx, inputs,
		matcher,
		merge.Options{
			Window:              window,
			Policy:              policy,
			MissingStopLocation: missing,
		},
		merge.BatchOptions{
			StartingEdgeListID: cfg.StartingEdgeListID,
			Parallelism:        cfg.Parallelism,
			IgnoreFailures:     cfg.IgnoreFailures,
			Overwrite:          cfg.Overwrite,
			OutputDir:          cfg.OutputDir,
		},
		app.Logger)
	if result != nil {
		app.Logger.Info("merge batch finished",
			"bundles", len(result.Outcomes),
			"written", len(result.Written),
			"failed", len(result.Failures))
	}
	return err
}

// RunAccess executes the grid search run described by the access section
// of the configuration.
func (app *Application) RunAccess(ctx context.Context) error {
	cfg := app.Config.Access
	if cfg == nil {
		return fmt.Errorf("configuration has no access section")
	}

	boundaryKind, err := search.ParseBoundaryKind(cfg.Boundary)
	if err != nil {
		return err
	}

	vertices, err := network.LoadVertices(cfg.VerticesFile)
	if err != nil {
		return err
	}
	searcher := search.NewSpeedSearcher(vertices, cfg.Speeds)
	engine := search.NewEngine(searcher, cfg.TimeBins, search.Boundary{Kind: boundaryKind}, app.Logger)

	loader, err := search.OpenLoader(cfg.QueryFile, cfg.ChunkSize)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(loader, app.Logger, "query loader")

	writer, err := search.NewWriter(cfg.OutputDir, cfg.TimeBins)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(writer, app.Logger, "aggregation writer")

	return search.Run(ctx, loader, engine, writer, cfg.Parallelism, app.Logger)
}
