package main

import (
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"isogrid.org/internal/app"
	"isogrid.org/internal/logging"
)

func main() {
	cliApp := &cli.App{
		Name:  "isogrid",
		Usage: "merge GTFS schedules into road networks and compute grid access summaries",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "path to the YAML run configuration",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "merge",
				Usage: "merge GTFS bundles into a base road network as transit edge lists",
				Action: func(ctx *cli.Context) error {
					application, err := newApplication(ctx)
					if err != nil {
						return err
					}
					return application.RunMerge(ctx.Context)
				},
			},
			{
				Name:  "access",
				Usage: "run per-grid-cell searches and write isochrone summaries",
				Action: func(ctx *cli.Context) error {
					application, err := newApplication(ctx)
					if err != nil {
						return err
					}
					return application.RunAccess(ctx.Context)
				},
			},
		},
	}
	if err := cliApp.Run(os.Args); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func newApplication(ctx *cli.Context) (*app.Application, error) {
	level := slog.LevelInfo
	if ctx.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stderr, level)

	cfg, err := app.LoadConfig(ctx.String("config"))
	if err != nil {
		return nil, err
	}
	return &app.Application{Config: cfg, Logger: logger}, nil
}
