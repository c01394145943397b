package search

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"isogrid.org/internal/network"
)

// Constraints bound one search: the travel mode, the largest time
// threshold of interest, and the query's configuration reference.
type Constraints struct {
	Mode    string
	MaxTime time.Duration
	Config  string
}

// Sample is one reached location with its travel time from the origin.
type Sample struct {
	Point orb.Point
	Time  time.Duration
}

// ReachableSet is the result of one constrained search.
type ReachableSet struct {
	Samples []Sample
}

// Searcher is the route-search capability the grid engine consumes. The
// engine issues exactly one Search per (cell, mode) pair and partitions
// the result into time bins afterwards.
type Searcher interface {
	Search(ctx context.Context, origin orb.Point, constraints Constraints) (*ReachableSet, error)
}

// DefaultModeSpeeds are free-flow speeds in meters per second, used by
// the built-in speed-model searcher when none are configured.
var DefaultModeSpeeds = map[string]float64{
	"walk":    1.4,
	"bike":    4.0,
	"drive":   13.0,
	"transit": 8.0,
}

// SpeedSearcher is the built-in search capability: every network vertex
// within mode speed times the time budget of the origin is reachable,
// with its straight-line travel time. It stands in for an external
// energy-aware routing engine, which plugs in behind the Searcher
// interface.
type SpeedSearcher struct {
	vertices []network.Vertex
	speeds   map[string]float64
}

func NewSpeedSearcher(vertices []network.Vertex, speeds map[string]float64) *SpeedSearcher {
	if len(speeds) == 0 {
		speeds = DefaultModeSpeeds
	}
	return &SpeedSearcher{vertices: vertices, speeds: speeds}
}

func (s *SpeedSearcher) Search(ctx context.Context, origin orb.Point, constraints Constraints) (*ReachableSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	speed, ok := s.speeds[constraints.Mode]
	if !ok || speed <= 0 {
		return nil, fmt.Errorf("no speed configured for mode %q", constraints.Mode)
	}
	radius := speed * constraints.MaxTime.Seconds()

	set := &ReachableSet{}
	for _, v := range s.vertices {
		d := geo.DistanceHaversine(origin, v.Point)
		if d > radius {
			continue
		}
		set.Samples = append(set.Samples, Sample{
			Point: v.Point,
			Time:  time.Duration(d / speed * float64(time.Second)),
		})
	}
	if len(set.Samples) == 0 {
		return nil, fmt.Errorf("origin (%f, %f) is not locatable in the network", origin[0], origin[1])
	}
	return set, nil
}
