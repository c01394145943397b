// Package merge turns GTFS bundles into transit edge/vertex overlays for
// a base road network, and drives batches of bundles with contiguous
// edge-list-id assignment over the survivors.
package merge

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/jamespfennell/gtfs"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"isogrid.org/internal/network"
	"isogrid.org/internal/schedule"
)

// MissingStopLocationPolicy decides what happens when a stop has no
// coordinate and no located parent station.
type MissingStopLocationPolicy int

const (
	// FailOnMissingStop fails the bundle.
	FailOnMissingStop MissingStopLocationPolicy = iota
	// DropMissingStop skips the stop pair and continues.
	DropMissingStop
)

// ParseMissingStopLocationPolicy maps a configuration name to a policy.
func ParseMissingStopLocationPolicy(s string) (MissingStopLocationPolicy, error) {
	switch s {
	case "", "fail":
		return FailOnMissingStop, nil
	case "drop_stop":
		return DropMissingStop, nil
	}
	return 0, fmt.Errorf("unknown missing stop location policy %q", s)
}

// Options configures one bundle's preprocessing.
type Options struct {
	Window              schedule.Window
	Policy              schedule.Policy
	MissingStopLocation MissingStopLocationPolicy
}

// PreprocessBundle reads one GTFS archive, resolves its service
// calendars against the target window, and materializes the trips of
// matched services into a transit edge/vertex artifact. The artifact's
// edge-list id is assigned later by the batch orchestrator.
func PreprocessBundle(path string, base *network.Matcher, opts Options, logger *slog.Logger) (*network.Artifact, error) {
	if err := opts.Window.Validate(); err != nil {
		return nil, &BundleError{Bundle: path, Err: err}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &BundleError{Bundle: path, Err: fmt.Errorf("%w: %v", ErrParseFailure, err)}
	}
	static, err := gtfs.ParseStatic(b, gtfs.ParseStaticOptions{})
	if err != nil {
		return nil, &BundleError{Bundle: path, Err: fmt.Errorf("%w: %v", ErrParseFailure, err)}
	}

	matches := resolveCalendars(static, opts, logger)
	if len(matches) == 0 {
		return nil, &BundleError{Bundle: path, Err: ErrNoCalendarMatch}
	}

	artifact := &network.Artifact{
		Bundle:          path,
		BaseMaxVertexID: base.MaxBaseID(),
	}
	alloc := base.NewAllocator()
	edgeByPair := make(map[[2]int64]int)

	trips := make([]gtfs.ScheduledTrip, len(static.Trips))
	copy(trips, static.Trips)
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID < trips[j].ID })

	for _, trip := range trips {
		if trip.Service == nil {
			continue
		}
		match, ok := matches[trip.Service.Id]
		if !ok {
			continue
		}
		if err := appendTripEdges(artifact, trip, match, base, alloc, edgeByPair, opts); err != nil {
			return nil, &BundleError{Bundle: path, Err: err}
		}
	}

	artifact.NewVertices = alloc.Vertices()
	return artifact, nil
}

// resolveCalendars applies the date-mapping policy to every service in
// the bundle. Unmatched services are dropped; the caller fails the
// bundle only when nothing matches.
func resolveCalendars(static *gtfs.Static, opts Options, logger *slog.Logger) map[string]schedule.MatchResult {
	spans := serviceSpans(static)
	matches := make(map[string]schedule.MatchResult)
	for i := range static.Services {
		cal := schedule.FromService(&static.Services[i])
		if span, ok := spans[cal.ServiceID]; ok {
			cal.Span = &span
		}
		result, err := opts.Policy.Match(cal, opts.Window)
		if err != nil {
			logger.Warn("calendar match failed", "service_id", cal.ServiceID, "error", err)
			continue
		}
		if !result.Matched {
			logger.Debug("service does not match target window", "service_id", cal.ServiceID)
			continue
		}
		// A malformed bundle can repeat a service id; keep the
		// higher-quality match.
		if prev, ok := matches[cal.ServiceID]; ok {
			result = schedule.Best(prev, result)
		}
		matches[cal.ServiceID] = result
	}
	return matches
}

// serviceSpans derives each service's time-of-day coverage from the stop
// times of its trips. Services without any timed stop cover nothing here
// and keep their whole-day default.
func serviceSpans(static *gtfs.Static) map[string]schedule.TimeRange {
	spans := make(map[string]schedule.TimeRange)
	for i := range static.Trips {
		trip := &static.Trips[i]
		if trip.Service == nil {
			continue
		}
		for _, st := range trip.StopTimes {
			dep := stopDeparture(st)
			if dep <= 0 {
				continue
			}
			span, ok := spans[trip.Service.Id]
			if !ok {
				spans[trip.Service.Id] = schedule.TimeRange{Start: dep, End: dep + time.Second}
				continue
			}
			if dep < span.Start {
				span.Start = dep
			}
			if dep+time.Second > span.End {
				span.End = dep + time.Second
			}
			spans[trip.Service.Id] = span
		}
	}
	return spans
}

func appendTripEdges(
	artifact *network.Artifact,
	trip gtfs.ScheduledTrip,
	match schedule.MatchResult,
	base *network.Matcher,
	alloc *network.Allocator,
	edgeByPair map[[2]int64]int,
	opts Options,
) error {
	stopTimes := orderedStopTimes(trip)
	routeType := "UNKNOWN"
	if trip.Route != nil {
		routeType = trip.Route.Type.String()
	}

	for i := 0; i+1 < len(stopTimes); i++ {
		src, dst := stopTimes[i], stopTimes[i+1]
		departure := stopDeparture(src)
		if departure <= 0 {
			return fmt.Errorf("trip %s: stop %s has no arrival or departure time", trip.ID, src.Stop.Id)
		}
		// Clip to the matched time-of-day window when one was requested.
		if match.Times != nil && (departure < match.Times.Start || departure >= match.Times.End) {
			continue
		}

		srcPoint, srcOK := stopLocation(src.Stop)
		dstPoint, dstOK := stopLocation(dst.Stop)
		if !srcOK || !dstOK {
			if opts.MissingStopLocation == DropMissingStop {
				continue
			}
			return fmt.Errorf("%w: trip %s between stops %s and %s",
				ErrMissingStopLocation, trip.ID, src.Stop.Id, dst.Stop.Id)
		}

		from := resolveVertex(srcPoint, base, alloc)
		to := resolveVertex(dstPoint, base, alloc)

		pair := [2]int64{from, to}
		idx, ok := edgeByPair[pair]
		if !ok {
			traversal := stopArrival(dst) - departure
			if traversal < 0 {
				traversal = 0
			}
			artifact.Edges = append(artifact.Edges, network.Edge{
				EdgeID:         len(artifact.Edges),
				From:           from,
				To:             to,
				Geometry:       orb.LineString{srcPoint, dstPoint},
				DistanceMeters: geo.DistanceHaversine(srcPoint, dstPoint),
				Traversal:      traversal,
				RouteType:      routeType,
			})
			idx = len(artifact.Edges) - 1
			edgeByPair[pair] = idx
		}
		artifact.Edges[idx].Departures = append(artifact.Edges[idx].Departures, departure)
	}
	return nil
}

func resolveVertex(p orb.Point, base *network.Matcher, alloc *network.Allocator) int64 {
	if id, ok := base.Nearest(p); ok {
		return id
	}
	return alloc.Allocate(p)
}

// stopLocation returns the stop's coordinate, falling back one level to
// the parent station when the stop itself has none.
func stopLocation(stop *gtfs.Stop) (orb.Point, bool) {
	if stop == nil {
		return orb.Point{}, false
	}
	if stop.Longitude != nil && stop.Latitude != nil {
		return orb.Point{*stop.Longitude, *stop.Latitude}, true
	}
	parent := stop.Parent
	if parent != nil && parent.Longitude != nil && parent.Latitude != nil {
		return orb.Point{*parent.Longitude, *parent.Latitude}, true
	}
	return orb.Point{}, false
}

// stopDeparture picks the departure time, falling back to the arrival
// time when no departure is recorded.
func stopDeparture(st gtfs.ScheduledStopTime) time.Duration {
	if st.DepartureTime > 0 {
		return st.DepartureTime
	}
	return st.ArrivalTime
}

func stopArrival(st gtfs.ScheduledStopTime) time.Duration {
	if st.ArrivalTime > 0 {
		return st.ArrivalTime
	}
	return st.DepartureTime
}

func orderedStopTimes(trip gtfs.ScheduledTrip) []gtfs.ScheduledStopTime {
	ordered := make([]gtfs.ScheduledStopTime, len(trip.StopTimes))
	copy(ordered, trip.StopTimes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StopSequence < ordered[j].StopSequence
	})
	return ordered
}
