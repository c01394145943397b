package search

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
)

// BoundaryKind enumerates the boundary-geometry algorithms. The set is
// closed: new algorithms extend the enum and the switch in Hull.
type BoundaryKind int

const (
	ConvexHull BoundaryKind = iota
)

// ParseBoundaryKind maps a configuration name to a boundary algorithm.
func ParseBoundaryKind(s string) (BoundaryKind, error) {
	switch s {
	case "", "convex_hull":
		return ConvexHull, nil
	}
	return 0, fmt.Errorf("unknown boundary algorithm %q", s)
}

// Boundary derives a boundary polygon from the reached points of one
// time bin.
type Boundary struct {
	Kind BoundaryKind
}

// Hull returns the boundary polygon for the points. Fewer than three
// distinct points yield an empty polygon.
func (b Boundary) Hull(points []orb.Point) orb.Polygon {
	switch b.Kind {
	case ConvexHull:
		return convexHull(points)
	}
	return orb.Polygon{}
}

// convexHull is the monotone-chain construction, closed so the ring's
// first and last points coincide.
func convexHull(points []orb.Point) orb.Polygon {
	pts := dedupe(points)
	if len(pts) < 3 {
		return orb.Polygon{}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	var lower []orb.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	var upper []orb.Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	// Collinear input collapses to a chain with no interior.
	if len(lower) < 3 {
		return orb.Polygon{}
	}

	ring := make(orb.Ring, 0, len(lower)+len(upper)-1)
	ring = append(ring, lower...)
	ring = append(ring, upper[1:]...)
	return orb.Polygon{ring}
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}

func dedupe(points []orb.Point) []orb.Point {
	seen := make(map[orb.Point]struct{}, len(points))
	out := make([]orb.Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
