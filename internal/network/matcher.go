package network

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// metersPerDegree approximates one degree of latitude. Longitude degrees
// shrink with cos(lat), so queries widen their x-axis bucket scan by
// 1/cos(lat) to keep covering one full tolerance in meters.
const metersPerDegree = 111000.0

// Matcher snaps coordinates onto the nearest base-network vertex within
// a distance tolerance. Matching is a pure function of the coordinate
// given the same base network and tolerance: candidates are compared by
// distance, then by smaller vertex id, independent of processing order.
type Matcher struct {
	tolerance float64 // meters
	cellSize  float64 // degrees
	buckets   map[[2]int][]int
	vertices  []Vertex
	maxID     int64
}

// NewMatcher indexes the base-network vertices into a bucket grid sized
// to the tolerance so a nearest query only inspects the bucket
// neighborhood of the probe point.
func NewMatcher(vertices []Vertex, toleranceMeters float64) *Matcher {
	m := &Matcher{
		tolerance: toleranceMeters,
		cellSize:  toleranceMeters / metersPerDegree,
		buckets:   make(map[[2]int][]int),
		vertices:  vertices,
	}
	if m.cellSize <= 0 {
		m.cellSize = 1.0 / metersPerDegree
	}
	for i, v := range vertices {
		key := m.bucket(v.Point)
		m.buckets[key] = append(m.buckets[key], i)
		if v.ID > m.maxID {
			m.maxID = v.ID
		}
	}
	return m
}

// MaxBaseID is the largest vertex id in the base network.
func (m *Matcher) MaxBaseID() int64 {
	return m.maxID
}

func (m *Matcher) bucket(p orb.Point) [2]int {
	return [2]int{
		int(math.Floor(p[0] / m.cellSize)),
		int(math.Floor(p[1] / m.cellSize)),
	}
}

// xCellRadius is the bucket scan radius along the x axis. Cells are one
// tolerance of latitude wide, but one tolerance of longitude spans
// 1/cos(lat) cells, so the scan stretches with latitude. cos(lat) is
// clamped so near-polar probes stay bounded.
func (m *Matcher) xCellRadius(lat float64) int {
	c := math.Cos(lat * math.Pi / 180)
	if c < 0.01 {
		c = 0.01
	}
	return int(math.Ceil(1 / c))
}

// Nearest returns the id of the closest base vertex within the
// tolerance, using haversine distance over lon/lat coordinates. Ties at
// equal distance resolve to the smaller vertex id.
func (m *Matcher) Nearest(p orb.Point) (int64, bool) {
	center := m.bucket(p)
	bestID := int64(-1)
	bestDist := math.Inf(1)
	rx := m.xCellRadius(p[1])
	for dx := -rx; dx <= rx; dx++ {
		for dy := -1; dy <= 1; dy++ {
			key := [2]int{center[0] + dx, center[1] + dy}
			for _, i := range m.buckets[key] {
				v := m.vertices[i]
				d := geo.DistanceHaversine(p, v.Point)
				if d > m.tolerance {
					continue
				}
				if d < bestDist || (d == bestDist && v.ID < bestID) {
					bestDist = d
					bestID = v.ID
				}
			}
		}
	}
	if bestID < 0 {
		return 0, false
	}
	return bestID, true
}

// Allocator hands out new vertex ids above the base network's id space.
// Each bundle owns one allocator; repeated coordinates reuse their
// earlier allocation so matching stays a function of the coordinate set.
type Allocator struct {
	next    int64
	byCoord map[orb.Point]int64
	added   []Vertex
}

func (m *Matcher) NewAllocator() *Allocator {
	return &Allocator{
		next:    m.maxID + 1,
		byCoord: make(map[orb.Point]int64),
	}
}

// Allocate returns the new-vertex id for the coordinate, creating one if
// it has not been seen in this bundle.
func (a *Allocator) Allocate(p orb.Point) int64 {
	if id, ok := a.byCoord[p]; ok {
		return id
	}
	id := a.next
	a.next++
	a.byCoord[p] = id
	a.added = append(a.added, Vertex{ID: id, Point: p})
	return id
}

// Vertices returns the vertices allocated so far, in allocation order.
func (a *Allocator) Vertices() []Vertex {
	return a.added
}
