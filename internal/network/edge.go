package network

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// Edge is one directed transit edge in the vectorized network format.
type Edge struct {
	EdgeListID int
	EdgeID     int
	From       int64
	To         int64
	Geometry   orb.LineString
	// DistanceMeters is the haversine length of the edge.
	DistanceMeters float64
	// Traversal is the scheduled traversal time between the endpoints.
	Traversal time.Duration
	// Departures lists the scheduled departures from the source stop,
	// measured from midnight of the service date.
	Departures []time.Duration
	RouteType  string
}

// Artifact is one bundle's self-contained edge/vertex output, tagged
// with a single edge-list id once the batch outcome is known.
type Artifact struct {
	Bundle      string
	EdgeListID  int
	Edges       []Edge
	NewVertices []Vertex
	// BaseMaxVertexID separates base-network vertex ids from the
	// provisional ids allocated for this bundle's new vertices.
	BaseMaxVertexID int64
}

// Renumber finalizes the artifact after the batch barrier: it tags every
// edge with the assigned edge-list id and shifts the bundle's
// provisional new-vertex ids by the cumulative new-vertex count of
// earlier successful bundles, making final ids globally unique.
func (a *Artifact) Renumber(edgeListID int, vertexIDOffset int64) {
	a.EdgeListID = edgeListID
	for i := range a.NewVertices {
		a.NewVertices[i].ID += vertexIDOffset
	}
	for i := range a.Edges {
		a.Edges[i].EdgeListID = edgeListID
		if a.Edges[i].From > a.BaseMaxVertexID {
			a.Edges[i].From += vertexIDOffset
		}
		if a.Edges[i].To > a.BaseMaxVertexID {
			a.Edges[i].To += vertexIDOffset
		}
	}
}

// Write emits the artifact as edges-<id>.csv.gz and vertices-<id>.csv.gz
// under dir, in the same tabular format as the base network.
func (a *Artifact) Write(dir string, overwrite bool) error {
	edgesPath := filepath.Join(dir, fmt.Sprintf("edges-%d.csv.gz", a.EdgeListID))
	verticesPath := filepath.Join(dir, fmt.Sprintf("vertices-%d.csv.gz", a.EdgeListID))
	if !overwrite {
		for _, p := range []string{edgesPath, verticesPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("output %s already exists", p)
			}
		}
	}
	if err := a.writeEdges(edgesPath); err != nil {
		return err
	}
	return a.writeVertices(verticesPath)
}

func (a *Artifact) writeEdges(path string) (err error) {
	w, closeAll, err := newGzipCSV(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeAll(); err == nil {
			err = cerr
		}
	}()

	header := []string{
		"edge_list_id", "edge_id", "src_vertex_id", "dst_vertex_id",
		"distance", "travel_time", "departures", "route_type", "geometry",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range a.Edges {
		record := []string{
			strconv.Itoa(e.EdgeListID),
			strconv.Itoa(e.EdgeID),
			strconv.FormatInt(e.From, 10),
			strconv.FormatInt(e.To, 10),
			strconv.FormatFloat(e.DistanceMeters, 'f', 2, 64),
			strconv.FormatFloat(e.Traversal.Seconds(), 'f', 0, 64),
			formatDepartures(e.Departures),
			e.RouteType,
			wkt.MarshalString(e.Geometry),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (a *Artifact) writeVertices(path string) (err error) {
	w, closeAll, err := newGzipCSV(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeAll(); err == nil {
			err = cerr
		}
	}()

	if err := w.Write([]string{"vertex_id", "x", "y"}); err != nil {
		return err
	}
	for _, v := range a.NewVertices {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			strconv.FormatFloat(v.Point[0], 'f', -1, 64),
			strconv.FormatFloat(v.Point[1], 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func newGzipCSV(path string) (*csv.Writer, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	gz := gzip.NewWriter(f)
	w := csv.NewWriter(gz)
	closeAll := func() error {
		w.Flush()
		if err := w.Error(); err != nil {
			gz.Close()
			f.Close()
			return err
		}
		if err := gz.Close(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return w, closeAll, nil
}

// formatDepartures joins departure offsets as whole seconds.
func formatDepartures(departures []time.Duration) string {
	parts := make([]string, len(departures))
	for i, d := range departures {
		parts[i] = strconv.FormatInt(int64(d.Seconds()), 10)
	}
	return strings.Join(parts, ";")
}
