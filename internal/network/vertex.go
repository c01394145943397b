// Package network holds the vectorized road-network format shared by the
// base network and per-bundle transit overlays: vertices, edges, and the
// compressed tabular files they are exchanged in.
package network

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Vertex is one graph vertex. Base-network vertices are read-only
// inputs; transit vertices are allocated per bundle.
type Vertex struct {
	ID    int64
	Point orb.Point
}

// LoadVertices reads a base-network vertex file: a csv (optionally
// gzip-compressed, by extension) with vertex_id, x, y columns.
func LoadVertices(path string) ([]Vertex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening vertex file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading vertex file header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"vertex_id", "x", "y"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("vertex file %s is missing column %q", path, required)
		}
	}

	var vertices []Vertex
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading vertex file line %d: %w", line, err)
		}
		id, err := strconv.ParseInt(record[cols["vertex_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("vertex file line %d: bad vertex_id: %w", line, err)
		}
		x, err := strconv.ParseFloat(record[cols["x"]], 64)
		if err != nil {
			return nil, fmt.Errorf("vertex file line %d: bad x: %w", line, err)
		}
		y, err := strconv.ParseFloat(record[cols["y"]], 64)
		if err != nil {
			return nil, fmt.Errorf("vertex file line %d: bad y: %w", line, err)
		}
		vertices = append(vertices, Vertex{ID: id, Point: orb.Point{x, y}})
	}
	return vertices, nil
}
