package network

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Bundle:          "test.zip",
		BaseMaxVertexID: 100,
		Edges: []Edge{
			{
				EdgeID:         0,
				From:           50,  // base vertex
				To:             101, // provisional new vertex
				Geometry:       orb.LineString{{-115.0, 36.0}, {-115.05, 36.0}},
				DistanceMeters: 4500,
				Traversal:      10 * time.Minute,
				Departures:     []time.Duration{8 * time.Hour, 9 * time.Hour},
				RouteType:      "BUS",
			},
		},
		NewVertices: []Vertex{
			{ID: 101, Point: orb.Point{-115.05, 36.0}},
		},
	}
}

func TestRenumber(t *testing.T) {
	a := sampleArtifact()

	a.Renumber(7, 25)

	assert.Equal(t, 7, a.EdgeListID)
	assert.Equal(t, 7, a.Edges[0].EdgeListID)
	assert.Equal(t, int64(50), a.Edges[0].From, "base vertex ids are untouched")
	assert.Equal(t, int64(126), a.Edges[0].To, "provisional ids shift by the offset")
	assert.Equal(t, int64(126), a.NewVertices[0].ID)
}

func TestWriteAndLoadVerticesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := sampleArtifact()
	a.Renumber(3, 0)

	require.NoError(t, a.Write(dir, false))

	vertices, err := LoadVertices(filepath.Join(dir, "vertices-3.csv.gz"))
	require.NoError(t, err)
	require.Len(t, vertices, 1)
	assert.Equal(t, int64(101), vertices[0].ID)
	assert.InDelta(t, -115.05, vertices[0].Point[0], 1e-9)
	assert.InDelta(t, 36.0, vertices[0].Point[1], 1e-9)

	// The edges file exists alongside.
	_, err = LoadVertices(filepath.Join(dir, "edges-3.csv.gz"))
	assert.Error(t, err, "edges file has a different schema")
}

func TestWriteRefusesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	a := sampleArtifact()
	a.Renumber(3, 0)

	require.NoError(t, a.Write(dir, false))
	assert.Error(t, a.Write(dir, false))
	assert.NoError(t, a.Write(dir, true), "overwrite replaces existing artifacts")
}

func TestLoadVerticesMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vertices.csv")
	writeFile(t, path, "vertex_id,lon,lat\n1,-115.0,36.0\n")

	_, err := LoadVertices(path)
	assert.Error(t, err)
}

func TestLoadVerticesPlainCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vertices.csv")
	writeFile(t, path, "vertex_id,x,y\n1,-115.0,36.0\n2,-115.1,36.1\n")

	vertices, err := LoadVertices(path)
	require.NoError(t, err)
	require.Len(t, vertices, 2)
	assert.Equal(t, int64(2), vertices[1].ID)
}
