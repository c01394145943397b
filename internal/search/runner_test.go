package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsolatesMalformedRecords(t *testing.T) {
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "queries.ndjson")
	require.NoError(t, os.WriteFile(queryPath, []byte(
		`{"grid_id": "c1", "mode": "walk", "origin_x": 0, "origin_y": 0}
{"grid_id": "c2", "mode": "walk", broken}
{"grid_id": "c3", "mode": "walk", "origin_x": 0.001, "origin_y": 0}
`), 0o644))

	loader, err := OpenLoader(queryPath, 10)
	require.NoError(t, err)
	defer loader.Close()

	stub := &stubSearcher{samples: []Sample{
		{Point: orb.Point{0, 0}, Time: time.Minute},
		{Point: orb.Point{0.01, 0}, Time: 2 * time.Minute},
		{Point: orb.Point{0.01, 0.01}, Time: 3 * time.Minute},
	}}
	engine := NewEngine(stub, []int{15}, Boundary{Kind: ConvexHull}, testLogger())

	outDir := filepath.Join(dir, "out")
	writer, err := NewWriter(outDir, []int{15})
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), loader, engine, writer, 2, testLogger()))
	require.NoError(t, writer.Close())

	iso := readCSV(t, filepath.Join(outDir, "isochrones.csv"))
	assert.Len(t, iso, 3, "header plus one row per valid query")

	errRows := readCSV(t, filepath.Join(outDir, "errors.csv"))
	require.Len(t, errRows, 2, "header plus exactly one malformed record")
	assert.Equal(t, "query-line-2", errRows[1][0])
	assert.Equal(t, "2", errRows[1][1])

	full := readNDJSON(t, filepath.Join(outDir, "complete.ndjson"))
	assert.Len(t, full, 2)
}

func TestRunRecordsFailedQueries(t *testing.T) {
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "queries.json")
	require.NoError(t, os.WriteFile(queryPath, []byte(
		`[{"grid_id": "c1", "mode": "walk"}, {"grid_id": "c2", "mode": "walk"}]`), 0o644))

	loader, err := OpenLoader(queryPath, 0)
	require.NoError(t, err)
	defer loader.Close()

	// Every search fails; both queries must land in errors.csv and the
	// run itself still succeeds.
	stub := &stubSearcher{err: assert.AnError}
	engine := NewEngine(stub, []int{10}, Boundary{Kind: ConvexHull}, testLogger())

	outDir := filepath.Join(dir, "out")
	writer, err := NewWriter(outDir, []int{10})
	require.NoError(t, err)

	require.NoError(t, Run(context.Background(), loader, engine, writer, 1, testLogger()))
	require.NoError(t, writer.Close())

	iso := readCSV(t, filepath.Join(outDir, "isochrones.csv"))
	assert.Len(t, iso, 1, "header only")

	errRows := readCSV(t, filepath.Join(outDir, "errors.csv"))
	require.Len(t, errRows, 3)
	ids := []string{errRows[1][0], errRows[2][0]}
	assert.ElementsMatch(t, []string{"c1/walk", "c2/walk"}, ids)
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	queryPath := filepath.Join(dir, "queries.json")
	require.NoError(t, os.WriteFile(queryPath, []byte(
		`[{"grid_id": "c1", "mode": "walk"}]`), 0o644))

	loader, err := OpenLoader(queryPath, 0)
	require.NoError(t, err)
	defer loader.Close()

	engine := NewEngine(&stubSearcher{}, []int{10}, Boundary{Kind: ConvexHull}, testLogger())
	writer, err := NewWriter(filepath.Join(dir, "out"), []int{10})
	require.NoError(t, err)
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Run(ctx, loader, engine, writer, 1, testLogger()), context.Canceled)
}
