package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"isogrid.org/internal/schedule"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFull(t *testing.T) {
	path := writeConfig(t, `
merge:
  input: ./bundles
  vertices_file: ./vertices.csv.gz
  output_directory: ./out
  starting_edge_list_id: 3
  parallelism: 4
  ignore_failures: true
  vertex_match_tolerance: 150
  missing_stop_location: drop_stop
  date_mapping:
    policy: nearest_date
    start_date: "2024-06-05"
    date_tolerance: 7
    match_weekday: true

access:
  query_file: ./queries.ndjson
  output_directory: ./iso
  vertices_file: ./vertices.csv.gz
  chunksize: 500
  parallelism: 8
  time_bins: [10, 20, 30]
  boundary: convex_hull
  speeds:
    walk: 1.3
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Merge)
	assert.Equal(t, 3, cfg.Merge.StartingEdgeListID)
	assert.True(t, cfg.Merge.IgnoreFailures)
	assert.Equal(t, 150.0, cfg.Merge.VertexMatchTolerance)
	assert.Equal(t, "drop_stop", cfg.Merge.MissingStopLocation)

	require.NotNil(t, cfg.Access)
	assert.Equal(t, []int{10, 20, 30}, cfg.Access.TimeBins)
	assert.Equal(t, 1.3, cfg.Access.Speeds["walk"])
}

func TestLoadConfigSingleSection(t *testing.T) {
	path := writeConfig(t, `
access:
  query_file: ./queries.json
  output_directory: ./iso
  vertices_file: ./vertices.csv.gz
  time_bins: [15]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Merge)
	require.NotNil(t, cfg.Access)
}

func TestLoadConfigValidation(t *testing.T) {
	cases := map[string]string{
		"merge missing input": `
merge:
  vertices_file: ./v.csv
  output_directory: ./out
  date_mapping:
    policy: exact_date
    start_date: "2024-06-05"
`,
		"bad policy name": `
merge:
  input: ./b.zip
  vertices_file: ./v.csv
  output_directory: ./out
  date_mapping:
    policy: fuzzy_date
    start_date: "2024-06-05"
`,
		"access without time bins": `
access:
  query_file: ./q.json
  output_directory: ./iso
  vertices_file: ./v.csv
`,
		"non-positive time bin": `
access:
  query_file: ./q.json
  output_directory: ./iso
  vertices_file: ./v.csv
  time_bins: [10, 0]
`,
		"unknown boundary": `
access:
  query_file: ./q.json
  output_directory: ./iso
  vertices_file: ./v.csv
  time_bins: [10]
  boundary: alpha_shape
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDateMappingSchedulePolicy(t *testing.T) {
	c := DateMappingConfig{Policy: "nearest_date_time_range", DateTolerance: 3, MatchWeekday: true}
	p, err := c.SchedulePolicy()
	require.NoError(t, err)
	assert.Equal(t, schedule.NearestDateTimeRange, p.Kind)
	assert.Equal(t, 3, p.DateTolerance)
	assert.True(t, p.MatchWeekday)

	_, err = DateMappingConfig{Policy: "whenever"}.SchedulePolicy()
	assert.Error(t, err)
}

func TestDateMappingWindow(t *testing.T) {
	t.Run("single date", func(t *testing.T) {
		w, err := DateMappingConfig{StartDate: "2024-06-05"}.Window()
		require.NoError(t, err)
		assert.Equal(t, w.Start, w.End)
		assert.Nil(t, w.Times)
	})

	t.Run("range with times", func(t *testing.T) {
		w, err := DateMappingConfig{
			StartDate: "2024-06-03",
			EndDate:   "2024-06-07",
			TimeStart: "07:00",
			TimeEnd:   "09:30",
		}.Window()
		require.NoError(t, err)
		require.NotNil(t, w.Times)
		assert.Equal(t, 7*time.Hour, w.Times.Start)
		assert.Equal(t, 9*time.Hour+30*time.Minute, w.Times.End)
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := DateMappingConfig{StartDate: "2024-06-07", EndDate: "2024-06-03"}.Window()
		assert.Error(t, err)
	})

	t.Run("time start without end", func(t *testing.T) {
		_, err := DateMappingConfig{StartDate: "2024-06-05", TimeStart: "07:00"}.Window()
		assert.ErrorContains(t, err, "set together")
	})

	t.Run("unparseable date", func(t *testing.T) {
		_, err := DateMappingConfig{StartDate: "06/05/2024"}.Window()
		assert.ErrorContains(t, err, "bad start_date")
	})

	t.Run("unparseable time", func(t *testing.T) {
		_, err := DateMappingConfig{StartDate: "2024-06-05", TimeStart: "7am", TimeEnd: "9am"}.Window()
		assert.ErrorContains(t, err, "bad time_start")
	})
}
