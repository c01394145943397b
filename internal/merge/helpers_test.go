package merge

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"

	"isogrid.org/internal/network"
	"isogrid.org/internal/schedule"
)

// bundleSpec parameterizes a minimal two-stop GTFS archive.
type bundleSpec struct {
	serviceStart string // yyyymmdd
	serviceEnd   string
	// secondTrip adds a later trip over the same stop pair.
	secondTrip bool
	// dropStopLocation removes the second stop's coordinate.
	dropStopLocation bool
}

func writeBundle(t *testing.T, path string, spec bundleSpec) {
	t.Helper()

	stopB := "sB,Stop B,36.0000,-115.0500\n"
	if spec.dropStopLocation {
		stopB = "sB,Stop B,,\n"
	}
	files := map[string]string{
		"agency.txt": "agency_id,agency_name,agency_url,agency_timezone\n" +
			"1,Test Transit,https://transit.example.com,America/Los_Angeles\n",
		"routes.txt": "route_id,agency_id,route_short_name,route_long_name,route_type\n" +
			"r1,1,1,The Loop,3\n",
		"stops.txt": "stop_id,stop_name,stop_lat,stop_lon\n" +
			"sA,Stop A,36.0000,-115.0000\n" +
			stopB,
		"calendar.txt": "service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date\n" +
			"svc,1,1,1,1,1,1,1," + spec.serviceStart + "," + spec.serviceEnd + "\n",
		"trips.txt": "route_id,service_id,trip_id\n" +
			"r1,svc,t1\n",
		"stop_times.txt": "trip_id,arrival_time,departure_time,stop_id,stop_sequence\n" +
			"t1,08:00:00,08:00:00,sA,1\n" +
			"t1,08:10:00,08:10:00,sB,2\n",
	}
	if spec.secondTrip {
		files["trips.txt"] += "r1,svc,t2\n"
		files["stop_times.txt"] += "t2,09:00:00,09:00:00,sA,1\n" +
			"t2,09:10:00,09:10:00,sB,2\n"
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

// testMatcher has one vertex at stop A's coordinate; stop B is several
// kilometers from every base vertex.
func testMatcher() *network.Matcher {
	return network.NewMatcher([]network.Vertex{
		{ID: 10, Point: orb.Point{-115.0, 36.0}},
		{ID: 11, Point: orb.Point{-115.2, 36.2}},
	}, 100)
}

func testOptions() Options {
	target := date(2024, 6, 5) // a Wednesday
	return Options{
		Window: schedule.Window{Start: target, End: target},
		Policy: schedule.Policy{Kind: schedule.ExactDate},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFileBytes(t *testing.T, path string, b []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
