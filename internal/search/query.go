// Package search evaluates per-grid-cell constrained searches against a
// merged network and aggregates the results into isochrone summaries.
package search

import "fmt"

// Query is one evaluable unit: a grid cell origin, a travel mode, and a
// configuration reference, plus an optional per-query time-bin override.
type Query struct {
	GridID  string  `json:"grid_id"`
	Mode    string  `json:"mode"`
	OriginX float64 `json:"origin_x"`
	OriginY float64 `json:"origin_y"`
	// Geometry is the cell's extent as WKT. It is carried through to the
	// full-result output and not interpreted here.
	Geometry string `json:"geometry,omitempty"`
	Config   string `json:"config,omitempty"`
	// TimeBins overrides the run-level bin thresholds, in minutes.
	TimeBins []int `json:"time_bins,omitempty"`
}

// Key identifies the query in error rows.
func (q Query) Key() string {
	return fmt.Sprintf("%s/%s", q.GridID, q.Mode)
}

// IsochroneResult is one boundary geometry for one time bin. Immutable
// once produced.
type IsochroneResult struct {
	GridID string `json:"grid_id"`
	Mode   string `json:"mode"`
	// Bin is the time threshold in minutes.
	Bin int `json:"time_bin"`
	// Geometry is the boundary as WKT.
	Geometry string `json:"geometry"`
}

// CellResult is the full per-row result object for one (cell, mode)
// evaluation, ordered by bin.
type CellResult struct {
	GridID     string            `json:"grid_id"`
	Mode       string            `json:"mode"`
	Config     string            `json:"config,omitempty"`
	Isochrones []IsochroneResult `json:"isochrones"`
}

// ErrorRecord captures one failed unit without blocking its siblings.
type ErrorRecord struct {
	// ID names the failed unit (query key, or bundle path).
	ID string `json:"id"`
	// Position is the record's position in the query file, when known.
	Position int    `json:"position,omitempty"`
	Message  string `json:"error"`
}
