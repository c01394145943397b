package search

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// Writer streams results and errors to three independent append-only
// outputs: isochrones.csv (one flattened row per cell/mode with a WKT
// column per time bin), complete.ndjson (the full per-row result
// objects), and errors.csv. Each write is atomic per record and guarded
// per stream; ordering within a stream follows completion order, and no
// ordering holds across streams.
type Writer struct {
	bins []int

	isoMu   sync.Mutex
	isoFile *os.File
	iso     *csv.Writer

	fullMu   sync.Mutex
	fullFile *os.File
	full     *bufio.Writer

	errMu   sync.Mutex
	errFile *os.File
	errs    *csv.Writer
}

// NewWriter creates the three output files under dir and writes the csv
// headers. bins fixes the isochrone column set for the whole run.
func NewWriter(dir string, bins []int) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	sorted := make([]int, len(bins))
	copy(sorted, bins)
	sort.Ints(sorted)

	w := &Writer{bins: sorted}
	var err error
	if w.isoFile, err = os.Create(filepath.Join(dir, "isochrones.csv")); err != nil {
		return nil, err
	}
	if w.fullFile, err = os.Create(filepath.Join(dir, "complete.ndjson")); err != nil {
		w.isoFile.Close()
		return nil, err
	}
	if w.errFile, err = os.Create(filepath.Join(dir, "errors.csv")); err != nil {
		w.isoFile.Close()
		w.fullFile.Close()
		return nil, err
	}
	w.iso = csv.NewWriter(w.isoFile)
	w.full = bufio.NewWriter(w.fullFile)
	w.errs = csv.NewWriter(w.errFile)

	header := []string{"grid_id", "mode"}
	for _, bin := range sorted {
		header = append(header, fmt.Sprintf("isochrone_%d", bin))
	}
	if err := w.iso.Write(header); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.errs.Write([]string{"id", "position", "error"}); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// WriteResult appends one flattened isochrone row and one full-result
// line. Bins missing from the result leave their column empty.
func (w *Writer) WriteResult(r *CellResult) error {
	byBin := make(map[int]string, len(r.Isochrones))
	for _, iso := range r.Isochrones {
		byBin[iso.Bin] = iso.Geometry
	}
	record := []string{r.GridID, r.Mode}
	for _, bin := range w.bins {
		record = append(record, byBin[bin])
	}

	w.isoMu.Lock()
	err := w.iso.Write(record)
	w.iso.Flush()
	if err == nil {
		err = w.iso.Error()
	}
	w.isoMu.Unlock()
	if err != nil {
		return fmt.Errorf("writing isochrone row: %w", err)
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding full result: %w", err)
	}
	w.fullMu.Lock()
	_, err = w.full.Write(append(line, '\n'))
	if err == nil {
		err = w.full.Flush()
	}
	w.fullMu.Unlock()
	if err != nil {
		return fmt.Errorf("writing full result: %w", err)
	}
	return nil
}

// WriteError appends one error row.
func (w *Writer) WriteError(rec ErrorRecord) error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if err := w.errs.Write([]string{rec.ID, strconv.Itoa(rec.Position), rec.Message}); err != nil {
		return fmt.Errorf("writing error row: %w", err)
	}
	w.errs.Flush()
	return w.errs.Error()
}

func (w *Writer) Close() error {
	var firstErr error
	w.iso.Flush()
	if err := w.iso.Error(); firstErr == nil && err != nil {
		firstErr = err
	}
	if err := w.full.Flush(); firstErr == nil && err != nil {
		firstErr = err
	}
	w.errs.Flush()
	if err := w.errs.Error(); firstErr == nil && err != nil {
		firstErr = err
	}
	for _, f := range []*os.File{w.isoFile, w.fullFile, w.errFile} {
		if err := f.Close(); firstErr == nil && err != nil {
			firstErr = err
		}
	}
	return firstErr
}
