package search

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// Loader reads a query file as either one JSON array or newline-delimited
// JSON objects, yielding queries in bounded chunks so a batch never needs
// the whole file in memory. A loader is forward-only; restarting means
// opening a new one.
type Loader struct {
	chunkSize int

	// array mode
	queries []Query
	pos     int

	// newline-delimited mode
	file    *os.File
	scanner *bufio.Scanner
	line    int

	done bool
}

// maxQueryLine bounds one newline-delimited record.
const maxQueryLine = 4 * 1024 * 1024

// OpenLoader opens a query file. The format is detected from the first
// non-whitespace byte: '[' means a single JSON array (a malformed array
// is fatal), anything else is treated as newline-delimited JSON where
// malformed records fail only themselves. chunkSize <= 0 disables
// chunking and yields everything in one chunk.
func OpenLoader(path string, chunkSize int) (*Loader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening query file: %w", err)
	}

	head := make([]byte, 64)
	n, err := f.Read(head)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewinding query file: %w", err)
	}

	trimmed := bytes.TrimLeft(head[:n], " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("reading query file: %w", err)
		}
		var queries []Query
		if err := json.Unmarshal(b, &queries); err != nil {
			return nil, fmt.Errorf("parsing query array: %w", err)
		}
		return &Loader{chunkSize: chunkSize, queries: queries}, nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxQueryLine)
	return &Loader{chunkSize: chunkSize, file: f, scanner: scanner}, nil
}

// Next returns the next chunk of queries plus error records for any
// malformed newline-delimited rows in it. It returns io.EOF once the
// file is exhausted.
func (l *Loader) Next() ([]Query, []ErrorRecord, error) {
	if l.done {
		return nil, nil, io.EOF
	}
	if l.file == nil {
		return l.nextFromArray()
	}
	return l.nextFromLines()
}

func (l *Loader) nextFromArray() ([]Query, []ErrorRecord, error) {
	if l.pos >= len(l.queries) {
		l.done = true
		return nil, nil, io.EOF
	}
	end := len(l.queries)
	if l.chunkSize > 0 && l.pos+l.chunkSize < end {
		end = l.pos + l.chunkSize
	}
	chunk := l.queries[l.pos:end]
	l.pos = end
	return chunk, nil, nil
}

func (l *Loader) nextFromLines() ([]Query, []ErrorRecord, error) {
	var chunk []Query
	var errs []ErrorRecord
	for l.scanner.Scan() {
		l.line++
		text := strings.TrimSpace(l.scanner.Text())
		if text == "" {
			continue
		}
		var q Query
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			errs = append(errs, ErrorRecord{
				ID:       fmt.Sprintf("query-line-%d", l.line),
				Position: l.line,
				Message:  fmt.Sprintf("malformed query record: %v", err),
			})
			continue
		}
		chunk = append(chunk, q)
		if l.chunkSize > 0 && len(chunk) >= l.chunkSize {
			return chunk, errs, nil
		}
	}
	if err := l.scanner.Err(); err != nil {
		return chunk, errs, fmt.Errorf("reading query file: %w", err)
	}
	l.done = true
	if len(chunk) == 0 && len(errs) == 0 {
		return nil, nil, io.EOF
	}
	return chunk, errs, nil
}

func (l *Loader) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
