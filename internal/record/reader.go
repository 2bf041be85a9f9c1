package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// Scanner buffer sizing. A single record line carries every subject of one
// student; the largest observed lines are well under 1 MiB.
const (
	initialBufSize = 64 * 1024
	maxLineSize    = 4 * 1024 * 1024
)

// Stats counts the outcome of one read pass.
type Stats struct {
	Lines            int
	Records          int
	ParseErrors      int
	ValidationErrors int
}

// ReadAll reads newline-delimited JSON records from r and normalizes each
// line. Ranking needs full-set visibility, so the whole run is materialized
// in memory before loading.
//
// Malformed lines never abort the pass: each is reported through onErr with
// its 1-based line number, counted, and skipped. Only an I/O failure on the
// underlying reader returns an error.
func ReadAll(r io.Reader, onErr func(line int, err error)) ([]*Record, Stats, error) {
	var (
		out   []*Record
		stats Stats
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, initialBufSize), maxLineSize)

	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		stats.Lines++

		rec, err := Parse(raw)
		if err != nil {
			if errors.Is(err, ErrInvalidJSON) {
				stats.ParseErrors++
			} else {
				stats.ValidationErrors++
			}
			if onErr != nil {
				onErr(line, err)
			}
			continue
		}

		out = append(out, rec)
		stats.Records++
	}
	if err := sc.Err(); err != nil {
		return out, stats, fmt.Errorf("read line %d: %w", line+1, err)
	}

	return out, stats, nil
}
