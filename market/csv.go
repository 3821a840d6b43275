package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
	"github.com/xyproto/unzip"
)

// LoadBars reads an OHLCV dataset for symbol from path. Plain .csv files
// are read directly, .xz files are decompressed on the fly, and .zip
// archives are extracted to a temp dir and the first .csv inside is used.
func LoadBars(path, symbol string) ([]Bar, error) {
	switch {
	case strings.HasSuffix(path, ".xz"):
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("market: open xz dataset %s: %w", path, err)
		}
		return ReadBars(r, symbol)

	case strings.HasSuffix(path, ".zip"):
		dir, err := os.MkdirTemp("", "backsim-dataset-")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		if err := unzip.Extract(path, dir); err != nil {
			return nil, fmt.Errorf("market: extract dataset %s: %w", path, err)
		}
		matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("market: no csv found inside %s", path)
		}
		f, err := os.Open(matches[0])
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadBars(f, symbol)

	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadBars(f, symbol)
	}
}

// ReadBars parses CSV bar data. The header row is matched
// case-insensitively; "timestamp", "date", "datetime" and "time" are all
// accepted for the time column. Volume is optional.
func ReadBars(r io.Reader, symbol string) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("market: read csv header: %w", err)
	}

	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}

	tcol, ok := firstIndex(idx, "timestamp", "date", "datetime", "time")
	if !ok {
		return nil, fmt.Errorf("market: csv has no timestamp column (header: %v)", header)
	}
	ocol, ok := firstIndex(idx, "open")
	if !ok {
		return nil, fmt.Errorf("market: csv has no open column")
	}
	hcol, _ := firstIndex(idx, "high")
	lcol, _ := firstIndex(idx, "low")
	ccol, ok := firstIndex(idx, "close")
	if !ok {
		return nil, fmt.Errorf("market: csv has no close column")
	}
	vcol, hasVol := firstIndex(idx, "volume", "vol")

	var bars []Bar
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("market: csv line %d: %w", line, err)
		}

		ts, err := parseTime(rec[tcol])
		if err != nil {
			return nil, fmt.Errorf("market: csv line %d: %w", line, err)
		}

		b := Bar{Symbol: symbol, Time: ts}
		if b.Open, err = strconv.ParseFloat(rec[ocol], 64); err != nil {
			return nil, fmt.Errorf("market: csv line %d open: %w", line, err)
		}
		if b.Close, err = strconv.ParseFloat(rec[ccol], 64); err != nil {
			return nil, fmt.Errorf("market: csv line %d close: %w", line, err)
		}
		b.High, b.Low = b.Open, b.Open
		if hcol >= 0 {
			if b.High, err = strconv.ParseFloat(rec[hcol], 64); err != nil {
				return nil, fmt.Errorf("market: csv line %d high: %w", line, err)
			}
		}
		if lcol >= 0 {
			if b.Low, err = strconv.ParseFloat(rec[lcol], 64); err != nil {
				return nil, fmt.Errorf("market: csv line %d low: %w", line, err)
			}
		}
		if hasVol && rec[vcol] != "" {
			if b.Volume, err = strconv.ParseFloat(rec[vcol], 64); err != nil {
				return nil, fmt.Errorf("market: csv line %d volume: %w", line, err)
			}
		}
		bars = append(bars, b)
	}

	if err := ValidateSeries(bars); err != nil {
		return nil, err
	}
	return bars, nil
}

func firstIndex(idx map[string]int, names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := idx[n]; ok {
			return i, true
		}
	}
	return -1, false
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
