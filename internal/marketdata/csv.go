// Package marketdata loads OHLCV bar history for evaluation runs.
package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/aristath/factorlab/internal/modules/factors"
)

// CSVProvider reads bars from a CSV file with a header row of
// time,open,high,low,close,volume. Time is RFC 3339 or a unix epoch in
// seconds. Rows are sorted by time on load.
type CSVProvider struct {
	Path string
}

// Bars loads and parses the file.
func (p CSVProvider) Bars(ctx context.Context) (factors.Bars, error) {
	f, err := os.Open(p.Path)
	if err != nil {
		return factors.Bars{}, fmt.Errorf("failed to open bars file: %w", err)
	}
	defer f.Close()
	return parse(ctx, f)
}

type row struct {
	t                    time.Time
	o, h, l, c, v        float64
}

func parse(ctx context.Context, r io.Reader) (factors.Bars, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return factors.Bars{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"time", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return factors.Bars{}, fmt.Errorf("CSV header missing column %q", required)
		}
	}

	var rows []row
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return factors.Bars{}, err
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return factors.Bars{}, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}
		t, err := parseTime(record[col["time"]])
		if err != nil {
			return factors.Bars{}, fmt.Errorf("line %d: %w", line, err)
		}
		var rw row
		rw.t = t
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &rw.o}, {"high", &rw.h}, {"low", &rw.l}, {"close", &rw.c}, {"volume", &rw.v},
		} {
			v, err := strconv.ParseFloat(record[col[field.name]], 64)
			if err != nil {
				return factors.Bars{}, fmt.Errorf("line %d: bad %s value %q", line, field.name, record[col[field.name]])
			}
			*field.dst = v
		}
		rows = append(rows, rw)
	}
	if len(rows) == 0 {
		return factors.Bars{}, fmt.Errorf("bars file contains no data rows")
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].t.Before(rows[j].t) })

	bars := factors.Bars{
		Times:  make([]time.Time, len(rows)),
		Open:   make([]float64, len(rows)),
		High:   make([]float64, len(rows)),
		Low:    make([]float64, len(rows)),
		Close:  make([]float64, len(rows)),
		Volume: make([]float64, len(rows)),
	}
	for i, rw := range rows {
		bars.Times[i] = rw.t
		bars.Open[i] = rw.o
		bars.High[i] = rw.h
		bars.Low[i] = rw.l
		bars.Close[i] = rw.c
		bars.Volume[i] = rw.v
	}
	return bars, nil
}

func parseTime(s string) (time.Time, error) {
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time value %q", s)
	}
	return t.UTC(), nil
}
