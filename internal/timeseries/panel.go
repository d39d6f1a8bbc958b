package timeseries

import (
	"fmt"
	"math"
	"time"
)

// Panel is an ordered collection of factor series sharing a time domain.
// Insertion order is preserved so that downstream output (rankings,
// redundancy groups, tie-breaks) is deterministic.
type Panel struct {
	ids    []string
	series map[string]Series
}

// NewPanel creates an empty panel.
func NewPanel() *Panel {
	return &Panel{series: make(map[string]Series)}
}

// Add appends a factor series under the given id. Duplicate ids are
// rejected so a panel is always a proper mapping.
func (p *Panel) Add(id string, s Series) error {
	if _, exists := p.series[id]; exists {
		return fmt.Errorf("duplicate factor id %q in panel", id)
	}
	p.ids = append(p.ids, id)
	p.series[id] = s
	return nil
}

// IDs returns the factor ids in insertion order.
func (p *Panel) IDs() []string {
	out := make([]string, len(p.ids))
	copy(out, p.ids)
	return out
}

// Get returns the series for the given factor id.
func (p *Panel) Get(id string) (Series, bool) {
	s, ok := p.series[id]
	return s, ok
}

// Len returns the number of factors in the panel.
func (p *Panel) Len() int { return len(p.ids) }

// CommonRows returns, for each timestamp present in every series with all
// values defined, the row of factor values in panel order. Used by the
// redundancy detector, which needs a rectangular valid-index intersection.
func (p *Panel) CommonRows() ([]time.Time, [][]float64) {
	if len(p.ids) == 0 {
		return nil, nil
	}

	// Count timestamp occurrences with defined values across all series.
	counts := make(map[time.Time]int)
	for _, id := range p.ids {
		s := p.series[id]
		for i := 0; i < s.Len(); i++ {
			if s.Defined(i) {
				counts[s.TimeAt(i)]++
			}
		}
	}

	// Walk the first series in time order to keep output deterministic.
	first := p.series[p.ids[0]]
	var index []time.Time
	for i := 0; i < first.Len(); i++ {
		ts := first.TimeAt(i)
		if counts[ts] == len(p.ids) {
			index = append(index, ts)
		}
	}

	rows := make([][]float64, len(index))
	position := make(map[string]map[time.Time]float64, len(p.ids))
	for _, id := range p.ids {
		s := p.series[id]
		byTime := make(map[time.Time]float64, s.Len())
		for i := 0; i < s.Len(); i++ {
			if s.Defined(i) {
				byTime[s.TimeAt(i)] = s.At(i)
			}
		}
		position[id] = byTime
	}
	for r, ts := range index {
		row := make([]float64, len(p.ids))
		for c, id := range p.ids {
			row[c] = position[id][ts]
		}
		rows[r] = row
	}
	return index, rows
}

// Column extracts one factor's values over the supplied common rows.
func Column(rows [][]float64, col int) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row[col]
	}
	return out
}

// Variance of a raw value slice, ignoring NaNs. Zero when fewer than two
// defined observations exist.
func Variance(values []float64) float64 {
	var sum, sumSq float64
	n := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		sumSq += v * v
		n++
	}
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	return (sumSq - float64(n)*mean*mean) / float64(n-1)
}
