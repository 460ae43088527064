package model

import (
	"math"
	"time"
)

// KdjPoint holds the KDJ triple for one date.
// J is unbounded; any of the three may be NaN when the high/low window had zero width.
type KdjPoint struct {
	Date time.Time
	K    float64
	D    float64
	J    float64
}

// Valid reports whether the point carries usable values.
func (p KdjPoint) Valid() bool {
	return !math.IsNaN(p.K) && !math.IsNaN(p.D) && !math.IsNaN(p.J)
}

// EnrichedBar is a price bar joined with its KDJ values.
type EnrichedBar struct {
	PriceBar
	K float64
	D float64
	J float64
}

// EnrichedSeries is the inner join of a price series with its KDJ points.
type EnrichedSeries []EnrichedBar

// Bars strips the indicator columns.
func (s EnrichedSeries) Bars() PriceSeries {
	out := make(PriceSeries, len(s))
	for i, e := range s {
		out[i] = e.PriceBar
	}
	return out
}

// Last returns the most recent row.
func (s EnrichedSeries) Last() (EnrichedBar, bool) {
	if len(s) == 0 {
		return EnrichedBar{}, false
	}
	return s[len(s)-1], true
}

// History is what gets cached per ticker: every bar, including the warm-up
// bars that have no KDJ yet, plus the KDJ points aligned by date.
type History struct {
	Bars PriceSeries
	KDJ  []KdjPoint
}

// LastDate returns the date of the newest bar.
func (h History) LastDate() (time.Time, bool) {
	last, ok := h.Bars.Last()
	return last.Date, ok
}

// Enriched joins bars and KDJ points on date, dropping bars without a point.
func (h History) Enriched() EnrichedSeries {
	points := make(map[time.Time]KdjPoint, len(h.KDJ))
	for _, p := range h.KDJ {
		points[p.Date] = p
	}
	out := make(EnrichedSeries, 0, len(h.KDJ))
	for _, b := range h.Bars {
		p, ok := points[b.Date]
		if !ok {
			continue
		}
		out = append(out, EnrichedBar{PriceBar: b, K: p.K, D: p.D, J: p.J})
	}
	return out
}
