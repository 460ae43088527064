package calculator

import (
	"errors"
	"math"

	"StockSentinel/internal/model"
)

// KDJParams configures the oscillator: N is the RSV lookback, M the smoothing divisor (alpha = 1/M).
type KDJParams struct {
	N int
	M int
}

// DefaultKDJParams is the common (9, 3) setting.
var DefaultKDJParams = KDJParams{N: 9, M: 3}

func (p KDJParams) validate() error {
	if p.N <= 0 {
		return errors.New("kdj lookback must be positive")
	}
	if p.M <= 0 {
		return errors.New("kdj smoothing divisor must be positive")
	}
	return nil
}

// CalculateKDJ computes one KDJ point per bar from index N-1 onward.
// Bars must be in ascending date order; fewer than N bars yields no points.
// A window whose high equals its low produces NaN for that date.
func CalculateKDJ(bars []model.PriceBar, p KDJParams) ([]model.KdjPoint, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if len(bars) < p.N {
		return nil, nil
	}

	highs, lows, closes := extractColumns(bars)
	rsv := make([]float64, 0, len(bars)-p.N+1)
	for t := p.N - 1; t < len(bars); t++ {
		hh, ll, err := RollingRange(highs, lows, t, p.N)
		if err != nil {
			return nil, err
		}
		if hh == ll {
			rsv = append(rsv, math.NaN())
			continue
		}
		rsv = append(rsv, (closes[t]-ll)/(hh-ll)*100)
	}

	alpha := 1 / float64(p.M)
	k := smoothEMA(rsv, alpha)
	d := smoothEMA(k, alpha)

	points := make([]model.KdjPoint, len(rsv))
	for i := range rsv {
		points[i] = model.KdjPoint{
			Date: bars[p.N-1+i].Date,
			K:    k[i],
			D:    d[i],
			J:    3*k[i] - 2*d[i],
		}
	}
	return points, nil
}

// JoinKDJ inner-joins bars with their KDJ points by date.
func JoinKDJ(bars []model.PriceBar, points []model.KdjPoint) model.EnrichedSeries {
	return model.History{Bars: bars, KDJ: points}.Enriched()
}

// smoothEMA is an exponential moving average seeded by the first non-NaN value.
// NaN inputs produce NaN outputs; each one still decays the weight of the running
// average, so the next valid value counts for more after a gap.
func smoothEMA(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	var avg float64
	seeded := false
	oldWeight := 1.0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			if seeded {
				oldWeight *= 1 - alpha
			}
			continue
		}
		if !seeded {
			avg = v
			seeded = true
		} else {
			oldWeight *= 1 - alpha
			avg = (oldWeight*avg + alpha*v) / (oldWeight + alpha)
		}
		oldWeight = 1
		out[i] = avg
	}
	return out
}
