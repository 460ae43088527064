package calculator

import (
	"errors"

	"gonum.org/v1/gonum/floats"

	"StockSentinel/internal/model"
)

// RollingRange returns the highest high and lowest low over the n values ending at index end (inclusive).
func RollingRange(highs, lows []float64, end, n int) (high, low float64, err error) {
	if n <= 0 {
		return 0, 0, errors.New("window must be positive")
	}
	if len(highs) != len(lows) {
		return 0, 0, errors.New("highs and lows differ in length")
	}
	if end < n-1 || end >= len(highs) {
		return 0, 0, errors.New("not enough data for window")
	}
	start := end - n + 1
	return floats.Max(highs[start : end+1]), floats.Min(lows[start : end+1]), nil
}

func extractColumns(bars []model.PriceBar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return highs, lows, closes
}
