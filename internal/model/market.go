package model

import "time"

// PriceBar is one trading day of data for one ticker.
// Volume, Amount and Turnover are zero when the provider does not supply them.
type PriceBar struct {
	Date     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Amount   float64
	Turnover float64 // percent of float shares
}

// PriceSeries is an ascending run of bars for one ticker.
type PriceSeries []PriceBar

// Dates returns the bar dates in order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}
