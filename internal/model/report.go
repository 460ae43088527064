package model

import "time"

// TickerSignal is one ticker's outcome within a scan.
type TickerSignal struct {
	Ticker Ticker
	Signal Signal
}

// ScanReport summarises one pass over the registry.
type ScanReport struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Processed int
	Skipped   int
	Failed    int
	Signals   []TickerSignal // BUY and SELL only, in registry order
}

// Count returns how many signals of kind the scan produced.
func (r *ScanReport) Count(kind SignalKind) int {
	n := 0
	for _, s := range r.Signals {
		if s.Signal.Kind == kind {
			n++
		}
	}
	return n
}
