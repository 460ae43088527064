package model

import "time"

// SignalKind is the discrete trading action.
type SignalKind string

const (
	SignalBuy  SignalKind = "BUY"
	SignalSell SignalKind = "SELL"
	SignalHold SignalKind = "HOLD"
)

// Signal is the output of the signal generator. Message is empty for HOLD.
type Signal struct {
	Kind    SignalKind
	Message string
	Date    time.Time
	J       float64
}

// Actionable reports whether the signal is BUY or SELL.
func (s Signal) Actionable() bool {
	return s.Kind == SignalBuy || s.Kind == SignalSell
}
