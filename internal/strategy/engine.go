package strategy

import (
	"fmt"

	"go.uber.org/zap"

	"StockSentinel/internal/model"
)

// Thresholds are the J levels that define oversold and overbought.
type Thresholds struct {
	Oversold   float64
	Overbought float64
}

// DefaultThresholds is the classic 20/80 band.
var DefaultThresholds = Thresholds{Oversold: 20, Overbought: 80}

const (
	buyPhrase  = "J值触底回升"
	sellPhrase = "J值见顶回落"
)

// Evaluate reads the last two rows of an enriched series and returns the signal.
//   - BUY:  latest J below Oversold and not lower than the previous J
//   - SELL: latest J above Overbought and not higher than the previous J
//
// BUY is checked first. Any NaN J fails every comparison and yields HOLD.
func Evaluate(series model.EnrichedSeries, th Thresholds) model.Signal {
	if len(series) < 2 {
		zap.L().Warn("not enough rows to generate a signal", zap.Int("rows", len(series)))
		hold := model.Signal{Kind: model.SignalHold}
		if last, ok := series.Last(); ok {
			hold.Date, hold.J = last.Date, last.J
		}
		return hold
	}

	latest := series[len(series)-1]
	prev := series[len(series)-2]
	sig := model.Signal{Kind: model.SignalHold, Date: latest.Date, J: latest.J}

	switch {
	case latest.J < th.Oversold && prev.J <= latest.J:
		sig.Kind = model.SignalBuy
		sig.Message = formatMessage(latest, buyPhrase)
	case latest.J > th.Overbought && prev.J >= latest.J:
		sig.Kind = model.SignalSell
		sig.Message = formatMessage(latest, sellPhrase)
	}
	return sig
}

func formatMessage(row model.EnrichedBar, phrase string) string {
	return fmt.Sprintf("%s %s：%.2f", row.Date.Format("2006-01-02"), phrase, row.J)
}
