package store

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

const dateLayout = "2006-01-02"

// historyRow is one line of the on-disk table. K/D/J are empty for warm-up
// bars and "NaN" for zero-range windows.
type historyRow struct {
	Date     string  `csv:"date"`
	Open     float64 `csv:"open"`
	High     float64 `csv:"high"`
	Low      float64 `csv:"low"`
	Close    float64 `csv:"close"`
	Volume   float64 `csv:"volume"`
	Amount   float64 `csv:"amount"`
	Turnover float64 `csv:"turnover"`
	K        string  `csv:"K"`
	D        string  `csv:"D"`
	J        string  `csv:"J"`
}

func toRows(h model.History) []*historyRow {
	points := make(map[string]model.KdjPoint, len(h.KDJ))
	for _, p := range h.KDJ {
		points[dayKey(p.Date)] = p
	}
	rows := make([]*historyRow, len(h.Bars))
	for i, b := range h.Bars {
		day := dayKey(b.Date)
		r := &historyRow{
			Date: day, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close,
			Volume: b.Volume, Amount: b.Amount, Turnover: b.Turnover,
		}
		if p, ok := points[day]; ok {
			r.K, r.D, r.J = formatValue(p.K), formatValue(p.D), formatValue(p.J)
		}
		rows[i] = r
	}
	return rows
}

func fromRows(rows []*historyRow) (model.History, error) {
	var h model.History
	for i, r := range rows {
		d, err := clock.ParseDate(r.Date)
		if err != nil {
			return model.History{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		h.Bars = append(h.Bars, model.PriceBar{
			Date: d, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Amount: r.Amount, Turnover: r.Turnover,
		})
		if r.K == "" && r.D == "" && r.J == "" {
			continue
		}
		p := model.KdjPoint{Date: d}
		if p.K, err = parseValue(r.K); err == nil {
			if p.D, err = parseValue(r.D); err == nil {
				p.J, err = parseValue(r.J)
			}
		}
		if err != nil {
			return model.History{}, fmt.Errorf("row %d (%s): %w", i+1, r.Date, err)
		}
		h.KDJ = append(h.KDJ, p)
	}
	return h, nil
}

func encodeHistory(h model.History) ([]byte, error) {
	return gocsv.MarshalBytes(toRows(h))
}

func decodeHistory(data []byte) (model.History, error) {
	var rows []*historyRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return model.History{}, err
	}
	return fromRows(rows)
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseValue(s string) (float64, error) {
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func dayKey(t time.Time) string { return t.Format(dateLayout) }
