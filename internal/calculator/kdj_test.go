package calculator

import (
	"math"
	"reflect"
	"testing"
	"time"

	"StockSentinel/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func bar(i int, high, low, close float64) model.PriceBar {
	return model.PriceBar{Date: day0.AddDate(0, 0, i), Open: close, High: high, Low: low, Close: close}
}

// zigzag returns n non-degenerate bars.
func zigzag(n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i%5)*2 - float64(i%3)
		bars[i] = bar(i, c+1.5, c-1.5, c)
	}
	return bars
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCalculateKDJ_ShortSeriesIsEmpty(t *testing.T) {
	for n := 0; n < 9; n++ {
		points, err := CalculateKDJ(zigzag(n), DefaultKDJParams)
		if err != nil {
			t.Fatalf("len %d: %v", n, err)
		}
		if len(points) != 0 {
			t.Errorf("len %d: expected no points, got %d", n, len(points))
		}
	}
}

func TestCalculateKDJ_PointCountAndDates(t *testing.T) {
	bars := zigzag(30)
	points, err := CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != len(bars)-9+1 {
		t.Fatalf("expected %d points, got %d", len(bars)-8, len(points))
	}
	for i, p := range points {
		if !p.Date.Equal(bars[8+i].Date) {
			t.Fatalf("point %d: date %v, want %v", i, p.Date, bars[8+i].Date)
		}
		if !p.Valid() {
			t.Fatalf("point %d: unexpected NaN", i)
		}
	}
}

func TestCalculateKDJ_KnownValues(t *testing.T) {
	bars := []model.PriceBar{
		bar(0, 10, 8, 9),
		bar(1, 11, 9, 10),
		bar(2, 12, 10, 11),
		bar(3, 13, 11, 11),
	}
	points, err := CalculateKDJ(bars, KDJParams{N: 3, M: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	// Seed: RSV = (11-8)/(12-8)*100 = 75.
	if p := points[0]; !approx(p.K, 75) || !approx(p.D, 75) || !approx(p.J, 75) {
		t.Errorf("seed point = %+v, want K=D=J=75", p)
	}
	// RSV = (11-9)/(13-9)*100 = 50; K = 50/3 + 2*75/3; D = K/3 + 2*75/3.
	wantK := 200.0 / 3
	wantD := 650.0 / 9
	wantJ := 500.0 / 9
	if p := points[1]; !approx(p.K, wantK) || !approx(p.D, wantD) || !approx(p.J, wantJ) {
		t.Errorf("second point = %+v, want K=%.4f D=%.4f J=%.4f", p, wantK, wantD, wantJ)
	}
}

func TestCalculateKDJ_Idempotent(t *testing.T) {
	bars := zigzag(40)
	snapshot := append([]model.PriceBar(nil), bars...)

	a, err := CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("two runs over the same input disagree")
	}
	if !reflect.DeepEqual(bars, snapshot) {
		t.Fatal("input series was mutated")
	}
}

func TestCalculateKDJ_ZeroRangeIsNaNAndRecovers(t *testing.T) {
	bars := make([]model.PriceBar, 0, 10)
	for i := 0; i < 9; i++ {
		bars = append(bars, bar(i, 10, 10, 10))
	}
	points, err := CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	if p := points[0]; !math.IsNaN(p.K) || !math.IsNaN(p.D) || !math.IsNaN(p.J) || p.Valid() {
		t.Fatalf("expected NaN point, got %+v", p)
	}

	// A later non-degenerate window seeds the averages afresh.
	bars = append(bars, bar(9, 11, 9, 10))
	points, err = CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	last := points[len(points)-1]
	if !approx(last.K, 50) || !approx(last.D, 50) || !approx(last.J, 50) {
		t.Fatalf("expected recovery at 50, got %+v", last)
	}
}

func TestSmoothEMA_GapDecaysOldWeight(t *testing.T) {
	const alpha = 1.0 / 3
	got := smoothEMA([]float64{30, 60, math.NaN(), 90}, alpha)

	step := alpha*60 + (1-alpha)*30
	if !approx(got[1], step) {
		t.Fatalf("got[1] = %v, want %v", got[1], step)
	}
	if !math.IsNaN(got[2]) {
		t.Fatalf("got[2] = %v, want NaN", got[2])
	}
	w := (1 - alpha) * (1 - alpha)
	if want := (w*step + alpha*90) / (w + alpha); !approx(got[3], want) {
		t.Fatalf("got[3] = %v, want %v", got[3], want)
	}
	if plain := alpha*90 + (1-alpha)*step; approx(got[3], plain) {
		t.Fatal("gap should weigh the new value more than a plain step")
	}
}

func TestCalculateKDJ_InvalidParams(t *testing.T) {
	for _, p := range []KDJParams{{N: 0, M: 3}, {N: 9, M: 0}, {N: -1, M: -1}} {
		if _, err := CalculateKDJ(zigzag(20), p); err == nil {
			t.Errorf("params %+v: expected error", p)
		}
	}
}

func TestJoinKDJ_DropsWarmupBars(t *testing.T) {
	bars := zigzag(12)
	points, err := CalculateKDJ(bars, DefaultKDJParams)
	if err != nil {
		t.Fatal(err)
	}
	joined := JoinKDJ(bars, points)
	if len(joined) != len(points) {
		t.Fatalf("expected %d rows, got %d", len(points), len(joined))
	}
	for i, row := range joined {
		if !row.Date.Equal(points[i].Date) || row.J != points[i].J {
			t.Fatalf("row %d misaligned: %+v vs %+v", i, row, points[i])
		}
		if row.Close != bars[8+i].Close {
			t.Fatalf("row %d carries wrong bar", i)
		}
	}
}

func TestRollingRange(t *testing.T) {
	highs := []float64{5, 9, 7, 6, 8}
	lows := []float64{3, 4, 1, 2, 5}
	h, l, err := RollingRange(highs, lows, 4, 3)
	if err != nil {
		t.Fatal(err)
	}
	if h != 8 || l != 1 {
		t.Errorf("got high=%v low=%v, want 8/1", h, l)
	}
	if _, _, err := RollingRange(highs, lows, 1, 3); err == nil {
		t.Error("expected error when window exceeds history")
	}
	if _, _, err := RollingRange(highs, lows[:4], 3, 3); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}
