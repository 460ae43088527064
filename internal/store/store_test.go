package store

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, clock.Shanghai)

// bars returns n non-degenerate bars starting offset days after day0.
func bars(offset, n int) []model.PriceBar {
	out := make([]model.PriceBar, n)
	for i := 0; i < n; i++ {
		k := offset + i
		c := 20 + float64(k%7) - float64(k%4)*0.5
		out[i] = model.PriceBar{
			Date: day0.AddDate(0, 0, k),
			Open: c - 0.2, High: c + 1, Low: c - 1, Close: c,
			Volume: float64(1000 + k), Amount: c * float64(1000+k), Turnover: 0.5,
		}
	}
	return out
}

func equalSeries(t *testing.T, got, want model.EnrichedSeries) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		g, w := got[i], want[i]
		if !g.Date.Equal(w.Date) || g.Close != w.Close {
			t.Fatalf("row %d: bar mismatch %+v vs %+v", i, g.PriceBar, w.PriceBar)
		}
		if math.Abs(g.K-w.K) > 1e-9 || math.Abs(g.D-w.D) > 1e-9 || math.Abs(g.J-w.J) > 1e-9 {
			t.Fatalf("row %d: kdj mismatch K=%v/%v D=%v/%v J=%v/%v", i, g.K, w.K, g.D, w.D, g.J, w.J)
		}
	}
}

func TestUpdate_FirstFetch(t *testing.T) {
	s := NewStore(NewMemoryRepository(), calculator.DefaultKDJParams)
	fresh := bars(0, 20)

	got, err := s.Update(context.Background(), "600519", fresh)
	if err != nil {
		t.Fatal(err)
	}
	points, _ := calculator.CalculateKDJ(fresh, calculator.DefaultKDJParams)
	equalSeries(t, got, calculator.JoinKDJ(fresh, points))

	if !s.Has("600519") {
		t.Error("expected code to be cached")
	}
	last, ok := s.LastDate("600519")
	if !ok || !last.Equal(fresh[19].Date) {
		t.Errorf("unexpected last date %v", last)
	}
}

func TestUpdate_IncrementalMatchesFullRecompute(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryRepository(), calculator.DefaultKDJParams)
	first, second := bars(0, 15), bars(15, 6)

	if _, err := s.Update(ctx, "000858", first); err != nil {
		t.Fatal(err)
	}
	got, err := s.Update(ctx, "000858", second)
	if err != nil {
		t.Fatal(err)
	}

	all := append(append([]model.PriceBar(nil), first...), second...)
	points, _ := calculator.CalculateKDJ(all, calculator.DefaultKDJParams)
	equalSeries(t, got, calculator.JoinKDJ(all, points))
}

func TestUpdate_ShortHistoryGrowsIntoSeries(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryRepository(), calculator.DefaultKDJParams)

	got, err := s.Update(ctx, "600000", bars(0, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty series below the lookback, got %d rows", len(got))
	}
	// Warm-up bars are kept so the next batch completes the window.
	got, err = s.Update(ctx, "600000", bars(5, 5))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows after 10 bars, got %d", len(got))
	}
}

func TestUpdate_OverlapFreshBarWins(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryRepository(), calculator.DefaultKDJParams)
	if _, err := s.Update(ctx, "601318", bars(0, 12)); err != nil {
		t.Fatal(err)
	}

	revised := bars(11, 3)
	revised[0].Close += 0.5
	got, err := s.Update(ctx, "601318", revised)
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 14-9+1 {
		t.Fatalf("expected duplicates dropped, got %d rows", len(got))
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Date.After(got[i-1].Date) {
			t.Fatalf("rows not strictly ascending at %d", i)
		}
	}
	for _, row := range got {
		if row.Date.Equal(revised[0].Date) && row.Close != revised[0].Close {
			t.Fatalf("expected revised close %v, got %v", revised[0].Close, row.Close)
		}
	}
}

func TestUpdate_PersistsAndPreloads(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	s := NewStore(repo, calculator.DefaultKDJParams)
	want, err := s.Update(ctx, "600036", bars(0, 12))
	if err != nil {
		t.Fatal(err)
	}

	fresh := NewStore(repo, calculator.DefaultKDJParams)
	n, err := fresh.Preload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 preloaded ticker, got %d", n)
	}
	equalSeries(t, fresh.Series("600036"), want)
	if fresh.Series("999999") != nil {
		t.Error("expected nil series for unknown code")
	}
}

type failingRepo struct{ *MemoryRepository }

func (failingRepo) Save(context.Context, string, model.History) error {
	return errors.New("disk full")
}

func TestUpdate_SaveFailureLeavesCacheUntouched(t *testing.T) {
	s := NewStore(failingRepo{NewMemoryRepository()}, calculator.DefaultKDJParams)
	if _, err := s.Update(context.Background(), "600519", bars(0, 10)); err == nil {
		t.Fatal("expected save error")
	}
	if s.Has("600519") {
		t.Error("failed save must not populate the cache")
	}
}
