package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

// DefaultStartDate is where a ticker's history begins when nothing is cached.
var DefaultStartDate = time.Date(1991, 1, 1, 0, 0, 0, 0, clock.Shanghai)

// MockFetcher serves canned data for development and testing.
// Tickers without explicit Bars get a generated series when Price is set.
type MockFetcher struct {
	Price    float64
	Bars     map[string][]model.PriceBar
	Errs     map[string]error
	Listings map[model.Exchange][]model.Ticker

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one FetchDailyBars request.
type MockCall struct {
	Code       string
	Start, End time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, t model.Ticker, start, end time.Time, _ Adjust) ([]model.PriceBar, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Code: t.Code, Start: start, End: end})
	m.mu.Unlock()

	if err := m.Errs[t.Code]; err != nil {
		return nil, err
	}
	source, ok := m.Bars[t.Code]
	if !ok && m.Price > 0 {
		source = generateMockBars(m.Price, start, end)
	}
	var out []model.PriceBar
	for _, b := range source {
		if b.Date.Before(clock.Date(start)) || b.Date.After(clock.Date(end)) {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

func (m *MockFetcher) ListTickers(_ context.Context, ex model.Exchange) ([]model.Ticker, error) {
	return m.Listings[ex], nil
}

// Calls returns the requests seen so far.
func (m *MockFetcher) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// generateMockBars produces weekday bars oscillating around basePrice.
func generateMockBars(basePrice float64, start, end time.Time) []model.PriceBar {
	var bars []model.PriceBar
	i := 0
	for d := clock.Date(start); !d.After(clock.Date(end)); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		p := basePrice * (1 + float64(i%10-5)*0.004)
		bars = append(bars, model.PriceBar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		})
		i++
	}
	return bars
}

// Collector decides the fetch window for a ticker and wraps provider errors.
type Collector struct {
	Fetcher   Fetcher
	Clock     clock.Clock
	Adjust    Adjust
	StartDate time.Time
}

// NewCollector creates a Collector starting full fetches at DefaultStartDate.
func NewCollector(fetcher Fetcher, clk clock.Clock, adjust Adjust) *Collector {
	return &Collector{Fetcher: fetcher, Clock: clk, Adjust: adjust, StartDate: DefaultStartDate}
}

// FetchSince fetches bars after last when cached, otherwise the full history up to today.
// An empty result is reported as ErrNoData, annotated with whether the session has closed.
func (c *Collector) FetchSince(ctx context.Context, t model.Ticker, last time.Time, cached bool) ([]model.PriceBar, error) {
	now := c.Clock.Now()
	start := c.StartDate
	if cached {
		start = clock.Date(last).AddDate(0, 0, 1)
	}
	end := clock.Date(now)

	if start.After(end) {
		return nil, c.noData(now)
	}

	zap.L().Debug("fetching bars",
		zap.String("code", t.Code),
		zap.String("provider", c.Fetcher.Name()),
		zap.Time("start", start),
		zap.Time("end", end))

	bars, err := c.Fetcher.FetchDailyBars(ctx, t, start, end, c.Adjust)
	if errors.Is(err, ErrNoData) || (err == nil && len(bars) == 0) {
		return nil, c.noData(now)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", t.Symbol(), err)
	}
	return bars, nil
}

func (c *Collector) noData(now time.Time) error {
	if clock.SessionClosed(now) {
		return fmt.Errorf("no data (possibly delisted): %w", ErrNoData)
	}
	return fmt.Errorf("market session still open: %w", ErrNoData)
}
