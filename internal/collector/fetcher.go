package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"StockSentinel/internal/model"
)

// ErrNoData means the provider answered but had no bars for the requested range.
var ErrNoData = errors.New("no data")

// Adjust selects the price adjustment applied by the provider.
type Adjust string

const (
	AdjustNone Adjust = ""
	AdjustQFQ  Adjust = "qfq" // forward-adjusted
	AdjustHFQ  Adjust = "hfq" // backward-adjusted
)

// ParseAdjust accepts "", "none", "qfq" or "hfq".
func ParseAdjust(s string) (Adjust, error) {
	switch s {
	case "", "none":
		return AdjustNone, nil
	case "qfq":
		return AdjustQFQ, nil
	case "hfq":
		return AdjustHFQ, nil
	}
	return AdjustNone, fmt.Errorf("unknown price adjustment %q", s)
}

// Fetcher retrieves daily bars for one ticker over an inclusive date range.
// Bars come back in ascending date order with dates in the Shanghai zone.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, t model.Ticker, start, end time.Time, adjust Adjust) ([]model.PriceBar, error)
	Name() string
}

// newHTTPClient builds a client with an optional proxy.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}
