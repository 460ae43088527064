package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooURL
	}
	return &YahooFetcher{BaseURL: baseURL, Client: newHTTPClient(proxyURL, timeout)}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps 600519 to 600519.SS and 000858 to 000858.SZ.
func yahooSymbol(t model.Ticker) string {
	if t.Exchange == model.ExchangeSH {
		return t.Code + ".SS"
	}
	return t.Code + ".SZ"
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []interface{} `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func at(vals []interface{}, i int) float64 {
	if i >= len(vals) {
		return 0
	}
	return toFloat(vals[i])
}

// FetchDailyBars supports AdjustNone and AdjustQFQ; qfq scales OHLC by adjclose/close.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, t model.Ticker, start, end time.Time, adjust Adjust) ([]model.PriceBar, error) {
	if adjust == AdjustHFQ {
		return nil, fmt.Errorf("yahoo: %s adjustment not supported", adjust)
	}

	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", strconv.FormatInt(clock.Date(start).Unix(), 10))
	q.Set("period2", strconv.FormatInt(clock.Date(end).AddDate(0, 0, 1).Unix(), 10))
	q.Set("events", "div,splits")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(yahooSymbol(t)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []interface{}
	if adjust == AdjustQFQ && len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == 0 && h == 0 && l == 0 && c == 0 {
			continue // null bar
		}
		if adj != nil && c != 0 {
			if ac := at(adj, i); ac != 0 {
				factor := ac / c
				o, h, l, c = o*factor, h*factor, l*factor, ac
			}
		}
		bars = append(bars, model.PriceBar{
			Date:   clock.Date(time.Unix(ts, 0)),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}
