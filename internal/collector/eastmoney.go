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
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

const (
	DefaultEastmoneyKlineURL = "https://push2his.eastmoney.com"
	DefaultEastmoneyListURL  = "https://push2.eastmoney.com"

	listPageSize = 100
)

// EastmoneyFetcher implements Fetcher and registry.Lister using the Eastmoney quote API.
type EastmoneyFetcher struct {
	BaseURL string
	ListURL string
	Client  *http.Client
}

// NewEastmoneyFetcher creates a fetcher with optional proxy support. Empty URLs use the public hosts.
func NewEastmoneyFetcher(baseURL, listURL, proxyURL string, timeout time.Duration) *EastmoneyFetcher {
	if baseURL == "" {
		baseURL = DefaultEastmoneyKlineURL
	}
	if listURL == "" {
		listURL = DefaultEastmoneyListURL
	}
	return &EastmoneyFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		ListURL: strings.TrimRight(listURL, "/"),
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *EastmoneyFetcher) Name() string { return "eastmoney" }

// emKline is the kline response; each entry is
// "date,open,close,high,low,volume,amount,amplitude,pct,chg,turnover".
type emKline struct {
	RC   int `json:"rc"`
	Data *struct {
		Code   string   `json:"code"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func secID(t model.Ticker) string {
	if t.Exchange == model.ExchangeSH {
		return "1." + t.Code
	}
	return "0." + t.Code
}

func fqt(a Adjust) string {
	switch a {
	case AdjustQFQ:
		return "1"
	case AdjustHFQ:
		return "2"
	}
	return "0"
}

func (f *EastmoneyFetcher) FetchDailyBars(ctx context.Context, t model.Ticker, start, end time.Time, adjust Adjust) ([]model.PriceBar, error) {
	q := url.Values{}
	q.Set("secid", secID(t))
	q.Set("klt", "101")
	q.Set("fqt", fqt(adjust))
	q.Set("beg", start.In(clock.Shanghai).Format("20060102"))
	q.Set("end", end.In(clock.Shanghai).Format("20060102"))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")
	endpoint := f.BaseURL + "/api/qt/stock/kline/get?" + q.Encode()

	var resp emKline
	if err := f.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", t.Code, err)
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, ErrNoData
	}

	bars := make([]model.PriceBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		b, err := parseKline(line)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s: %w", t.Code, err)
		}
		bars = append(bars, b)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func parseKline(line string) (model.PriceBar, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 7 {
		return model.PriceBar{}, fmt.Errorf("short kline %q", line)
	}
	date, err := clock.ParseDate(fields[0])
	if err != nil {
		return model.PriceBar{}, err
	}
	nums := make([]float64, len(fields))
	for i := 1; i < len(fields); i++ {
		if fields[i] == "" || fields[i] == "-" {
			continue
		}
		d, err := decimal.NewFromString(fields[i])
		if err != nil {
			return model.PriceBar{}, fmt.Errorf("field %d of %q: %w", i, line, err)
		}
		nums[i] = d.InexactFloat64()
	}
	b := model.PriceBar{
		Date:   date,
		Open:   nums[1],
		Close:  nums[2],
		High:   nums[3],
		Low:    nums[4],
		Volume: nums[5],
		Amount: nums[6],
	}
	if len(fields) > 10 {
		b.Turnover = nums[10]
	}
	return b, nil
}

// emList is one page of the clist listing.
type emList struct {
	Data *struct {
		Total int `json:"total"`
		Diff  []struct {
			Code string `json:"f12"`
			Name string `json:"f14"`
		} `json:"diff"`
	} `json:"data"`
}

// listFilters selects A-share boards per exchange.
var listFilters = map[model.Exchange]string{
	model.ExchangeSH: "m:1+t:2,m:1+t:23",
	model.ExchangeSZ: "m:0+t:6,m:0+t:80",
}

// ListTickers pages through the exchange listing.
func (f *EastmoneyFetcher) ListTickers(ctx context.Context, ex model.Exchange) ([]model.Ticker, error) {
	filter, ok := listFilters[ex]
	if !ok {
		return nil, fmt.Errorf("unknown exchange %q", ex)
	}

	var out []model.Ticker
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pn", strconv.Itoa(page))
		q.Set("pz", strconv.Itoa(listPageSize))
		q.Set("po", "1")
		q.Set("np", "1")
		q.Set("fltt", "2")
		q.Set("invt", "2")
		q.Set("fid", "f12")
		q.Set("fields", "f12,f14")
		// fs uses literal '+' separators.
		endpoint := f.ListURL + "/api/qt/clist/get?" + q.Encode() + "&fs=" + filter

		var resp emList
		if err := f.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("list %s page %d: %w", ex, page, err)
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}
		for _, d := range resp.Data.Diff {
			out = append(out, model.Ticker{Code: d.Code, Name: d.Name, Exchange: ex})
		}
		if len(out) >= resp.Data.Total {
			break
		}
	}
	return out, nil
}

func (f *EastmoneyFetcher) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
