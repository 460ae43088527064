package registry

import (
	"context"
	"errors"
	"fmt"

	"StockSentinel/internal/model"
)

// ErrEmptyListing means an exchange returned no tickers; a scan cannot proceed without names.
var ErrEmptyListing = errors.New("exchange listing is empty")

// UnknownName is shown for codes missing from the registry.
const UnknownName = "未知名称"

// Lister fetches the tickers listed on one exchange.
type Lister interface {
	ListTickers(ctx context.Context, ex model.Exchange) ([]model.Ticker, error)
}

// Registry is an ordered, read-only code to ticker mapping.
type Registry struct {
	tickers []model.Ticker
	byCode  map[string]model.Ticker
}

// New builds a registry preserving order; later duplicates of a code are dropped.
func New(tickers []model.Ticker) *Registry {
	r := &Registry{byCode: make(map[string]model.Ticker, len(tickers))}
	for _, t := range tickers {
		if _, dup := r.byCode[t.Code]; dup {
			continue
		}
		r.byCode[t.Code] = t
		r.tickers = append(r.tickers, t)
	}
	return r
}

// Tickers returns the tickers in iteration order.
func (r *Registry) Tickers() []model.Ticker {
	return append([]model.Ticker(nil), r.tickers...)
}

func (r *Registry) Lookup(code string) (model.Ticker, bool) {
	t, ok := r.byCode[code]
	return t, ok
}

// Name returns the display name for code, or UnknownName.
func (r *Registry) Name(code string) string {
	if t, ok := r.byCode[code]; ok && t.Name != "" {
		return t.Name
	}
	return UnknownName
}

func (r *Registry) Len() int { return len(r.tickers) }

// Load builds the full-universe registry: Shanghai first, then Shenzhen.
func Load(ctx context.Context, l Lister) (*Registry, error) {
	var all []model.Ticker
	for _, ex := range []model.Exchange{model.ExchangeSH, model.ExchangeSZ} {
		tickers, err := listExchange(ctx, l, ex)
		if err != nil {
			return nil, err
		}
		all = append(all, tickers...)
	}
	return New(all), nil
}

// LoadWatchlist builds a registry for the configured symbols, in configured order.
// Names come from the exchange listings unless every entry already has one.
func LoadWatchlist(ctx context.Context, l Lister, watch []model.Ticker) (*Registry, error) {
	named := true
	for _, t := range watch {
		if t.Name == "" {
			named = false
			break
		}
	}
	if named {
		return New(watch), nil
	}

	names := make(map[string]string)
	for _, ex := range []model.Exchange{model.ExchangeSH, model.ExchangeSZ} {
		tickers, err := listExchange(ctx, l, ex)
		if err != nil {
			return nil, err
		}
		for _, t := range tickers {
			names[t.Code] = t.Name
		}
	}

	out := make([]model.Ticker, len(watch))
	for i, t := range watch {
		if t.Name == "" {
			t.Name = names[t.Code]
		}
		out[i] = t
	}
	return New(out), nil
}

func listExchange(ctx context.Context, l Lister, ex model.Exchange) ([]model.Ticker, error) {
	tickers, err := l.ListTickers(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("list %s tickers: %w", ex, err)
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("%s: %w", ex, ErrEmptyListing)
	}
	return tickers, nil
}
