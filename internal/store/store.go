package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/model"
)

// Store is the in-memory cache of per-ticker histories, backed by a Repository.
type Store struct {
	repo   Repository
	params calculator.KDJParams

	mu    sync.RWMutex
	cache map[string]model.History
}

func NewStore(repo Repository, params calculator.KDJParams) *Store {
	return &Store{repo: repo, params: params, cache: make(map[string]model.History)}
}

// Preload reads every stored history into memory. Unreadable entries are logged and skipped.
func (s *Store) Preload(ctx context.Context) (int, error) {
	codes, err := s.repo.Codes(ctx)
	if err != nil {
		return 0, fmt.Errorf("preload: %w", err)
	}
	loaded := 0
	for _, code := range codes {
		h, ok, err := s.repo.Load(ctx, code)
		if err != nil {
			zap.L().Warn("skipping unreadable cache entry", zap.String("code", code), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		s.mu.Lock()
		s.cache[code] = h
		s.mu.Unlock()
		loaded++
	}
	zap.L().Info("cache preloaded", zap.Int("tickers", loaded))
	return loaded, nil
}

func (s *Store) Has(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.cache[code]
	return ok
}

// LastDate returns the newest cached bar date for code.
func (s *Store) LastDate(code string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.cache[code]
	if !ok {
		return time.Time{}, false
	}
	return h.LastDate()
}

// Series returns the cached enriched series for code, or nil.
func (s *Store) Series(code string) model.EnrichedSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.cache[code]
	if !ok {
		return nil
	}
	return h.Enriched()
}

// Update merges fresh bars into the cached history, recomputes KDJ over the
// combined bars, persists the result and returns the enriched series.
// A fresh bar replaces a cached bar with the same date.
func (s *Store) Update(ctx context.Context, code string, fresh []model.PriceBar) (model.EnrichedSeries, error) {
	s.mu.RLock()
	cached := s.cache[code]
	s.mu.RUnlock()

	bars := mergeBars(cached.Bars, fresh)

	points, err := calculator.CalculateKDJ(bars, s.params)
	if err != nil {
		return nil, fmt.Errorf("kdj %s: %w", code, err)
	}
	h := model.History{Bars: bars, KDJ: points}

	if err := s.repo.Save(ctx, code, h); err != nil {
		return nil, fmt.Errorf("save %s: %w", code, err)
	}

	s.mu.Lock()
	s.cache[code] = h
	s.mu.Unlock()

	return h.Enriched(), nil
}

// mergeBars concatenates old then fresh, keeps the last bar per date, and sorts ascending.
func mergeBars(old, fresh []model.PriceBar) model.PriceSeries {
	byDay := make(map[string]model.PriceBar, len(old)+len(fresh))
	for _, b := range old {
		byDay[dayKey(b.Date)] = b
	}
	for _, b := range fresh {
		byDay[dayKey(b.Date)] = b
	}
	out := make(model.PriceSeries, 0, len(byDay))
	for _, b := range byDay {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func (s *Store) Close() error {
	return s.repo.Close()
}
