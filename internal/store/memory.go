package store

import (
	"context"
	"sort"
	"sync"

	"StockSentinel/internal/model"
)

// MemoryRepository keeps histories in process memory. Used when persistence is not configured.
type MemoryRepository struct {
	mu   sync.RWMutex
	data map[string]model.History
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]model.History)}
}

func (m *MemoryRepository) Load(_ context.Context, code string) (model.History, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.data[code]
	return cloneHistory(h), ok, nil
}

func (m *MemoryRepository) Save(_ context.Context, code string, h model.History) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[code] = cloneHistory(h)
	return nil
}

func (m *MemoryRepository) Codes(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	codes := make([]string, 0, len(m.data))
	for c := range m.data {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes, nil
}

func (m *MemoryRepository) Close() error { return nil }

func cloneHistory(h model.History) model.History {
	return model.History{
		Bars: append(model.PriceSeries(nil), h.Bars...),
		KDJ:  append([]model.KdjPoint(nil), h.KDJ...),
	}
}
