package store

import (
	"context"

	"StockSentinel/internal/model"
)

// Repository persists one History per ticker code.
type Repository interface {
	// Load returns the stored history; ok is false when nothing is stored for code.
	Load(ctx context.Context, code string) (h model.History, ok bool, err error)
	// Save replaces whatever is stored for code.
	Save(ctx context.Context, code string, h model.History) error
	// Codes lists every code with stored history.
	Codes(ctx context.Context) ([]string, error)
	Close() error
}
