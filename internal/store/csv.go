package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"go.uber.org/zap"

	"StockSentinel/internal/model"
)

// CSVRepository stores each ticker as <dir>/<code>.csv.
type CSVRepository struct {
	dir string
}

// NewCSVRepository creates dir if needed.
func NewCSVRepository(dir string) (*CSVRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	zap.L().Info("csv store opened", zap.String("dir", dir))
	return &CSVRepository{dir: dir}, nil
}

func (r *CSVRepository) path(code string) string {
	return filepath.Join(r.dir, code+".csv")
}

func (r *CSVRepository) Load(_ context.Context, code string) (model.History, bool, error) {
	f, err := os.Open(r.path(code))
	if errors.Is(err, os.ErrNotExist) {
		return model.History{}, false, nil
	}
	if err != nil {
		return model.History{}, false, fmt.Errorf("open %s: %w", code, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil && fi.Size() == 0 {
		return model.History{}, false, nil
	}

	var rows []*historyRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return model.History{}, false, fmt.Errorf("decode %s: %w", code, err)
	}
	h, err := fromRows(rows)
	if err != nil {
		return model.History{}, false, fmt.Errorf("decode %s: %w", code, err)
	}
	return h, len(h.Bars) > 0, nil
}

// Save overwrites the whole file through a temp file and rename.
func (r *CSVRepository) Save(_ context.Context, code string, h model.History) error {
	data, err := encodeHistory(h)
	if err != nil {
		return fmt.Errorf("encode %s: %w", code, err)
	}
	tmp, err := os.CreateTemp(r.dir, code+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", code, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", code, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", code, err)
	}
	if err := os.Rename(tmp.Name(), r.path(code)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", code, err)
	}
	return nil
}

func (r *CSVRepository) Codes(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("list cache dir: %w", err)
	}
	var codes []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		codes = append(codes, strings.TrimSuffix(name, ".csv"))
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *CSVRepository) Close() error { return nil }
