package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/model"
)

// SQLiteRepository keeps every ticker's bars in one daily_bars table.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRepository opens (or creates) the database and runs migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.L().Info("sqlite store opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			code      TEXT NOT NULL,
			date      TEXT NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL,
			volume    REAL,
			amount    REAL,
			turnover  REAL,
			kdj_ready INTEGER NOT NULL DEFAULT 0,
			k         REAL,
			d         REAL,
			j         REAL,
			PRIMARY KEY (code, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_bars_date ON daily_bars(date)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, code string) (model.History, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT date, open, high, low, close, volume, amount, turnover,
		kdj_ready, k, d, j FROM daily_bars WHERE code = ? ORDER BY date`, code)
	if err != nil {
		return model.History{}, false, fmt.Errorf("query %s: %w", code, err)
	}
	defer rows.Close()

	var h model.History
	for rows.Next() {
		var (
			day     string
			b       model.PriceBar
			ready   bool
			k, d, j sql.NullFloat64
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.Amount, &b.Turnover,
			&ready, &k, &d, &j); err != nil {
			return model.History{}, false, fmt.Errorf("scan %s: %w", code, err)
		}
		if b.Date, err = clock.ParseDate(day); err != nil {
			return model.History{}, false, fmt.Errorf("scan %s: %w", code, err)
		}
		h.Bars = append(h.Bars, b)
		if ready {
			h.KDJ = append(h.KDJ, model.KdjPoint{Date: b.Date, K: nanIfNull(k), D: nanIfNull(d), J: nanIfNull(j)})
		}
	}
	if err := rows.Err(); err != nil {
		return model.History{}, false, fmt.Errorf("read %s: %w", code, err)
	}
	return h, len(h.Bars) > 0, nil
}

// Save replaces the ticker's rows in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, code string, h model.History) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_bars WHERE code = ?`, code); err != nil {
		return fmt.Errorf("delete %s: %w", code, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO daily_bars
		(code, date, open, high, low, close, volume, amount, turnover, kdj_ready, k, d, j)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	points := make(map[string]model.KdjPoint, len(h.KDJ))
	for _, p := range h.KDJ {
		points[dayKey(p.Date)] = p
	}
	for _, b := range h.Bars {
		day := dayKey(b.Date)
		p, ready := points[day]
		_, err := stmt.ExecContext(ctx, code, day, b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount, b.Turnover,
			ready, nullIfNaN(p.K, ready), nullIfNaN(p.D, ready), nullIfNaN(p.J, ready))
		if err != nil {
			return fmt.Errorf("insert %s %s: %w", code, day, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Codes(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT code FROM daily_bars ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("query codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	zap.L().Info("closing sqlite store")
	return r.db.Close()
}

func nullIfNaN(v float64, ready bool) sql.NullFloat64 {
	if !ready || math.IsNaN(v) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
