package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"StockSentinel/internal/collector"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/strategy"
)

// Scan processes every registry ticker in order: fetch new bars, update the
// store, evaluate, print, and notify on BUY/SELL. Per-ticker failures are
// logged and counted; only cancellation stops the loop early.
func (s *Scheduler) Scan(ctx context.Context) (*model.ScanReport, error) {
	if !s.running.TryLock() {
		return nil, ErrScanRunning
	}
	defer s.running.Unlock()

	report := &model.ScanReport{RunID: uuid.NewString(), Started: s.Collector.Clock.Now()}
	log := zap.L().With(zap.String("run_id", report.RunID))
	tickers := s.Registry.Tickers()
	log.Info("scan started", zap.Int("tickers", len(tickers)), zap.String("provider", s.Collector.Fetcher.Name()))

	var bar *progressbar.ProgressBar
	if s.ShowProgress {
		bar = progressbar.Default(int64(len(tickers)), "扫描")
		defer bar.Finish()
	}

	for _, t := range tickers {
		if err := ctx.Err(); err != nil {
			log.Warn("scan interrupted", zap.Int("processed", report.Processed))
			return report, err
		}
		if bar != nil {
			bar.Describe(t.Code)
		}

		result := s.scanTicker(ctx, log, t, report)
		s.Metrics.RecordTicker(result)
		switch result {
		case metrics.ResultProcessed:
			report.Processed++
		case metrics.ResultSkipped:
			report.Skipped++
		default:
			report.Failed++
		}

		if bar != nil {
			bar.Add(1)
		}
	}

	report.Finished = s.Collector.Clock.Now()
	s.Metrics.RecordScanFinished(report.Finished)
	log.Info("scan finished",
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("signals", len(report.Signals)),
		zap.Duration("elapsed", report.Finished.Sub(report.Started)))
	return report, nil
}

func (s *Scheduler) scanTicker(ctx context.Context, log *zap.Logger, t model.Ticker, report *model.ScanReport) string {
	log = log.With(zap.String("code", t.Code))
	name := s.Registry.Name(t.Code)

	if s.SkipCached && s.Store.Has(t.Code) {
		log.Debug("already cached, skipping")
		return metrics.ResultSkipped
	}

	last, cached := s.Store.LastDate(t.Code)
	started := time.Now()
	fresh, err := s.Collector.FetchSince(ctx, t, last, cached)
	s.Metrics.RecordFetch(s.Collector.Fetcher.Name(), time.Since(started))

	var series model.EnrichedSeries
	switch {
	case errors.Is(err, collector.ErrNoData):
		if !cached {
			log.Warn("no data and nothing cached, skipping", zap.Error(err))
			return metrics.ResultSkipped
		}
		log.Info("no new data, using cached series", zap.Error(err))
		series = s.Store.Series(t.Code)
	case err != nil && cached && ctx.Err() == nil:
		log.Warn("fetch failed, using cached series", zap.Error(err))
		series = s.Store.Series(t.Code)
	case err != nil:
		log.Error("fetch failed", zap.Error(err))
		return metrics.ResultFailed
	default:
		series, err = s.Store.Update(ctx, t.Code, fresh)
		if err != nil {
			log.Error("update store", zap.Error(err))
			return metrics.ResultFailed
		}
		log.Debug("store updated", zap.Int("new_bars", len(fresh)), zap.Int("rows", len(series)))
	}

	latest, ok := series.Last()
	if !ok {
		log.Warn("not enough history for KDJ, skipping")
		return metrics.ResultSkipped
	}

	sig := strategy.Evaluate(series, s.Thresholds)
	s.Metrics.RecordSignal(string(sig.Kind))

	block := notifier.FormatSignalBlock(t.Code, name, sig, latest.J)
	if !s.Quiet || sig.Actionable() {
		fmt.Fprintln(s.Out, block)
		fmt.Fprintln(s.Out, notifier.Rule)
	}

	if sig.Actionable() {
		t.Name = name
		report.Signals = append(report.Signals, model.TickerSignal{Ticker: t, Signal: sig})
		s.trySend(block)
	}
	return metrics.ResultProcessed
}
