package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"StockSentinel/internal/clock"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/registry"
	"StockSentinel/internal/store"
	"StockSentinel/internal/strategy"
)

// ErrScanRunning is returned when a scan is requested while another is in progress.
var ErrScanRunning = errors.New("scan already running")

// Scheduler runs scans on a cron schedule and on demand.
type Scheduler struct {
	Cron       *cron.Cron
	Registry   *registry.Registry
	Collector  *collector.Collector
	Store      *store.Store
	Notifier   notifier.Notifier
	Metrics    *metrics.Recorder
	Thresholds strategy.Thresholds
	Ctx        context.Context

	// Out receives the per-ticker console blocks.
	Out io.Writer
	// Quiet prints only BUY/SELL blocks.
	Quiet bool
	// SkipCached leaves tickers that already have history untouched, so an
	// interrupted universe scan resumes where it stopped.
	SkipCached bool
	// ShowProgress draws a progress bar on stderr.
	ShowProgress bool

	running sync.Mutex
}

// NewScheduler creates a new Scheduler printing to stdout with the default thresholds.
func NewScheduler(ctx context.Context, reg *registry.Registry, col *collector.Collector, st *store.Store,
	n notifier.Notifier, rec *metrics.Recorder) *Scheduler {
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(clock.Shanghai),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
			cron.WithLogger(cronLogger{}),
		),
		Registry:   reg,
		Collector:  col,
		Store:      st,
		Notifier:   n,
		Metrics:    rec,
		Thresholds: strategy.DefaultThresholds,
		Ctx:        ctx,
		Out:        os.Stdout,
	}
}

// Register adds the daily scan.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	zap.L().Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	zap.L().Info("scheduler stopped")
}

// RunNow executes the daily task immediately (for RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.dailyTask()
}

func (s *Scheduler) dailyTask() {
	zap.L().Info("running daily scan")
	report, err := s.Scan(s.Ctx)
	if errors.Is(err, ErrScanRunning) {
		zap.L().Warn("daily scan skipped, another scan is running")
		return
	}
	if err != nil {
		zap.L().Error("daily scan", zap.Error(err))
		s.trySend(fmt.Sprintf("❌ 每日扫描失败: %v", err))
		return
	}
	text, err := notifier.FormatReport(report)
	if err != nil {
		zap.L().Error("format scan report", zap.Error(err))
		return
	}
	s.trySend(notifier.Pre(text))
}

const helpText = "可用命令:\n• /scan 立即扫描\n• /signal <代码> 查看缓存信号\n• /help 帮助"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/scan", "扫描":
		report, err := s.Scan(ctx)
		if errors.Is(err, ErrScanRunning) {
			return "扫描正在进行中，请稍后再试"
		}
		if err != nil {
			return fmt.Sprintf("❌ 扫描失败: %v", err)
		}
		text, err := notifier.FormatReport(report)
		if err != nil {
			return fmt.Sprintf("❌ 报告生成失败: %v", err)
		}
		return notifier.Pre(text)
	case "/signal", "信号":
		if len(fields) < 2 {
			return "用法: /signal <代码>"
		}
		return s.cachedSignal(fields[1])
	default:
		return helpText
	}
}

// cachedSignal evaluates the cached series without fetching.
func (s *Scheduler) cachedSignal(symbol string) string {
	t, err := model.ParseSymbol(symbol)
	if err != nil {
		return fmt.Sprintf("无效代码: %s", symbol)
	}
	series := s.Store.Series(t.Code)
	last, ok := series.Last()
	if !ok {
		return fmt.Sprintf("无缓存数据: %s", t.Code)
	}
	sig := strategy.Evaluate(series, s.Thresholds)
	return notifier.FormatSignalBlock(t.Code, s.Registry.Name(t.Code), sig, last.J)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		zap.L().Error("send notification", zap.Error(err))
	}
}

// cronLogger routes cron's own logging through zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Debugw("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	zap.L().Sugar().Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
