package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"StockSentinel/internal/calculator"
	"StockSentinel/internal/clock"
	"StockSentinel/internal/collector"
	"StockSentinel/internal/config"
	"StockSentinel/internal/logger"
	"StockSentinel/internal/metrics"
	"StockSentinel/internal/model"
	"StockSentinel/internal/notifier"
	"StockSentinel/internal/registry"
	"StockSentinel/internal/scheduler"
	"StockSentinel/internal/store"
	"StockSentinel/internal/strategy"
)

func main() {
	_ = godotenv.Load()

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("StockSentinel starting", zap.String("mode", cfg.Mode), zap.String("config", cfgPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher, lister := newProvider(cfg)
	log.Info("data source", zap.String("provider", fetcher.Name()))

	col, err := newCollector(cfg, fetcher)
	if err != nil {
		log.Fatal("build collector", zap.Error(err))
	}

	reg, err := loadRegistry(ctx, cfg, lister)
	if err != nil {
		log.Fatal("load ticker registry", zap.Error(err))
	}
	if reg.Len() == 0 {
		log.Fatal("ticker registry is empty")
	}
	log.Info("ticker registry loaded", zap.Int("tickers", reg.Len()))

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		log.Fatal("open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	st := store.NewStore(repo, calculator.KDJParams{N: cfg.KDJ.N, M: cfg.KDJ.M})
	defer st.Close()
	if _, err := st.Preload(ctx); err != nil {
		log.Warn("preload cache failed, starting cold", zap.Error(err))
	}

	var tn notifier.Notifier = notifier.NopNotifier{}
	var tg *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		tn = tg
	}

	rec := metrics.New()
	sched := scheduler.NewScheduler(ctx, reg, col, st, tn, rec)
	sched.Thresholds = strategy.Thresholds{Oversold: cfg.KDJ.Oversold, Overbought: cfg.KDJ.Overbought}
	sched.SkipCached = cfg.Store.SkipCached
	sched.Quiet = cfg.Quiet
	sched.ShowProgress = cfg.Mode == config.ModeUniverse

	if !cfg.Daemon() {
		runOnce(ctx, sched)
		return
	}

	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		log.Fatal("register cron task", zap.Error(err))
	}
	sched.Start()
	defer sched.Stop()

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if cfg.Metrics.Addr != "" {
		srv := serveMetrics(cfg.Metrics.Addr, rec)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			srv.Shutdown(shutdownCtx)
		}()
	}

	if cfg.RunOnStart {
		log.Info("RUN_ON_START enabled, scanning now")
		go sched.RunNow()
	}

	log.Info("StockSentinel is running. Press Ctrl+C to stop.", zap.String("cron", cfg.Schedule.DailyCron))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping...")
	cancel()
}

func runOnce(ctx context.Context, sched *scheduler.Scheduler) {
	report, err := sched.Scan(ctx)
	if err != nil {
		zap.L().Error("scan", zap.Error(err))
		return
	}
	text, err := notifier.FormatReport(report)
	if err != nil {
		zap.L().Error("format scan report", zap.Error(err))
		return
	}
	fmt.Print(text)
}

// newProvider picks the bar source. Eastmoney also serves the exchange listings,
// so it is the lister for the yahoo provider too.
func newProvider(cfg *config.Config) (collector.Fetcher, registry.Lister) {
	timeout := time.Duration(cfg.DataSource.TimeoutSeconds) * time.Second
	switch cfg.DataSource.Provider {
	case "yahoo":
		em := collector.NewEastmoneyFetcher("", cfg.DataSource.ListURL, cfg.Proxy, timeout)
		return collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, timeout), em
	case "mock":
		m := &collector.MockFetcher{Price: 10, Listings: map[model.Exchange][]model.Ticker{}}
		tickers, _ := cfg.Tickers()
		for _, t := range tickers {
			if t.Name == "" {
				t.Name = "模拟" + t.Code
			}
			m.Listings[t.Exchange] = append(m.Listings[t.Exchange], t)
		}
		return m, m
	default:
		em := collector.NewEastmoneyFetcher(cfg.DataSource.BaseURL, cfg.DataSource.ListURL, cfg.Proxy, timeout)
		return em, em
	}
}

func newCollector(cfg *config.Config, fetcher collector.Fetcher) (*collector.Collector, error) {
	adjust, err := collector.ParseAdjust(cfg.DataSource.Adjust)
	if err != nil {
		return nil, err
	}
	start, err := clock.ParseDate(cfg.DataSource.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	col := collector.NewCollector(fetcher, clock.System{}, adjust)
	col.StartDate = start
	return col, nil
}

func loadRegistry(ctx context.Context, cfg *config.Config, lister registry.Lister) (*registry.Registry, error) {
	if cfg.Mode == config.ModeUniverse {
		return registry.Load(ctx, lister)
	}
	tickers, err := cfg.Tickers()
	if err != nil {
		return nil, err
	}
	reg, err := registry.LoadWatchlist(ctx, lister, tickers)
	if errors.Is(err, registry.ErrEmptyListing) {
		return nil, fmt.Errorf("ticker names unavailable: %w", err)
	}
	return reg, err
}

func newRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.Store.Backend {
	case "sqlite":
		return store.NewSQLiteRepository(cfg.Store.SQLitePath)
	case "redis":
		return store.NewRedisRepository(ctx, store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		})
	case "memory":
		return store.NewMemoryRepository(), nil
	default:
		return store.NewCSVRepository(cfg.Store.Dir)
	}
}

func serveMetrics(addr string, rec *metrics.Recorder) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("metrics server", zap.Error(err))
		}
	}()
	zap.L().Info("metrics endpoint listening", zap.String("addr", addr))
	return srv
}
