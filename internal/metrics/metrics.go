package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ticker outcomes for TickersTotal.
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Recorder holds the scan collectors on a private registry.
type Recorder struct {
	reg *prometheus.Registry

	tickers  *prometheus.CounterVec
	signals  *prometheus.CounterVec
	fetch    *prometheus.HistogramVec
	lastScan prometheus.Gauge
}

// New creates a recorder with Go runtime collectors registered alongside.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		reg: reg,
		tickers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksentinel_tickers_total",
				Help: "Tickers handled by scans, by outcome",
			},
			[]string{"result"},
		),
		signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksentinel_signals_total",
				Help: "Signals generated, by kind",
			},
			[]string{"kind"},
		),
		fetch: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksentinel_fetch_duration_seconds",
				Help:    "Duration of market-data fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		lastScan: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stocksentinel_last_scan_timestamp_seconds",
			Help: "Unix time the last scan finished",
		}),
	}
	reg.MustRegister(r.tickers, r.signals, r.fetch, r.lastScan,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return r
}

func (r *Recorder) RecordTicker(result string) {
	r.tickers.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordSignal(kind string) {
	r.signals.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordFetch(provider string, d time.Duration) {
	r.fetch.WithLabelValues(provider).Observe(d.Seconds())
}

func (r *Recorder) RecordScanFinished(t time.Time) {
	r.lastScan.Set(float64(t.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
