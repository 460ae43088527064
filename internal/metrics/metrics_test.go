package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()
	r.RecordTicker(ResultProcessed)
	r.RecordTicker(ResultProcessed)
	r.RecordTicker(ResultSkipped)
	r.RecordSignal("BUY")
	r.RecordScanFinished(time.Unix(1700000000, 0))

	if got := testutil.ToFloat64(r.tickers.WithLabelValues(ResultProcessed)); got != 2 {
		t.Errorf("processed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.tickers.WithLabelValues(ResultSkipped)); got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.signals.WithLabelValues("BUY")); got != 1 {
		t.Errorf("buy = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.lastScan); got != 1700000000 {
		t.Errorf("last scan = %v", got)
	}
}

func TestRecorder_Handler(t *testing.T) {
	r := New()
	r.RecordFetch("mock", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `stocksentinel_fetch_duration_seconds_count{provider="mock"} 1`) {
		t.Errorf("fetch histogram missing from exposition:\n%s", body)
	}
}
