package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"StockSentinel/internal/model"
)

func TestFormatSignalBlock(t *testing.T) {
	d := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)
	buy := model.Signal{Kind: model.SignalBuy, Message: "2024-05-06 J值触底回升：15.00", Date: d, J: 15}

	got := FormatSignalBlock("600519", "贵州茅台", buy, 15)
	want := "股票代码：600519，股票名称：贵州茅台\n信号类型：BUY\n2024-05-06 J值触底回升：15.00\n当前J值：15.00"
	if got != want {
		t.Errorf("buy block:\n%q\nwant\n%q", got, want)
	}

	hold := model.Signal{Kind: model.SignalHold, Date: d, J: 47.123}
	got = FormatSignalBlock("000858", "五粮液", hold, 47.123)
	want = "股票代码：000858，股票名称：五粮液 今日无交易信号，当前J值：47.12"
	if got != want {
		t.Errorf("hold block:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatReport(t *testing.T) {
	start := time.Date(2024, 5, 6, 15, 30, 0, 0, time.UTC)
	r := &model.ScanReport{
		Started: start, Finished: start.Add(90 * time.Second),
		Processed: 3, Skipped: 1,
		Signals: []model.TickerSignal{
			{Ticker: model.Ticker{Code: "600519", Name: "贵州茅台"}, Signal: model.Signal{Kind: model.SignalSell, Date: start, J: 91.5}},
		},
	}
	out, err := FormatReport(r)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"处理 3", "跳过 1", "卖出 1", "代码", "名称", "600519", "贵州茅台", "SELL", "2024-05-06", "91.50"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	r.Signals = nil
	if out, err := FormatReport(r); err != nil || !strings.Contains(out, "今日无交易信号") {
		t.Errorf("empty report should say no signals:\n%s", out)
	}
}

func TestPre_Escapes(t *testing.T) {
	if got := Pre("a<b"); got != "<pre>a&lt;b</pre>" {
		t.Errorf("got %q", got)
	}
}

func TestTelegram_Send(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	if err := tg.Send("hello"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "hello" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestTelegram_SendWithRetryRecovers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "flood", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	if err := tg.SendWithRetry(context.Background(), "hi", 2); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestTelegram_PollingRepliesToKnownChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var polled int32
	replies := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if atomic.AddInt32(&polled, 1) == 1 {
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":1,"message":{"text":"/scan","chat":{"id":42}}},
					{"update_id":2,"message":{"text":"/scan","chat":{"id":7}}}]}`))
				return
			}
			<-r.Context().Done()
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var p map[string]string
			json.NewDecoder(r.Body).Decode(&p)
			replies <- p["text"]
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	tg := NewTelegramNotifier("TOKEN", "42", "")
	tg.APIBase = srv.URL
	var handled int32
	done := make(chan struct{})
	go func() {
		tg.StartPolling(ctx, func(_ context.Context, cmd string) string {
			atomic.AddInt32(&handled, 1)
			return "ok " + cmd
		})
		close(done)
	}()

	select {
	case got := <-replies:
		if got != "ok /scan" {
			t.Errorf("unexpected reply %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reply sent")
	}
	cancel()
	<-done
	if handled != 1 {
		t.Errorf("expected only the configured chat to be handled, got %d", handled)
	}
}
