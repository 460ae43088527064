package notifier

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"StockSentinel/internal/model"
)

// Rule separates ticker blocks on the console.
var Rule = strings.Repeat("-", 50)

// FormatSignalBlock renders one ticker's result.
// BUY/SELL produce a four-line block; HOLD a single line.
func FormatSignalBlock(code, name string, sig model.Signal, latestJ float64) string {
	if !sig.Actionable() {
		return fmt.Sprintf("股票代码：%s，股票名称：%s 今日无交易信号，当前J值：%.2f", code, name, latestJ)
	}
	return fmt.Sprintf("股票代码：%s，股票名称：%s\n信号类型：%s\n%s\n当前J值：%.2f",
		code, name, sig.Kind, sig.Message, latestJ)
}

// FormatReport renders the end-of-run summary with a table of actionable signals.
func FormatReport(r *model.ScanReport) (string, error) {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("扫描完成 %s | 耗时 %s\n", r.Finished.Format("2006-01-02 15:04"),
		r.Finished.Sub(r.Started).Round(time.Second)))
	b.WriteString(fmt.Sprintf("处理 %d | 跳过 %d | 失败 %d | 买入 %d | 卖出 %d\n",
		r.Processed, r.Skipped, r.Failed, r.Count(model.SignalBuy), r.Count(model.SignalSell)))
	if len(r.Signals) == 0 {
		b.WriteString("今日无交易信号\n")
		return b.String(), nil
	}

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.Border{Left: tw.On, Right: tw.On, Top: tw.Off, Bottom: tw.Off},
		})),
		tablewriter.WithRowAlignment(tw.AlignRight),
	)
	table.Header("代码", "名称", "信号", "日期", "J")
	for _, ts := range r.Signals {
		err := table.Append([]string{
			ts.Ticker.Code,
			ts.Ticker.Name,
			string(ts.Signal.Kind),
			ts.Signal.Date.Format("2006-01-02"),
			strconv.FormatFloat(ts.Signal.J, 'f', 2, 64),
		})
		if err != nil {
			return "", fmt.Errorf("append %s: %w", ts.Ticker.Code, err)
		}
	}
	if err := table.Render(); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return b.String(), nil
}

// Pre wraps text for Telegram's HTML parse mode, preserving alignment.
func Pre(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}
