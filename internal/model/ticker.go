package model

import (
	"fmt"
	"strings"
)

// Exchange identifies a mainland stock exchange.
type Exchange string

const (
	ExchangeSH Exchange = "sh"
	ExchangeSZ Exchange = "sz"
)

// Ticker is a listed security.
type Ticker struct {
	Code     string // six digits, e.g. "600519"
	Name     string
	Exchange Exchange
}

// Symbol returns the exchange-prefixed form, e.g. "sh600519".
func (t Ticker) Symbol() string {
	return string(t.Exchange) + t.Code
}

// InferExchange guesses the exchange from a bare code.
func InferExchange(code string) Exchange {
	if strings.HasPrefix(code, "6") || strings.HasPrefix(code, "9") {
		return ExchangeSH
	}
	return ExchangeSZ
}

// ParseSymbol accepts "sh600519", "SZ000858" or a bare "600519".
func ParseSymbol(raw string) (Ticker, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	var ex Exchange
	switch {
	case strings.HasPrefix(s, string(ExchangeSH)):
		ex, s = ExchangeSH, s[2:]
	case strings.HasPrefix(s, string(ExchangeSZ)):
		ex, s = ExchangeSZ, s[2:]
	}
	if len(s) != 6 {
		return Ticker{}, fmt.Errorf("invalid ticker %q: want 6 digits", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Ticker{}, fmt.Errorf("invalid ticker %q: want 6 digits", raw)
		}
	}
	if ex == "" {
		ex = InferExchange(s)
	}
	return Ticker{Code: s, Exchange: ex}, nil
}
