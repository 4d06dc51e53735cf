package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Ticker represents the last trade of a single pair on a single exchange
type Ticker struct {
	Symbol    string          `json:"symbol"`    // Exchange-native symbol (e.g., "XRPUSDT")
	Price     decimal.Decimal `json:"price"`     // Last trade price
	Exchange  string          `json:"exchange"`  // "BITGET_S", "UPBIT", "MEXC"
	Precision int             `json:"precision"` // Decimal places reported by the exchange
	Time      time.Time       `json:"time"`      // Exchange timestamp, or receive time if absent
}

// Validate rejects zero or negative prices.
func (t *Ticker) Validate() error {
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: %s %s=%s", ErrInvalidPrice, t.Exchange, t.Symbol, t.Price.String())
	}
	return nil
}

// Pair is a base/quote trading pair such as XRP/USDT.
type Pair struct {
	Base  string
	Quote string
}

// ParsePair parses "XRP/USDT", "XRP-USDT" or "xrp_usdt" into a Pair.
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote, ok := strings.Cut(s, sep); ok {
			if base == "" || quote == "" {
				break
			}
			return Pair{Base: base, Quote: quote}, nil
		}
	}
	return Pair{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
}

// String returns the unified form, e.g. "XRP/USDT".
func (p Pair) String() string {
	return p.Base + "/" + p.Quote
}

// Concat returns the form used by Bitget and MEXC, e.g. "XRPUSDT".
func (p Pair) Concat() string {
	return p.Base + p.Quote
}

// QuoteFirst returns the Upbit market code, e.g. "KRW-XRP".
func (p Pair) QuoteFirst() string {
	return p.Quote + "-" + p.Base
}

// DeterminePrecision counts the decimal places of a price string as sent by the exchange.
func DeterminePrecision(priceStr string) int {
	if idx := strings.Index(priceStr, "."); idx >= 0 {
		return len(priceStr) - idx - 1
	}
	return 0
}
