package strategy

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// GridLevels returns the buy and sell thresholds offset from price by the fraction pct.
// For 0 < pct < 1 and price > 0: buy < price < sell.
func GridLevels(price, pct decimal.Decimal) (buy, sell decimal.Decimal) {
	buy = price.Mul(one.Sub(pct))
	sell = price.Mul(one.Add(pct))
	return buy, sell
}

// StopLossPrice returns the exit threshold below entry. stopLossPct is in percent (1 = 1%).
func StopLossPrice(entry, stopLossPct decimal.Decimal) decimal.Decimal {
	return entry.Mul(one.Sub(stopLossPct.Div(hundred)))
}

// PositionSize is the base quantity bought with a fixed quote notional.
func PositionSize(capital, entry decimal.Decimal) decimal.Decimal {
	if entry.IsZero() {
		return decimal.Zero
	}
	return capital.Div(entry)
}

// Proceeds is the quote value of the position when sold at exit.
func Proceeds(capital, entry, exit decimal.Decimal) decimal.Decimal {
	return PositionSize(capital, entry).Mul(exit)
}

// DistanceFromBuyPct is how far price sits above (positive) or below the buy level, in percent.
func DistanceFromBuyPct(price, buyLevel decimal.Decimal) decimal.Decimal {
	if buyLevel.IsZero() {
		return decimal.Zero
	}
	return price.Sub(buyLevel).Div(buyLevel).Mul(hundred)
}
