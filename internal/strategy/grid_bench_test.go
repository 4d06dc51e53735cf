package strategy_test

import (
	"testing"

	"grid_go/internal/strategy"

	"github.com/shopspring/decimal"
)

// BenchmarkGridCycle_Tick measures one evaluation in the holding state.
func BenchmarkGridCycle_Tick(b *testing.B) {
	g, err := strategy.NewGridCycle(defaultParams())
	if err != nil {
		b.Fatal(err)
	}
	state := holdingAt("100", "100.09")
	price := decimal.RequireFromString("99.95")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		g.Tick(state, price)
	}
}

// BenchmarkGridLevels measures the pure level calculation.
func BenchmarkGridLevels(b *testing.B) {
	price := decimal.RequireFromString("0.5123")
	pct := decimal.RequireFromString("0.0009")

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		strategy.GridLevels(price, pct)
	}
}
