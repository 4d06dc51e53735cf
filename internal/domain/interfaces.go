package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceSource supplies the latest trade price for a trading pair.
// Implementations must return an error instead of a non-positive price.
type PriceSource interface {
	FetchLatestPrice(ctx context.Context, pair string) (decimal.Decimal, error)
}

// CounterStore is a durable store of non-negative event counters.
// ReadCount returns 0 with a nil error when the key does not exist.
type CounterStore interface {
	ReadCount(ctx context.Context, key string) (int64, error)
	WriteCount(ctx context.Context, key string, value int64) error
	Close() error
}

// ExchangeWorker defines the interface for exchange WebSocket connectors
type ExchangeWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
