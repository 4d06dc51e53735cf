package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"grid_go/internal/domain"
	"grid_go/internal/infra"
)

// Counts is a point-in-time view of the durable event counters.
type Counts struct {
	Buys  int64 `json:"buys"`
	Sells int64 `json:"sells"`
}

// TradeCounter increments the durable buy/sell counters.
// A failed or corrupt read counts as 0; a failed write is logged and reported, never retried.
type TradeCounter struct {
	mu      sync.Mutex
	store   domain.CounterStore
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewTradeCounter creates a TradeCounter over store. metrics may be nil.
func NewTradeCounter(store domain.CounterStore, metrics *infra.Metrics) *TradeCounter {
	return &TradeCounter{
		store:   store,
		metrics: metrics,
		logger:  slog.Default().With("module", "trade_counter"),
	}
}

// Increment performs read-modify-write on key and returns the new value.
// The returned value is valid even when err (the write error) is non-nil.
func (c *TradeCounter) Increment(ctx context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := c.read(ctx, key)
	next := n + 1
	if err := c.store.WriteCount(ctx, key, next); err != nil {
		c.logger.Error("counter write failed",
			slog.String("key", key),
			slog.Int64("value", next),
			slog.Any("error", err),
		)
		c.recordStoreError()
		return next, err
	}
	return next, nil
}

// Snapshot reads both counters with the same read-failure-as-zero semantics.
func (c *TradeCounter) Snapshot(ctx context.Context) Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Counts{
		Buys:  c.read(ctx, domain.CounterBuy),
		Sells: c.read(ctx, domain.CounterSell),
	}
}

func (c *TradeCounter) read(ctx context.Context, key string) int64 {
	n, err := c.store.ReadCount(ctx, key)
	if err == nil {
		return n
	}

	level := slog.LevelWarn
	if errors.Is(err, domain.ErrCorruptCounter) {
		level = slog.LevelError
	}
	c.logger.Log(ctx, level, "counter read failed, treating as 0",
		slog.String("key", key),
		slog.Any("error", err),
	)
	c.recordStoreError()
	return 0
}

func (c *TradeCounter) recordStoreError() {
	if c.metrics != nil {
		c.metrics.RecordStoreError()
	}
}
