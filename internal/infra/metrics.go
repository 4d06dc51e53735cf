package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ticksProcessed atomic.Uint64
	missedTicks    atomic.Uint64
	buys           atomic.Uint64
	sellsLoss      atomic.Uint64
	sellsProfit    atomic.Uint64
	storeErrors    atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	holding atomic.Int32 // 1 = in position, 0 = flat
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordTick records an evaluated tick with its fetch+evaluate latency.
func (m *Metrics) RecordTick(latencyNs int64) {
	m.ticksProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordMissedTick records a tick skipped because no price could be fetched.
func (m *Metrics) RecordMissedTick() {
	m.missedTicks.Add(1)
}

// RecordBuy records a simulated entry.
func (m *Metrics) RecordBuy() {
	m.buys.Add(1)
	m.holding.Store(1)
}

// RecordSell records a simulated exit.
func (m *Metrics) RecordSell(profit bool) {
	if profit {
		m.sellsProfit.Add(1)
	} else {
		m.sellsLoss.Add(1)
	}
	m.holding.Store(0)
}

// RecordStoreError records a failed counter read or write.
func (m *Metrics) RecordStoreError() {
	m.storeErrors.Add(1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	TicksProcessed uint64
	MissedTicks    uint64
	Buys           uint64
	SellsLoss      uint64
	SellsProfit    uint64
	StoreErrors    uint64
	AvgLatencyNs   int64
	Holding        bool
	Timestamp      time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		TicksProcessed: m.ticksProcessed.Load(),
		MissedTicks:    m.missedTicks.Load(),
		Buys:           m.buys.Load(),
		SellsLoss:      m.sellsLoss.Load(),
		SellsProfit:    m.sellsProfit.Load(),
		StoreErrors:    m.storeErrors.Load(),
		AvgLatencyNs:   avgLatency,
		Holding:        m.holding.Load() == 1,
		Timestamp:      time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ticksProcessed.Store(0)
	m.missedTicks.Store(0)
	m.buys.Store(0)
	m.sellsLoss.Store(0)
	m.sellsProfit.Store(0)
	m.storeErrors.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.holding.Store(0)
}
