package infra

import (
	"testing"
)

func TestMetrics_RecordTick(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordTick(2000)
	m.RecordTick(3000)

	snap := m.Snapshot()

	if snap.TicksProcessed != 3 {
		t.Errorf("Expected 3 ticks, got %d", snap.TicksProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Trades(t *testing.T) {
	m := &Metrics{}

	m.RecordBuy()
	if !m.Snapshot().Holding {
		t.Error("Expected holding after buy")
	}

	m.RecordSell(false)
	m.RecordBuy()
	m.RecordSell(true)

	snap := m.Snapshot()
	if snap.Buys != 2 || snap.SellsLoss != 1 || snap.SellsProfit != 1 {
		t.Errorf("Unexpected trade counts: %+v", snap)
	}
	if snap.Holding {
		t.Error("Expected flat after sell")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordTick(1000)
	m.RecordMissedTick()
	m.RecordStoreError()
	m.RecordBuy()

	m.Reset()
	snap := m.Snapshot()

	if snap.TicksProcessed != 0 || snap.MissedTicks != 0 || snap.StoreErrors != 0 || snap.Buys != 0 {
		t.Errorf("Expected zeroed metrics after reset, got %+v", snap)
	}
	if snap.Holding {
		t.Error("Expected flat after reset")
	}
}
