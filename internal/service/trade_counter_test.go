package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"grid_go/internal/domain"
	"grid_go/internal/infra"
	"grid_go/internal/infra/storage"
)

// flakyStore wraps a MemoryCounterStore with injectable failures.
type flakyStore struct {
	*storage.MemoryCounterStore
	readErr  error
	writeErr error
}

func (s *flakyStore) ReadCount(ctx context.Context, key string) (int64, error) {
	if s.readErr != nil {
		return 0, s.readErr
	}
	return s.MemoryCounterStore.ReadCount(ctx, key)
}

func (s *flakyStore) WriteCount(ctx context.Context, key string, value int64) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	return s.MemoryCounterStore.WriteCount(ctx, key, value)
}

func TestTradeCounter_Increment(t *testing.T) {
	ctx := context.Background()
	c := NewTradeCounter(storage.NewMemoryCounterStore(), nil)

	for want := int64(1); want <= 3; want++ {
		got, err := c.Increment(ctx, domain.CounterBuy)
		if err != nil {
			t.Fatalf("Increment: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	counts := c.Snapshot(ctx)
	if counts.Buys != 3 || counts.Sells != 0 {
		t.Errorf("unexpected snapshot: %+v", counts)
	}
}

func TestTradeCounter_ReadFailureCountsAsZero(t *testing.T) {
	ctx := context.Background()
	metrics := &infra.Metrics{}
	mem := storage.NewMemoryCounterStore()
	mem.WriteCount(ctx, domain.CounterSell, 41)

	s := &flakyStore{MemoryCounterStore: mem, readErr: errors.New("disk gone")}
	c := NewTradeCounter(s, metrics)

	got, err := c.Increment(ctx, domain.CounterSell)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if got != 1 {
		t.Errorf("read failure should restart at 1, got %d", got)
	}
	if metrics.Snapshot().StoreErrors != 1 {
		t.Errorf("expected 1 store error, got %d", metrics.Snapshot().StoreErrors)
	}
}

func TestTradeCounter_CorruptFileCountsAsZero(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "buy.txt"), []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFileCounterStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	c := NewTradeCounter(store, nil)

	got, err := c.Increment(context.Background(), domain.CounterBuy)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if got != 1 {
		t.Errorf("expected 1, got %d", got)
	}

	b, _ := os.ReadFile(filepath.Join(dir, "buy.txt"))
	if string(b) != "1" {
		t.Errorf("expected repaired file content 1, got %q", b)
	}
}

func TestTradeCounter_WriteFailureReported(t *testing.T) {
	ctx := context.Background()
	metrics := &infra.Metrics{}
	writeErr := errors.New("read-only filesystem")
	s := &flakyStore{MemoryCounterStore: storage.NewMemoryCounterStore(), writeErr: writeErr}
	c := NewTradeCounter(s, metrics)

	got, err := c.Increment(ctx, domain.CounterBuy)
	if !errors.Is(err, writeErr) {
		t.Errorf("expected write error, got %v", err)
	}
	if got != 1 {
		t.Errorf("expected intended value 1, got %d", got)
	}
	if metrics.Snapshot().StoreErrors != 1 {
		t.Errorf("expected 1 store error, got %d", metrics.Snapshot().StoreErrors)
	}

	// Counter stays at 0 because nothing was persisted
	if n, _ := s.MemoryCounterStore.ReadCount(ctx, domain.CounterBuy); n != 0 {
		t.Errorf("expected persisted 0, got %d", n)
	}
}

func TestTradeCounter_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	c := NewTradeCounter(storage.NewMemoryCounterStore(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Increment(ctx, domain.CounterSell)
		}()
	}
	wg.Wait()

	if got := c.Snapshot(ctx).Sells; got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}
