package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"grid_go/internal/domain"
	"grid_go/internal/infra"
)

// backends returns one fresh instance of every durable-or-not CounterStore.
func backends(t *testing.T) map[string]domain.CounterStore {
	t.Helper()
	dir := t.TempDir()

	file, err := NewFileCounterStore(filepath.Join(dir, "file"))
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	sq, err := NewSQLiteCounterStore(filepath.Join(dir, "sqlite", "counters.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	bg, err := NewBadgerCounterStore(filepath.Join(dir, "badger"))
	if err != nil {
		t.Fatalf("badger store: %v", err)
	}

	stores := map[string]domain.CounterStore{
		"file":   file,
		"sqlite": sq,
		"badger": bg,
		"memory": NewMemoryCounterStore(),
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestCounterStores_ReadWrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			n, err := s.ReadCount(ctx, domain.CounterBuy)
			if err != nil {
				t.Fatalf("ReadCount on missing key: %v", err)
			}
			if n != 0 {
				t.Errorf("missing key: expected 0, got %d", n)
			}

			if err := s.WriteCount(ctx, domain.CounterBuy, 5); err != nil {
				t.Fatalf("WriteCount: %v", err)
			}
			if err := s.WriteCount(ctx, domain.CounterBuy, 6); err != nil {
				t.Fatalf("WriteCount overwrite: %v", err)
			}

			n, err = s.ReadCount(ctx, domain.CounterBuy)
			if err != nil {
				t.Fatalf("ReadCount: %v", err)
			}
			if n != 6 {
				t.Errorf("expected 6, got %d", n)
			}

			// Keys are independent
			n, _ = s.ReadCount(ctx, domain.CounterSell)
			if n != 0 {
				t.Errorf("sell counter should be untouched, got %d", n)
			}
		})
	}
}

func TestCounterStores_RejectNegative(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.WriteCount(ctx, domain.CounterSell, -1); err == nil {
				t.Error("expected error for negative value")
			}
		})
	}
}

func TestFileCounterStore_Format(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileCounterStore(dir)
	ctx := context.Background()

	if err := s.WriteCount(ctx, domain.CounterBuy, 42); err != nil {
		t.Fatalf("WriteCount: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "buy.txt"))
	if err != nil {
		t.Fatalf("counter file missing: %v", err)
	}
	if string(b) != "42" {
		t.Errorf("expected decimal text 42, got %q", b)
	}
	if _, err := os.Stat(filepath.Join(dir, "buy.txt.tmp")); !os.IsNotExist(err) {
		t.Error("temp file should not survive a write")
	}
}

func TestFileCounterStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewFileCounterStore(dir)
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		want    int64
		wantErr bool
	}{
		{"trailing newline", "7\n", 7, false},
		{"garbage", "abc", 0, true},
		{"negative", "-3", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(dir, "sell.txt"), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			n, err := s.ReadCount(ctx, domain.CounterSell)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrCorruptCounter) {
					t.Errorf("expected ErrCorruptCounter, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n != tt.want {
				t.Errorf("expected %d, got %d", tt.want, n)
			}
		})
	}
}

func TestFileCounterStore_Durable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, _ := NewFileCounterStore(dir)
	s1.WriteCount(ctx, domain.CounterBuy, 3)
	s1.Close()

	s2, _ := NewFileCounterStore(dir)
	n, err := s2.ReadCount(ctx, domain.CounterBuy)
	if err != nil || n != 3 {
		t.Errorf("expected 3 after reopen, got %d (err=%v)", n, err)
	}
}

func TestSQLiteCounterStore_All(t *testing.T) {
	s, err := NewSQLiteCounterStore(filepath.Join(t.TempDir(), "counters.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	s.WriteCount(ctx, domain.CounterSell, 2)
	s.WriteCount(ctx, domain.CounterBuy, 4)

	recs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recs))
	}
	if recs[0].Key != domain.CounterBuy || recs[0].Value != 4 {
		t.Errorf("unexpected first row: %+v", recs[0])
	}
}

func TestBadgerCounterStore_Durable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewBadgerCounterStore(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s1.WriteCount(ctx, domain.CounterSell, 9)
	s1.Close()

	s2, err := NewBadgerCounterStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	n, err := s2.ReadCount(ctx, domain.CounterSell)
	if err != nil || n != 9 {
		t.Errorf("expected 9 after reopen, got %d (err=%v)", n, err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		driver  string
		wantErr bool
	}{
		{infra.DriverFile, false},
		{infra.DriverSQLite, false},
		{infra.DriverBadger, false},
		{infra.DriverMemory, false},
		{"redis", true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			cfg := infra.DefaultConfig()
			cfg.Storage.Driver = tt.driver
			cfg.Storage.Path = t.TempDir()

			s, err := Open(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Open(%s): %v", tt.driver, err)
			}
			defer s.Close()

			if err := s.WriteCount(context.Background(), domain.CounterBuy, 1); err != nil {
				t.Errorf("WriteCount: %v", err)
			}
		})
	}
}
