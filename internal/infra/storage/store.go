package storage

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"grid_go/internal/domain"
	"grid_go/internal/infra"
)

// Open returns the CounterStore selected by cfg.Storage.Driver.
func Open(cfg *infra.Config) (domain.CounterStore, error) {
	switch cfg.Storage.Driver {
	case infra.DriverFile, "":
		return NewFileCounterStore(cfg.Storage.Path)
	case infra.DriverSQLite:
		return NewSQLiteCounterStore(filepath.Join(cfg.Storage.Path, "counters.db"))
	case infra.DriverBadger:
		return NewBadgerCounterStore(filepath.Join(cfg.Storage.Path, "badger"))
	case infra.DriverMemory:
		return NewMemoryCounterStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// parseCount decodes the decimal text form shared by the file and badger stores.
func parseCount(key string, raw []byte) (int64, error) {
	text := strings.TrimSpace(string(raw))
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", domain.ErrCorruptCounter, key, text)
	}
	return n, nil
}

func formatCount(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func checkWrite(key string, value int64) error {
	if key == "" {
		return fmt.Errorf("counter key is empty")
	}
	if value < 0 {
		return fmt.Errorf("counter %s: negative value %d", key, value)
	}
	return nil
}
