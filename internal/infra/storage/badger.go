package storage

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "counter:"

// BadgerCounterStore persists counters in an embedded Badger KV store as decimal text.
type BadgerCounterStore struct {
	db *badger.DB
}

// NewBadgerCounterStore opens the Badger directory at dir.
func NewBadgerCounterStore(dir string) (*BadgerCounterStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &BadgerCounterStore{db: db}, nil
}

// ReadCount returns 0 when the key does not exist.
func (s *BadgerCounterStore) ReadCount(ctx context.Context, key string) (int64, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return parseCount(key, raw)
}

// WriteCount stores value under key.
func (s *BadgerCounterStore) WriteCount(ctx context.Context, key string, value int64) error {
	if err := checkWrite(key, value); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerKeyPrefix+key), formatCount(value))
	})
}

// Close flushes and closes the store.
func (s *BadgerCounterStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
