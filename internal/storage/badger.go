package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore persists values in an embedded badger database on local disk.
// It is the default backend: durable, profile-scoped, no server required.
type BadgerStore struct {
	watchers
	db *badger.DB
}

// NewBadgerStore opens (or creates) the database in dir. An empty dir opens an
// in-memory instance.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (s *BadgerStore) Set(ctx context.Context, key, value string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
	if err != nil {
		return err
	}
	s.notify(key, value, true)
	return nil
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return err
	}
	s.notify(key, "", false)
	return nil
}

func (s *BadgerStore) Subscribe(key string, fn func(string, bool)) func() {
	return s.subscribe(key, fn)
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
