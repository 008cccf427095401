package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/xxxsen/readiness/internal/model"
	appErr "github.com/xxxsen/readiness/internal/pkg/errors"
)

const badgerKeyPrefix = "session:"

type badgerConfig struct {
	Dir      string `json:"dir"`
	InMemory bool   `json:"in_memory"`
}

type badgerStore struct {
	db *badger.DB
}

func init() {
	Register("badger", createBadgerStore)
}

func createBadgerStore(opts Options) (Store, error) {
	cfg := &badgerConfig{}
	if err := decodeConfig(opts.Data, cfg); err != nil {
		return nil, err
	}
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger session store dir is required")
	}
	return OpenBadgerStore(cfg.Dir, cfg.InMemory)
}

func OpenBadgerStore(dir string, inMemory bool) (Store, error) {
	options := badger.DefaultOptions(dir).WithLogger(nil)
	if inMemory {
		options = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerKeyPrefix + id)
}

func (b *badgerStore) Insert(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(s.ID)); err == nil {
			return appErr.ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(s.ID), data)
	})
}

func (b *badgerStore) Get(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &s)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, appErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (b *badgerStore) Save(ctx context.Context, s *model.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(s.ID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return appErr.ErrNotFound
			}
			return err
		}
		return txn.Set(badgerKey(s.ID), data)
	})
}

func (b *badgerStore) Delete(ctx context.Context, id string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return appErr.ErrNotFound
			}
			return err
		}
		return txn.Delete(badgerKey(id))
	})
}

func (b *badgerStore) ListExpired(ctx context.Context, cutoff int64, limit int) ([]string, error) {
	var items []expiredEntry
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var s model.Session
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &s)
			}); err != nil {
				return err
			}
			if s.Status.Terminal() && s.Mtime < cutoff {
				items = append(items, expiredEntry{id: s.ID, mtime: s.Mtime})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return oldestFirst(items, limit), nil
}

func (b *badgerStore) Close() error {
	return b.db.Close()
}
