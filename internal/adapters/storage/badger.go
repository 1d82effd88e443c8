package storage

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v3"

	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/domain"
	"github.com/Xhuk/ContinuityBridge.poc-sub005/internal/ports"
)

// Store implements ports.Storage on top of BadgerDB. Badger iterates keys in
// lexicographic order, which gives the queue its FIFO behavior for free.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

var _ ports.Storage = (*Store)(nil)

func New(cfg domain.StorageConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := badger.DefaultOptions(cfg.DataDir).
		WithLogger(nil).
		WithInMemory(cfg.InMemory)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &domain.StorageError{Type: domain.ErrCorrupted, Message: "open badger: " + err.Error()}
	}

	return &Store{
		db:     db,
		logger: logger.With("component", "storage"),
	}, nil
}

func (s *Store) Put(key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return &domain.StorageError{Type: domain.ErrCorrupted, Key: key, Message: "put: " + err.Error()}
	}
	return nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	var value []byte
	var found bool

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, &domain.StorageError{Type: domain.ErrCorrupted, Key: key, Message: "get: " + err.Error()}
	}
	return value, found, nil
}

func (s *Store) Delete(key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return &domain.StorageError{Type: domain.ErrCorrupted, Key: key, Message: "delete: " + err.Error()}
	}
	return nil
}

func (s *Store) GetNext(prefix string) (string, []byte, bool, error) {
	return s.seek(prefix, prefix)
}

func (s *Store) GetNextAfter(prefix, afterKey string) (string, []byte, bool, error) {
	// Seek strictly past afterKey by appending a zero byte.
	return s.seek(prefix, afterKey+"\x00")
}

func (s *Store) seek(prefix, seekKey string) (string, []byte, bool, error) {
	var key string
	var value []byte
	var found bool

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek([]byte(seekKey))
		if !it.ValidForPrefix([]byte(prefix)) {
			return nil
		}

		item := it.Item()
		key = string(item.KeyCopy(nil))
		var err error
		value, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", nil, false, &domain.StorageError{Type: domain.ErrCorrupted, Key: prefix, Message: "seek: " + err.Error()}
	}
	return key, value, found, nil
}

func (s *Store) ListByPrefix(prefix string) ([]ports.KeyValue, error) {
	var results []ports.KeyValue

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			results = append(results, ports.KeyValue{
				Key:   string(item.KeyCopy(nil)),
				Value: value,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &domain.StorageError{Type: domain.ErrCorrupted, Key: prefix, Message: "list: " + err.Error()}
	}
	return results, nil
}

func (s *Store) CountPrefix(prefix string) (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, &domain.StorageError{Type: domain.ErrCorrupted, Key: prefix, Message: "count: " + err.Error()}
	}
	return count, nil
}

func (s *Store) AtomicIncrement(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next int64
	err := s.db.Update(func(txn *badger.Txn) error {
		var current int64
		item, err := txn.Get([]byte(key))
		if err == nil {
			err = item.Value(func(val []byte) error {
				if len(val) == 8 {
					current = int64(binary.BigEndian.Uint64(val))
				}
				return nil
			})
			if err != nil {
				return err
			}
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		next = current + 1
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(next))
		return txn.Set([]byte(key), buf)
	})
	if err != nil {
		return 0, &domain.StorageError{Type: domain.ErrCorrupted, Key: key, Message: "increment: " + err.Error()}
	}
	return next, nil
}

func (s *Store) BatchWrite(ops []ports.WriteOp) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			switch op.Type {
			case ports.OpPut:
				if err := txn.Set([]byte(op.Key), op.Value); err != nil {
					return err
				}
			case ports.OpDelete:
				if err := txn.Delete([]byte(op.Key)); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return &domain.StorageError{Type: domain.ErrCorrupted, Message: "batch write: " + err.Error()}
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.logger.Info("closing storage")
	return s.db.Close()
}
