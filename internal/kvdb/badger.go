package kvdb

import (
	"errors"
	"os"

	"github.com/dgraph-io/badger/v4"
)

type Badger struct {
	db   *badger.DB
	path string
}

func (b *Badger) WithDataPath(path string) *Badger {
	b.path = path
	return b
}

func (b *Badger) Open() error {
	if err := os.MkdirAll(b.path, 0o755); err != nil {
		return err
	}
	option := badger.DefaultOptions(b.path).
		WithNumVersionsToKeep(1).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(option)
	if err != nil {
		return err
	}
	b.db = db
	return nil
}

func (b *Badger) Path() string {
	return b.path
}

func (b *Badger) Reset() error {
	return b.db.DropAll()
}

// BatchSet writes through a WriteBatch, which splits oversized transactions
// on its own.
func (b *Badger) BatchSet(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.New("key value not the same length")
	}
	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for i, key := range keys {
		if err := wb.Set(key, values[i]); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func (b *Badger) Iterate(fn func(k, v []byte) error) (int64, error) {
	var count int64
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.Key()
			// item.Value only keeps v valid inside the callback
			err := item.Value(func(v []byte) error {
				return fn(k, v)
			})
			if err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (b *Badger) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
