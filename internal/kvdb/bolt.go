package kvdb

import (
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"
)

var boltBucket = []byte("entries")

type Bolt struct {
	db   *bolt.DB
	path string
}

func (b *Bolt) WithDataPath(path string) *Bolt {
	b.path = path
	return b
}

func (b *Bolt) Open() error {
	db, err := bolt.Open(b.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		db.Close()
		return err
	}
	b.db = db
	return nil
}

func (b *Bolt) Path() string {
	return b.path
}

func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(boltBucket) != nil {
			if err := tx.DeleteBucket(boltBucket); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(boltBucket)
		return err
	})
}

func (b *Bolt) BatchSet(keys, values [][]byte) error {
	if len(keys) != len(values) {
		return errors.New("key value not the same length")
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		for i, key := range keys {
			if err := bucket.Put(key, values[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) Iterate(fn func(k, v []byte) error) (int64, error) {
	var count int64
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).ForEach(func(k, v []byte) error {
			if err := fn(k, v); err != nil {
				return err
			}
			count++
			return nil
		})
	})
	return count, err
}

func (b *Bolt) Close() error {
	if b.db != nil {
		return b.db.Close()
	}
	return nil
}
