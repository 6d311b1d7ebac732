// Package idmap assigns dense integer ids to strings (terms and document
// paths) and resolves them back. Ids start at 0 and follow first-seen order;
// an assigned id never changes. One Map instance serves a whole indexing run
// and is persisted as a snapshot at the end of it.
package idmap

import (
	"encoding/binary"
	"fmt"
	"iter"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/kvdb"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// Map is safe for concurrent use. Assignment is serialized under a single
// write lock, so ids depend only on the order in which ID calls complete.
type Map struct {
	mu   sync.RWMutex
	ids  map[string]uint32
	keys []string
}

func New() *Map {
	return &Map{
		ids: make(map[string]uint32),
	}
}

// ID returns the id of key, assigning the next free id if key is new.
func (m *Map) ID(key string) uint32 {
	m.mu.RLock()
	id, ok := m.ids[key]
	m.mu.RUnlock()
	if ok {
		return id
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.ids[key]; ok {
		return id
	}
	id = uint32(len(m.keys))
	m.ids[key] = id
	m.keys = append(m.keys, key)
	return id
}

// Lookup returns the id of key without assigning one.
func (m *Map) Lookup(key string) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.ids[key]
	return id, ok
}

// Key resolves an id back to its string.
func (m *Map) Key(id uint32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(id) >= len(m.keys) {
		return "", false
	}
	return m.keys[id], true
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// All yields (id, key) pairs in ascending id order over a snapshot taken when
// iteration starts.
func (m *Map) All() iter.Seq2[uint32, string] {
	return func(yield func(uint32, string) bool) {
		m.mu.RLock()
		keys := m.keys[:len(m.keys):len(m.keys)]
		m.mu.RUnlock()
		for i, key := range keys {
			if !yield(uint32(i), key) {
				return
			}
		}
	}
}

// Save replaces the contents of store with a snapshot of m. Keys are the
// big-endian ids so the store iterates them in id order.
func Save(store kvdb.Store, m *Map) error {
	if err := store.Reset(); err != nil {
		return fmt.Errorf("resetting dictionary store: %w", err)
	}
	keys := make([][]byte, 0, m.Len())
	values := make([][]byte, 0, m.Len())
	for id, key := range m.All() {
		keys = append(keys, binary.BigEndian.AppendUint32(nil, id))
		values = append(values, []byte(key))
	}
	if err := store.BatchSet(keys, values); err != nil {
		return fmt.Errorf("writing dictionary snapshot: %w", err)
	}
	return nil
}

// Load rebuilds a Map from a snapshot written by Save.
func Load(store kvdb.Store) (*Map, error) {
	m := New()
	_, err := store.Iterate(func(k, v []byte) error {
		if len(k) != 4 {
			return apperrors.Newf(apperrors.ErrCorruptIndex, "dictionary key of %d bytes", len(k))
		}
		id := binary.BigEndian.Uint32(k)
		if int(id) != len(m.keys) {
			return apperrors.Newf(apperrors.ErrCorruptIndex, "dictionary id %d found, expected %d", id, len(m.keys))
		}
		key := string(v)
		if _, dup := m.ids[key]; dup {
			return apperrors.Newf(apperrors.ErrCorruptIndex, "dictionary key %q stored twice", key)
		}
		m.ids[key] = id
		m.keys = append(m.keys, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading dictionary snapshot: %w", err)
	}
	return m, nil
}

// SaveFile opens the store at path, saves m into it and closes it.
func SaveFile(backend int, path string, m *Map) error {
	store, err := kvdb.Open(backend, path)
	if err != nil {
		return err
	}
	if err := Save(store, m); err != nil {
		store.Close()
		return err
	}
	return store.Close()
}

// LoadFile opens the store at path, loads a Map from it and closes it.
func LoadFile(backend int, path string) (*Map, error) {
	store, err := kvdb.Open(backend, path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return Load(store)
}
