package idmap

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/kvdb"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

func TestIDAssignsDenseFirstSeenOrder(t *testing.T) {
	m := New()
	keys := []string{"dog", "cat", "dog", "fish", "cat", "bird"}
	want := []uint32{0, 1, 0, 2, 1, 3}
	for i, key := range keys {
		if got := m.ID(key); got != want[i] {
			t.Fatalf("ID(%q) = %d, want %d", key, got, want[i])
		}
	}
	if m.Len() != 4 {
		t.Fatalf("Len() = %d", m.Len())
	}
	for id, key := range []string{"dog", "cat", "fish", "bird"} {
		got, ok := m.Key(uint32(id))
		if !ok || got != key {
			t.Fatalf("Key(%d) = %q, %v", id, got, ok)
		}
	}
	if _, ok := m.Key(4); ok {
		t.Fatalf("Key(4) should be unknown")
	}
}

func TestLookupDoesNotAssign(t *testing.T) {
	m := New()
	m.ID("known")
	if _, ok := m.Lookup("xyzzy"); ok {
		t.Fatalf("Lookup found an unassigned key")
	}
	if m.Len() != 1 {
		t.Fatalf("Lookup assigned an id: Len() = %d", m.Len())
	}
	if id, ok := m.Lookup("known"); !ok || id != 0 {
		t.Fatalf("Lookup(known) = %d, %v", id, ok)
	}
}

func TestConcurrentIDIsSingleWriter(t *testing.T) {
	m := New()
	const n = 500
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n; i++ {
				m.ID(fmt.Sprintf("key-%d", i))
			}
		}()
	}
	wg.Wait()

	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	seen := make(map[uint32]bool, n)
	for id, key := range m.All() {
		if got, _ := m.Lookup(key); got != id {
			t.Fatalf("Lookup(%q) = %d, All yielded %d", key, got, id)
		}
		seen[id] = true
	}
	for i := uint32(0); i < n; i++ {
		if !seen[i] {
			t.Fatalf("id %d never assigned", i)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for name, backend := range map[string]int{"bolt": kvdb.BOLT, "badger": kvdb.BADGER} {
		t.Run(name, func(t *testing.T) {
			m := New()
			for _, key := range []string{"collections/0/a.txt", "collections/0/b.txt", "collections/1/c.txt"} {
				m.ID(key)
			}
			path := filepath.Join(t.TempDir(), "docs.dict")
			if err := SaveFile(backend, path, m); err != nil {
				t.Fatalf("SaveFile: %v", err)
			}
			// A second save must replace, not extend, the first snapshot.
			smaller := New()
			smaller.ID("collections/0/a.txt")
			smaller.ID("collections/0/b.txt")
			if err := SaveFile(backend, path, smaller); err != nil {
				t.Fatalf("SaveFile again: %v", err)
			}

			loaded, err := LoadFile(backend, path)
			if err != nil {
				t.Fatalf("LoadFile: %v", err)
			}
			if loaded.Len() != 2 {
				t.Fatalf("loaded %d keys, want 2", loaded.Len())
			}
			for id, key := range smaller.All() {
				if got, ok := loaded.Key(id); !ok || got != key {
					t.Fatalf("Key(%d) = %q, want %q", id, got, key)
				}
			}
			// Loaded maps keep assigning after the restored ids.
			if id := loaded.ID("collections/2/d.txt"); id != 2 {
				t.Fatalf("next id = %d, want 2", id)
			}
		})
	}
}

func TestLoadRejectsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.dict")
	store, err := kvdb.Open(kvdb.BOLT, path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	err = store.BatchSet(
		[][]byte{{0, 0, 0, 0}, {0, 0, 0, 2}},
		[][]byte{[]byte("a"), []byte("c")},
	)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Load(store); !errors.Is(err, apperrors.ErrCorruptIndex) {
		t.Fatalf("expected ErrCorruptIndex, got %v", err)
	}
}
