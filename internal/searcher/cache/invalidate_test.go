package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

func TestHandleIndexCompleteDropsThatIndex(t *testing.T) {
	store := newMemStore()
	var calls atomic.Int32
	for _, name := range []string{"main_index", "other_index"} {
		c := New(store, time.Hour, WithIndexName(name))
		if _, _, err := c.GetOrCompute(context.Background(), "bm25", "cat", 10, nil, counting(sample, &calls)); err != nil {
			t.Fatal(err)
		}
	}

	value, err := json.Marshal(indexer.IndexCompleteEvent{RunID: "r1", IndexName: "main_index"})
	if err != nil {
		t.Fatal(err)
	}
	handler := HandleIndexComplete(store)
	if err := handler(context.Background(), []byte("main_index"), value); err != nil {
		t.Fatal(err)
	}
	if len(store.data) != 1 {
		t.Fatalf("remaining entries = %v", store.data)
	}
	for key := range store.data {
		if want := "search:other_index:"; key[:len(want)] != want {
			t.Fatalf("wrong entry survived: %s", key)
		}
	}
}

func TestHandleIndexCompleteRejectsBadEvents(t *testing.T) {
	handler := HandleIndexComplete(newMemStore())
	for _, value := range []string{"{not json", `{"run_id":"r1"}`} {
		if err := handler(context.Background(), nil, []byte(value)); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", value, err)
		}
	}
}

func TestHandleIndexCompleteNeedsFlusher(t *testing.T) {
	value, _ := json.Marshal(indexer.IndexCompleteEvent{IndexName: "main_index"})
	handler := HandleIndexComplete(struct{ Store }{newMemStore()})
	if err := handler(context.Background(), nil, value); err == nil {
		t.Fatal("expected error from a store that cannot flush")
	}
}
