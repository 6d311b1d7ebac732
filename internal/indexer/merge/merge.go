// Package merge combines several sorted intermediate indexes into one.
package merge

import (
	"container/heap"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// Cursor walks one index's terms in ascending termID order.
// *segment.Iterator implements it.
type Cursor interface {
	Next() bool
	Current() index.TermPostings
	Err() error
}

type Stats struct {
	Terms    int // terms appended to dst
	Postings int // (docID, tf) entries read from all cursors
	Combined int // times two inputs held the same term
}

// Merge performs a k-way merge of cursors into dst. Each termID reaches dst
// exactly once, carrying the union of its postings from every input. Inputs
// must hold disjoint docIDs for any shared term.
func Merge(cursors []Cursor, dst index.Appender) (Stats, error) {
	var stats Stats
	if len(cursors) == 0 {
		return stats, apperrors.New(apperrors.ErrNoInput, "merge called without inputs")
	}

	h := make(cursorHeap, 0, len(cursors))
	for i, c := range cursors {
		item, ok, err := advance(c, i, nil)
		if err != nil {
			return stats, err
		}
		if ok {
			h = append(h, item)
		}
	}
	heap.Init(&h)
	if h.Len() == 0 {
		return stats, apperrors.New(apperrors.ErrNoInput, "every merge input is empty")
	}

	var acc index.TermPostings
	pending := false
	flush := func() error {
		if !pending {
			return nil
		}
		if err := dst.Append(acc.TermID, acc.DocIDs, acc.TFs); err != nil {
			return fmt.Errorf("appending merged term %d: %w", acc.TermID, err)
		}
		stats.Terms++
		pending = false
		return nil
	}

	for h.Len() > 0 {
		top := heap.Pop(&h).(*cursorItem)
		cur := top.postings
		stats.Postings += len(cur.DocIDs)

		switch {
		case pending && cur.TermID == acc.TermID:
			merged, err := index.MergePostings(acc, cur)
			if err != nil {
				return stats, err
			}
			acc = merged
			stats.Combined++
		default:
			if err := flush(); err != nil {
				return stats, err
			}
			acc = cur
			pending = true
		}

		next, ok, err := advance(cursors[top.index], top.index, &cur)
		if err != nil {
			return stats, err
		}
		if ok {
			heap.Push(&h, next)
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

// advance moves c to its next term and checks that termIDs keep ascending.
func advance(c Cursor, idx int, prev *index.TermPostings) (*cursorItem, bool, error) {
	if !c.Next() {
		if err := c.Err(); err != nil {
			return nil, false, fmt.Errorf("reading merge input %d: %w", idx, err)
		}
		return nil, false, nil
	}
	cur := c.Current()
	if prev != nil && cur.TermID <= prev.TermID {
		return nil, false, apperrors.Newf(apperrors.ErrMergeOrder,
			"input %d: term %d after term %d", idx, cur.TermID, prev.TermID)
	}
	return &cursorItem{postings: cur, index: idx}, true, nil
}

type cursorItem struct {
	postings index.TermPostings
	index    int
}

type cursorHeap []*cursorItem

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if h[i].postings.TermID != h[j].postings.TermID {
		return h[i].postings.TermID < h[j].postings.TermID
	}
	return h[i].index < h[j].index
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*cursorItem))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
