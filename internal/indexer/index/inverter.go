package index

import (
	"fmt"
	"slices"
)

// Inverter aggregates the (termID, docID) pairs of one block into per-term
// docID -> term frequency maps. It is not safe for concurrent use; each block
// owns its own Inverter.
type Inverter struct {
	index map[uint32]map[uint32]uint32
	pairs int
}

func NewInverter() *Inverter {
	return &Inverter{
		index: make(map[uint32]map[uint32]uint32),
	}
}

func (inv *Inverter) Add(pairs ...Pair) {
	for _, p := range pairs {
		docs, exists := inv.index[p.TermID]
		if !exists {
			docs = make(map[uint32]uint32)
			inv.index[p.TermID] = docs
		}
		docs[p.DocID]++
	}
	inv.pairs += len(pairs)
}

func (inv *Inverter) Terms() int {
	return len(inv.index)
}

func (inv *Inverter) Pairs() int {
	return inv.pairs
}

// Snapshot returns every term's postings, ascending by termID, each list
// ascending by docID.
func (inv *Inverter) Snapshot() []TermPostings {
	termIDs := make([]uint32, 0, len(inv.index))
	for termID := range inv.index {
		termIDs = append(termIDs, termID)
	}
	slices.Sort(termIDs)

	entries := make([]TermPostings, 0, len(termIDs))
	for _, termID := range termIDs {
		docs := inv.index[termID]
		docIDs := make([]uint32, 0, len(docs))
		for docID := range docs {
			docIDs = append(docIDs, docID)
		}
		slices.Sort(docIDs)
		tfs := make([]uint32, len(docIDs))
		for i, docID := range docIDs {
			tfs[i] = docs[docID]
		}
		entries = append(entries, TermPostings{TermID: termID, DocIDs: docIDs, TFs: tfs})
	}
	return entries
}

// WriteTo appends every term to dst in ascending termID order and returns the
// number of terms written.
func (inv *Inverter) WriteTo(dst Appender) (int, error) {
	entries := inv.Snapshot()
	for _, e := range entries {
		if err := dst.Append(e.TermID, e.DocIDs, e.TFs); err != nil {
			return 0, fmt.Errorf("appending term %d: %w", e.TermID, err)
		}
	}
	return len(entries), nil
}
