// Package ranker scores documents term-at-a-time and selects the top K.
package ranker

import (
	"cmp"
	"container/heap"
	"math"
	"slices"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

type ScoredDoc struct {
	DocID uint32  `json:"doc_id"`
	Score float64 `json:"score"`
}

// IDF is log10(n/df), or 0 when either count is zero.
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log10(float64(n) / float64(df))
}

// Scorer weighs one term occurrence count within one document.
type Scorer interface {
	Weight(tf, docLen uint32) float64
}

// TFIDF weighs by 1 + log10(tf) and ignores document length.
type TFIDF struct{}

func (TFIDF) Weight(tf, _ uint32) float64 {
	if tf == 0 {
		return 0
	}
	return 1 + math.Log10(float64(tf))
}

// BM25 saturates tf with K1 and normalizes by document length with B.
// A zero AvgDocLen treats every document as average length.
type BM25 struct {
	K1        float64
	B         float64
	AvgDocLen float64
}

func (s BM25) Weight(tf, docLen uint32) float64 {
	if tf == 0 {
		return 0
	}
	ratio := 1.0
	if s.AvgDocLen > 0 {
		ratio = float64(docLen) / s.AvgDocLen
	}
	t := float64(tf)
	return (t * (s.K1 + 1)) / (t + s.K1*(1-s.B+s.B*ratio))
}

// Accumulator sums per-document scores across query terms.
type Accumulator struct {
	scores map[uint32]float64
}

func NewAccumulator() *Accumulator {
	return &Accumulator{scores: make(map[uint32]float64)}
}

// AddTerm adds idf * weight for every posting of one query term. A
// document in the postings is kept even if its contribution is 0.
func (a *Accumulator) AddTerm(idf float64, docIDs, tfs []uint32, docLen func(uint32) uint32, s Scorer) {
	for i, docID := range docIDs {
		var length uint32
		if docLen != nil {
			length = docLen(docID)
		}
		a.scores[docID] += idf * s.Weight(tfs[i], length)
	}
}

func (a *Accumulator) Add(docID uint32, score float64) {
	a.scores[docID] += score
}

func (a *Accumulator) Len() int {
	return len(a.scores)
}

func (a *Accumulator) Score(docID uint32) (float64, bool) {
	s, ok := a.scores[docID]
	return s, ok
}

// TopK returns the k best documents by score descending, ties by ascending
// docID. k <= 0 returns every document.
func (a *Accumulator) TopK(k int) []ScoredDoc {
	if k <= 0 || k >= len(a.scores) {
		out := make([]ScoredDoc, 0, len(a.scores))
		for docID, score := range a.scores {
			out = append(out, ScoredDoc{DocID: docID, Score: score})
		}
		slices.SortFunc(out, compareRank)
		return out
	}

	h := make(scoredDocHeap, 0, k+1)
	for docID, score := range a.scores {
		heap.Push(&h, ScoredDoc{DocID: docID, Score: score})
		if h.Len() > k {
			heap.Pop(&h)
		}
	}
	out := make([]ScoredDoc, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(ScoredDoc)
	}
	return out
}

// compareRank orders better documents first.
func compareRank(x, y ScoredDoc) int {
	if c := cmp.Compare(y.Score, x.Score); c != 0 {
		return c
	}
	return cmp.Compare(x.DocID, y.DocID)
}

// scoredDocHeap keeps the worst retained document at the root.
type scoredDocHeap []ScoredDoc

func (h scoredDocHeap) Len() int { return len(h) }

func (h scoredDocHeap) Less(i, j int) bool {
	return compareRank(h[i], h[j]) > 0
}

func (h scoredDocHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredDocHeap) Push(x any) {
	*h = append(*h, x.(ScoredDoc))
}

func (h *scoredDocHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
