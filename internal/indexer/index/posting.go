package index

import (
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

// Pair is one occurrence of a term in a document, as produced by block
// parsing. A document contributes one Pair per term occurrence.
type Pair struct {
	TermID uint32
	DocID  uint32
}

// TermPostings is the full postings list of one term: DocIDs strictly
// ascending, TFs co-indexed with DocIDs and every TF at least 1.
type TermPostings struct {
	TermID uint32
	DocIDs []uint32
	TFs    []uint32
}

// Appender receives one term's postings at a time in ascending term order.
type Appender interface {
	Append(termID uint32, docIDs, tfs []uint32) error
}

// MergePostings combines two postings lists of the same term whose docIDs
// come from disjoint blocks. The result is ascending by docID with each TF
// carried alongside its docID. A docID present in both inputs is rejected
// with ErrMergeInput.
func MergePostings(a, b TermPostings) (TermPostings, error) {
	out := TermPostings{
		TermID: a.TermID,
		DocIDs: make([]uint32, 0, len(a.DocIDs)+len(b.DocIDs)),
		TFs:    make([]uint32, 0, len(a.DocIDs)+len(b.DocIDs)),
	}
	i, j := 0, 0
	for i < len(a.DocIDs) && j < len(b.DocIDs) {
		switch {
		case a.DocIDs[i] < b.DocIDs[j]:
			out.DocIDs = append(out.DocIDs, a.DocIDs[i])
			out.TFs = append(out.TFs, a.TFs[i])
			i++
		case a.DocIDs[i] > b.DocIDs[j]:
			out.DocIDs = append(out.DocIDs, b.DocIDs[j])
			out.TFs = append(out.TFs, b.TFs[j])
			j++
		default:
			return TermPostings{}, apperrors.Newf(apperrors.ErrMergeInput,
				"term %d: doc %d present in two inputs", a.TermID, a.DocIDs[i])
		}
	}
	out.DocIDs = append(out.DocIDs, a.DocIDs[i:]...)
	out.TFs = append(out.TFs, a.TFs[i:]...)
	out.DocIDs = append(out.DocIDs, b.DocIDs[j:]...)
	out.TFs = append(out.TFs, b.TFs[j:]...)
	return out, nil
}
