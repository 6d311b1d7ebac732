// Package executor answers ranked queries against a global index and its
// term and document dictionaries.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/metrics"
)

const (
	MethodTFIDF = "tfidf"
	MethodBM25  = "bm25"
)

// IndexReader is the read side of a global index. *segment.Reader
// implements it.
type IndexReader interface {
	Postings(termID uint32) ([]uint32, []uint32, error)
	DocCount() int
	DocLength(docID uint32) uint32
	AvgDocLength() float64
}

type Result struct {
	Score float64 `json:"score"`
	Path  string  `json:"path"`
	DocID uint32  `json:"doc_id"`
}

type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// Executor is read-only after New and safe for concurrent queries.
type Executor struct {
	reader    IndexReader
	terms     *idmap.Map
	docs      *idmap.Map
	normalize tokenizer.Func
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds an Executor. normalize must be the tokenizer the index was
// built with; nil selects tokenizer.Normalize.
func New(reader IndexReader, terms, docs *idmap.Map, normalize tokenizer.Func, opts ...Option) *Executor {
	if normalize == nil {
		normalize = tokenizer.Normalize
	}
	e := &Executor{
		reader:    reader,
		terms:     terms,
		docs:      docs,
		normalize: normalize,
		logger:    logger.WithComponent("query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RetrieveTfIdf ranks documents by the sum over query terms of
// log10(N/df) * (1 + log10(tf)).
func (e *Executor) RetrieveTfIdf(ctx context.Context, query string, k int) ([]Result, error) {
	return e.retrieve(ctx, MethodTFIDF, query, k, ranker.TFIDF{})
}

// RetrieveBM25 ranks documents by BM25 with saturation k1 and length
// normalization b.
func (e *Executor) RetrieveBM25(ctx context.Context, query string, k int, k1, b float64) ([]Result, error) {
	if k1 < 0 || b < 0 || b > 1 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "bm25 parameters out of range: k1=%v b=%v", k1, b)
	}
	scorer := ranker.BM25{K1: k1, B: b, AvgDocLen: e.reader.AvgDocLength()}
	return e.retrieve(ctx, MethodBM25, query, k, scorer)
}

func (e *Executor) retrieve(ctx context.Context, method, query string, k int, scorer ranker.Scorer) ([]Result, error) {
	start := time.Now()
	results, err := e.score(ctx, query, k, scorer)
	e.observe(method, start, results, err)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("query executed",
		"method", method,
		"query", query,
		"k", k,
		"results", len(results),
		"duration", time.Since(start),
	)
	return results, nil
}

func (e *Executor) score(ctx context.Context, query string, k int, scorer ranker.Scorer) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := e.reader.DocCount()
	acc := ranker.NewAccumulator()
	for term := range e.normalize(query) {
		termID, ok := e.terms.Lookup(term)
		if !ok {
			continue
		}
		docIDs, tfs, err := e.reader.Postings(termID)
		if err != nil {
			return nil, fmt.Errorf("reading postings of %q: %w", term, err)
		}
		if len(docIDs) == 0 {
			continue
		}
		acc.AddTerm(ranker.IDF(n, len(docIDs)), docIDs, tfs, e.reader.DocLength, scorer)
	}

	top := acc.TopK(k)
	results := make([]Result, 0, len(top))
	for _, doc := range top {
		path, ok := e.docs.Key(doc.DocID)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrCorruptIndex, "doc %d missing from document dictionary", doc.DocID)
		}
		results = append(results, Result{Score: doc.Score, Path: path, DocID: doc.DocID})
	}
	return results, nil
}

func (e *Executor) observe(method string, start time.Time, results []Result, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		e.metrics.SearchQueriesTotal.WithLabelValues(method, "error").Inc()
	case len(results) == 0:
		e.metrics.SearchQueriesTotal.WithLabelValues(method, "zero_result").Inc()
		e.metrics.SearchResultsCount.WithLabelValues(method).Observe(0)
	default:
		e.metrics.SearchQueriesTotal.WithLabelValues(method, "hit").Inc()
		e.metrics.SearchResultsCount.WithLabelValues(method).Observe(float64(len(results)))
	}
}

// Related ranks documents by TF-IDF against the title and body of the
// document at path, leaving that document out however its path is spelled.
func (e *Executor) Related(ctx context.Context, path string, k int) ([]Result, error) {
	doc, err := ReadDocument(path)
	if err != nil {
		return nil, err
	}
	limit := k
	if k > 0 {
		limit = k + 1
	}
	results, err := e.RetrieveTfIdf(ctx, doc.Title+" "+doc.Body, limit)
	if err != nil {
		return nil, err
	}
	clean := filepath.Clean(path)
	self, indexed := e.docs.Lookup(clean)
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if (indexed && r.DocID == self) || filepath.Clean(r.Path) == clean {
			continue
		}
		out = append(out, r)
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}
