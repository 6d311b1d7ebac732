// Package indexer drives blocked sort-based indexing: each block directory
// of a collection is parsed, inverted in memory and written as an
// intermediate index, then every intermediate index is merged into one
// global index next to the term and document dictionaries.
package indexer

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/block"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/merge"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/runlog"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/kvdb"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/metrics"
)

const (
	DefaultIndexName   = "main_index"
	TermsDictFile      = "terms.dict"
	DocsDictFile       = "docs.dict"
	intermediatePrefix = "intermediate_index_"
)

// IntermediateName is the index name used for one block's intermediate
// index.
func IntermediateName(blockName string) string {
	return intermediatePrefix + blockName
}

// ValidateIndexName rejects names whose files would land on the
// dictionaries or on an intermediate index in the output directory, and
// names that are not a single path element.
func ValidateIndexName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return apperrors.Newf(apperrors.ErrInvalidInput, "invalid index name %q", name)
	case strings.ContainsAny(name, `/\`):
		return apperrors.Newf(apperrors.ErrInvalidInput, "index name %q contains a path separator", name)
	case strings.HasPrefix(name, intermediatePrefix):
		return apperrors.Newf(apperrors.ErrInvalidInput, "index name %q is reserved for intermediate indexes", name)
	}
	for _, dict := range []string{TermsDictFile, DocsDictFile} {
		for _, ext := range []string{segment.DictExt, segment.PostingsExt} {
			if name+ext == dict {
				return apperrors.Newf(apperrors.ErrInvalidInput, "index name %q collides with dictionary %s", name, dict)
			}
		}
	}
	return nil
}

// RunRecorder persists a summary of every run, successful or not.
type RunRecorder interface {
	Record(ctx context.Context, rec runlog.RunRecord) error
}

type RunStats struct {
	RunID         string
	IndexName     string
	OutputDir     string
	Codec         string
	Blocks        int
	Documents     int
	Pairs         int
	Terms         int
	PostingsBytes int64
	Merge         merge.Stats
	StartedAt     time.Time
	Duration      time.Duration
}

type Option func(*Engine)

// WithCodec overrides the codec named in the config.
func WithCodec(c codec.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

func WithTokenizer(fn tokenizer.Func) Option {
	return func(e *Engine) { e.normalize = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func WithRunRecorder(r RunRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

type Engine struct {
	cfg       config.IndexerConfig
	codec     codec.Codec
	backend   int
	normalize tokenizer.Func
	metrics   *metrics.Metrics
	notifier  Notifier
	recorder  RunRecorder
	logger    *slog.Logger
}

func NewEngine(cfg config.IndexerConfig, opts ...Option) (*Engine, error) {
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Codec == "" {
		cfg.Codec = codec.VByte{}.Name()
	}
	if cfg.DictionaryBackend == "" {
		cfg.DictionaryBackend = "bolt"
	}
	if err := ValidateIndexName(cfg.IndexName); err != nil {
		return nil, err
	}
	c, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	backend, err := kvdb.BackendFromName(cfg.DictionaryBackend)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidInput, err.Error())
	}
	e := &Engine{
		cfg:       cfg,
		codec:     c,
		backend:   backend,
		normalize: tokenizer.Normalize,
		logger:    logger.WithComponent("indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.normalize == nil {
		e.normalize = tokenizer.Normalize
	}
	return e, nil
}

// Backend returns the kvdb backend the dictionaries are stored with.
func (e *Engine) Backend() int {
	return e.backend
}

// runState is what one Run shares across its phases.
type runState struct {
	collectionRoot string
	outputDir      string
	terms          *idmap.Map
	docs           *idmap.Map
	parser         *block.Parser
	intermediates  []string
	logger         *slog.Logger
}

// Run indexes every block directory directly under collectionRoot into
// outputDir. Blocks are processed in name order, so document and term ids
// are the same for every run over the same collection. On success
// outputDir holds the global index and both dictionaries; intermediate
// indexes are removed unless the config keeps them.
func (e *Engine) Run(ctx context.Context, collectionRoot, outputDir string) (*RunStats, error) {
	started := time.Now()
	runID := newRunID()
	ctx = logger.WithRunID(ctx, runID)

	terms, docs := idmap.New(), idmap.New()
	st := &runState{
		collectionRoot: collectionRoot,
		outputDir:      outputDir,
		terms:          terms,
		docs:           docs,
		parser:         block.NewParser(terms, docs, e.normalize, e.cfg.Workers),
		logger:         logger.FromContext(ctx).With("component", "indexer"),
	}
	stats := &RunStats{
		RunID:     runID,
		IndexName: e.cfg.IndexName,
		OutputDir: outputDir,
		Codec:     e.codec.Name(),
		StartedAt: started,
	}

	st.logger.Info("indexing run starting",
		"collection", collectionRoot,
		"output", outputDir,
		"codec", e.codec.Name(),
		"workers", e.cfg.Workers,
	)
	err := e.run(ctx, st, stats)
	stats.Duration = time.Since(started)
	e.finish(ctx, st, stats, err)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (e *Engine) run(ctx context.Context, st *runState, stats *RunStats) error {
	if err := os.MkdirAll(st.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	blocks, err := block.Blocks(st.collectionRoot)
	if err != nil {
		return err
	}
	if len(blocks) == 0 {
		return apperrors.Newf(apperrors.ErrNoInput, "collection %s has no block directories", st.collectionRoot)
	}
	defer e.removeIntermediates(st)

	for _, name := range blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		pairs, err := e.indexBlock(ctx, st, name)
		if err != nil {
			return fmt.Errorf("indexing block %s: %w", name, err)
		}
		stats.Blocks++
		stats.Pairs += pairs
	}
	stats.Documents = st.docs.Len()
	if st.terms.Len() == 0 {
		return apperrors.Newf(apperrors.ErrNoInput, "collection %s has no indexable terms", st.collectionRoot)
	}

	if err := e.saveDictionaries(st); err != nil {
		return err
	}
	return e.mergeIntermediates(st, stats)
}

// indexBlock parses, inverts and writes one block and returns the number
// of pairs it produced.
func (e *Engine) indexBlock(ctx context.Context, st *runState, blockName string) (int, error) {
	start := time.Now()
	docsBefore := st.docs.Len()

	pairs, err := st.parser.Parse(ctx, st.collectionRoot, blockName)
	if err != nil {
		return 0, err
	}
	inv := index.NewInverter()
	inv.Add(pairs...)

	name := IntermediateName(blockName)
	w, err := segment.Create(st.outputDir, name, e.codec)
	if err != nil {
		return 0, err
	}
	defer w.Abort()
	written, err := inv.WriteTo(w)
	if err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("finalizing %s: %w", name, err)
	}
	st.intermediates = append(st.intermediates, name)

	docs := st.docs.Len() - docsBefore
	if e.metrics != nil {
		e.metrics.BlocksIndexedTotal.Inc()
		e.metrics.BlockDuration.Observe(time.Since(start).Seconds())
		e.metrics.DocsIndexedTotal.Add(float64(docs))
		e.metrics.PairsInvertedTotal.Add(float64(len(pairs)))
	}
	st.logger.Info("block indexed",
		"block", blockName,
		"docs", docs,
		"pairs", len(pairs),
		"terms", written,
		"bytes", w.BytesWritten(),
		"duration", time.Since(start),
	)
	return len(pairs), nil
}

func (e *Engine) saveDictionaries(st *runState) error {
	dicts := []struct {
		file string
		m    *idmap.Map
	}{
		{TermsDictFile, st.terms},
		{DocsDictFile, st.docs},
	}
	for _, d := range dicts {
		path := filepath.Join(st.outputDir, d.file)
		if err := idmap.SaveFile(e.backend, path, d.m); err != nil {
			return fmt.Errorf("saving %s: %w", d.file, err)
		}
		st.logger.Debug("dictionary saved", "path", path, "entries", d.m.Len())
	}
	return nil
}

func (e *Engine) mergeIntermediates(st *runState, stats *RunStats) error {
	start := time.Now()
	readers := make([]*segment.Reader, 0, len(st.intermediates))
	defer func() {
		for _, r := range readers {
			if err := r.Close(); err != nil {
				st.logger.Warn("closing intermediate index", "index", r.Name(), "error", err)
			}
		}
	}()

	cursors := make([]merge.Cursor, 0, len(st.intermediates))
	for _, name := range st.intermediates {
		r, err := segment.Open(st.outputDir, name)
		if err != nil {
			return fmt.Errorf("opening intermediate index: %w", err)
		}
		readers = append(readers, r)
		cursors = append(cursors, r.Iterator())
	}

	w, err := segment.Create(st.outputDir, e.cfg.IndexName, e.codec)
	if err != nil {
		return err
	}
	defer w.Abort()
	ms, err := merge.Merge(cursors, w)
	if err != nil {
		return fmt.Errorf("merging intermediate indexes: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing %s: %w", e.cfg.IndexName, err)
	}

	stats.Merge = ms
	stats.Terms = ms.Terms
	stats.PostingsBytes = w.BytesWritten()
	if e.metrics != nil {
		e.metrics.MergeDuration.Observe(time.Since(start).Seconds())
	}
	st.logger.Info("intermediate indexes merged",
		"inputs", len(cursors),
		"terms", ms.Terms,
		"combined", ms.Combined,
		"duration", time.Since(start),
	)
	return nil
}

func (e *Engine) removeIntermediates(st *runState) {
	if e.cfg.KeepIntermediate {
		return
	}
	for _, name := range st.intermediates {
		if err := segment.Remove(st.outputDir, name); err != nil {
			st.logger.Warn("removing intermediate index", "index", name, "error", err)
		}
	}
}

// finish reports the outcome of a run to metrics, the run ledger and, on
// success, the notifier. None of these can fail the run.
func (e *Engine) finish(ctx context.Context, st *runState, stats *RunStats, runErr error) {
	ctx = context.WithoutCancel(ctx)
	status := runlog.StatusCompleted
	var errMsg string
	if runErr != nil {
		status = runlog.StatusFailed
		errMsg = runErr.Error()
	}

	if e.metrics != nil {
		if runErr != nil {
			e.metrics.IndexRunsTotal.WithLabelValues("error").Inc()
		} else {
			e.metrics.IndexRunsTotal.WithLabelValues("success").Inc()
			e.metrics.IndexTermsCount.Set(float64(stats.Terms))
			e.metrics.IndexBytesWritten.WithLabelValues(stats.Codec).Add(float64(stats.PostingsBytes))
		}
		e.metrics.IndexRunDuration.Observe(stats.Duration.Seconds())
	}

	if e.recorder != nil {
		rec := runlog.RunRecord{
			RunID:          stats.RunID,
			IndexName:      stats.IndexName,
			CollectionRoot: st.collectionRoot,
			OutputDir:      stats.OutputDir,
			Codec:          stats.Codec,
			Status:         status,
			Blocks:         stats.Blocks,
			Documents:      stats.Documents,
			Terms:          stats.Terms,
			PostingsBytes:  stats.PostingsBytes,
			StartedAt:      stats.StartedAt,
			Duration:       stats.Duration,
			Error:          errMsg,
		}
		if err := e.recorder.Record(ctx, rec); err != nil {
			st.logger.Error("failed to record indexing run", "error", err)
		}
	}

	if runErr != nil {
		st.logger.Error("indexing run failed",
			"error", runErr,
			"blocks", stats.Blocks,
			"duration", stats.Duration,
		)
		return
	}

	if e.notifier != nil {
		event := IndexCompleteEvent{
			RunID:         stats.RunID,
			IndexName:     stats.IndexName,
			OutputDir:     stats.OutputDir,
			Codec:         stats.Codec,
			Blocks:        stats.Blocks,
			Documents:     stats.Documents,
			Terms:         stats.Terms,
			PostingsBytes: stats.PostingsBytes,
			CompletedAt:   stats.StartedAt.Add(stats.Duration),
			DurationMS:    stats.Duration.Milliseconds(),
		}
		if err := e.notifier.IndexComplete(ctx, event); err != nil {
			st.logger.Error("failed to publish index completion", "error", err)
		}
	}
	st.logger.Info("indexing run complete",
		"index", stats.IndexName,
		"blocks", stats.Blocks,
		"docs", stats.Documents,
		"terms", stats.Terms,
		"bytes", stats.PostingsBytes,
		"duration", stats.Duration,
	)
}

func newRunID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
