// Package block turns one block directory of a collection into the
// (termID, docID) pairs that the inverter aggregates.
package block

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
)

// Parser reads the documents of a block and maps their terms and paths to
// ids. Reading and tokenizing run on a bounded worker pool; id assignment
// happens afterwards in file-name order, so ids are the same for every run
// over the same collection.
type Parser struct {
	terms     *idmap.Map
	docs      *idmap.Map
	normalize tokenizer.Func
	workers   int
	logger    *slog.Logger
}

func NewParser(terms, docs *idmap.Map, normalize tokenizer.Func, workers int) *Parser {
	if normalize == nil {
		normalize = tokenizer.Normalize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Parser{
		terms:     terms,
		docs:      docs,
		normalize: normalize,
		workers:   workers,
		logger:    logger.WithComponent("block-parser"),
	}
}

type document struct {
	path  string
	terms []string
}

// Parse returns one pair per term occurrence across every regular file of
// collectionRoot/blockName. An unreadable file or a file that is not valid
// UTF-8 fails the whole block.
func (p *Parser) Parse(ctx context.Context, collectionRoot, blockName string) ([]index.Pair, error) {
	dir := filepath.Join(collectionRoot, blockName)
	names, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	parsed := make([]document, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, name)
			terms, err := p.readDocument(path)
			if err != nil {
				return err
			}
			parsed[i] = document{path: path, terms: terms}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parsing block %s: %w", blockName, err)
	}

	var pairs []index.Pair
	for _, doc := range parsed {
		docID := p.docs.ID(doc.path)
		for _, term := range doc.terms {
			pairs = append(pairs, index.Pair{TermID: p.terms.ID(term), DocID: docID})
		}
		p.logger.Debug("document parsed",
			"path", doc.path,
			"doc_id", docID,
			"tokens", len(doc.terms),
		)
	}
	return pairs, nil
}

func (p *Parser) readDocument(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(content) {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, "%s is not valid UTF-8", path)
	}
	return slices.Collect(p.normalize(string(content))), nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing block %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	// ReadDir already sorts by name; keep the order explicit.
	slices.Sort(names)
	return names, nil
}

// Blocks lists the block directories directly under collectionRoot in name
// order.
func Blocks(collectionRoot string) ([]string, error) {
	entries, err := os.ReadDir(collectionRoot)
	if err != nil {
		return nil, fmt.Errorf("listing collection %s: %w", collectionRoot, err)
	}
	var blocks []string
	for _, entry := range entries {
		if entry.IsDir() {
			blocks = append(blocks, entry.Name())
		}
	}
	slices.Sort(blocks)
	return blocks, nil
}
