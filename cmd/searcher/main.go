package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/kvdb"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/redis"
)

type hit struct {
	executor.Result
	ID      string `json:"id,omitempty"`
	Title   string `json:"title,omitempty"`
	Preview string `json:"preview,omitempty"`
}

type response struct {
	Query   string `json:"query"`
	Method  string `json:"method"`
	Cached  bool   `json:"cached"`
	Results []hit  `json:"results"`
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	indexDir := flag.String("index", "", "index directory (overrides indexer.outputDir)")
	method := flag.String("method", executor.MethodTFIDF, "ranking method, tfidf or bm25")
	k := flag.Int("k", 0, "number of results (0 uses search.defaultLimit)")
	k1 := flag.Float64("k1", -1, "BM25 k1 (negative uses search.bm25K1)")
	b := flag.Float64("b", -1, "BM25 b (negative uses search.bm25B)")
	show := flag.Bool("show", false, "include document titles and previews")
	related := flag.String("related", "", "rank documents related to this document path instead of a query")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexDir != "" {
		cfg.Indexer.OutputDir = *indexDir
	}
	if *k <= 0 {
		*k = cfg.Search.DefaultLimit
	}
	if cfg.Search.MaxResults > 0 && *k > cfg.Search.MaxResults {
		*k = cfg.Search.MaxResults
	}
	if *k1 < 0 {
		*k1 = cfg.Search.BM25K1
	}
	if *b < 0 {
		*b = cfg.Search.BM25B
	}
	query := strings.Join(flag.Args(), " ")
	if query == "" && *related == "" {
		fmt.Fprintln(os.Stderr, "usage: searcher [flags] <query terms...>")
		os.Exit(2)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	backend, err := kvdb.BackendFromName(cfg.Indexer.DictionaryBackend)
	if err != nil {
		slog.Error("invalid dictionary backend", "error", err)
		os.Exit(1)
	}
	terms, err := idmap.LoadFile(backend, filepath.Join(cfg.Indexer.OutputDir, indexer.TermsDictFile))
	if err != nil {
		slog.Error("failed to load term dictionary", "error", err)
		os.Exit(1)
	}
	docs, err := idmap.LoadFile(backend, filepath.Join(cfg.Indexer.OutputDir, indexer.DocsDictFile))
	if err != nil {
		slog.Error("failed to load document dictionary", "error", err)
		os.Exit(1)
	}
	reader, err := segment.Open(cfg.Indexer.OutputDir, cfg.Indexer.IndexName)
	if err != nil {
		slog.Error("failed to open index", "error", err)
		os.Exit(1)
	}
	defer reader.Close()
	slog.Debug("index loaded",
		"dir", cfg.Indexer.OutputDir,
		"terms", terms.Len(),
		"documents", reader.DocCount(),
		"codec", reader.Codec().Name(),
	)
	exec := executor.New(reader, terms, docs, tokenizer.Normalize)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, cache.WithIndexName(cfg.Indexer.IndexName))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resp := response{Query: query, Method: *method}
	var results []executor.Result
	switch {
	case *related != "":
		resp.Query, resp.Method = *related, "related"
		results, err = exec.Related(ctx, *related, *k)
	case *method == executor.MethodTFIDF:
		results, resp.Cached, err = queryCache.GetOrCompute(ctx, *method, query, *k, nil, func() ([]executor.Result, error) {
			return exec.RetrieveTfIdf(ctx, query, *k)
		})
	case *method == executor.MethodBM25:
		params := map[string]float64{"k1": *k1, "b": *b}
		results, resp.Cached, err = queryCache.GetOrCompute(ctx, *method, query, *k, params, func() ([]executor.Result, error) {
			return exec.RetrieveBM25(ctx, query, *k, *k1, *b)
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown method %q: want tfidf or bm25\n", *method)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}

	resp.Results = make([]hit, 0, len(results))
	for _, r := range results {
		h := hit{Result: r}
		if *show {
			doc, err := executor.ReadDocument(r.Path)
			if err != nil {
				slog.Warn("document unreadable", "path", r.Path, "error", err)
			} else {
				h.ID, h.Title, h.Preview = doc.ID, doc.Title, doc.Preview
			}
		}
		resp.Results = append(resp.Results, h)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		slog.Error("failed to write results", "error", err)
		os.Exit(1)
	}
}
