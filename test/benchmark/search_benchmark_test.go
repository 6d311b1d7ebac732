package benchmark

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
)

func buildExecutor(b *testing.B) *executor.Executor {
	b.Helper()
	root := writeCollection(b, 4, 500, 60)
	out := b.TempDir()
	e, err := indexer.NewEngine(config.IndexerConfig{Workers: 4})
	if err != nil {
		b.Fatal(err)
	}
	if _, err := e.Run(context.Background(), root, out); err != nil {
		b.Fatal(err)
	}
	terms, err := idmap.LoadFile(e.Backend(), filepath.Join(out, indexer.TermsDictFile))
	if err != nil {
		b.Fatal(err)
	}
	docs, err := idmap.LoadFile(e.Backend(), filepath.Join(out, indexer.DocsDictFile))
	if err != nil {
		b.Fatal(err)
	}
	r, err := segment.Open(out, indexer.DefaultIndexName)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { r.Close() })
	return executor.New(r, terms, docs, tokenizer.Normalize)
}

var benchQueries = []struct{ name, query string }{
	{"single", "merge"},
	{"two_terms", "posting compress"},
	{"long", "search index block merge posting term document query rank score"},
}

func BenchmarkRetrieveTfIdf(b *testing.B) {
	exec := buildExecutor(b)
	for _, q := range benchQueries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.RetrieveTfIdf(context.Background(), q.query, 10); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRetrieveBM25(b *testing.B) {
	exec := buildExecutor(b)
	for _, q := range benchQueries {
		b.Run(q.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := exec.RetrieveBM25(context.Background(), q.query, 10, 1.2, 0.75); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRetrieveParallel(b *testing.B) {
	exec := buildExecutor(b)
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := exec.RetrieveBM25(context.Background(), "posting compress", 10, 1.2, 0.75); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
