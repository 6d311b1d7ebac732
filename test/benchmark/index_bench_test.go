// Package benchmark measures codec throughput, block inversion, full index
// builds and query latency over generated collections.
package benchmark

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/config"
)

var vocabulary = strings.Fields(`search index block merge posting term document
	query rank score frequency length corpus token stem compress encode decode
	heap cursor segment dictionary collection retrieval relevance weight`)

// writeCollection creates blocks x docsPerBlock documents of wordsPerDoc
// words drawn from vocabulary with a fixed seed.
func writeCollection(b *testing.B, blocks, docsPerBlock, wordsPerDoc int) string {
	b.Helper()
	root := b.TempDir()
	rng := rand.New(rand.NewPCG(1, 2))
	for blk := 0; blk < blocks; blk++ {
		dir := filepath.Join(root, fmt.Sprintf("%d", blk))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			b.Fatal(err)
		}
		for d := 0; d < docsPerBlock; d++ {
			words := make([]string, wordsPerDoc)
			for i := range words {
				words[i] = vocabulary[rng.IntN(len(vocabulary))]
			}
			text := fmt.Sprintf("doc %d\t%s", d, strings.Join(words, " "))
			if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%d.txt", d)), []byte(text), 0o644); err != nil {
				b.Fatal(err)
			}
		}
	}
	return root
}

func postingsList(n int) []uint32 {
	rng := rand.New(rand.NewPCG(3, 4))
	ids := make([]uint32, n)
	var next uint32
	for i := range ids {
		next += uint32(rng.IntN(64)) + 1
		ids[i] = next
	}
	return ids
}

// BenchmarkEncodePostings reports the encoded size per posting next to the
// encode throughput of each codec.
func BenchmarkEncodePostings(b *testing.B) {
	ids := postingsList(100000)
	for _, c := range []codec.Codec{codec.Fixed{}, codec.VByte{}} {
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			var size int
			for i := 0; i < b.N; i++ {
				size = len(c.EncodePostings(ids))
			}
			b.ReportMetric(float64(size)/float64(len(ids)), "bytes/posting")
		})
	}
}

func BenchmarkDecodePostings(b *testing.B) {
	ids := postingsList(100000)
	for _, c := range []codec.Codec{codec.Fixed{}, codec.VByte{}} {
		data := c.EncodePostings(ids)
		b.Run(c.Name(), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(data)))
			for i := 0; i < b.N; i++ {
				if _, err := c.DecodePostings(data); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkInvert measures in-memory inversion of one block's pairs.
func BenchmarkInvert(b *testing.B) {
	rng := rand.New(rand.NewPCG(5, 6))
	pairs := make([]index.Pair, 200000)
	for i := range pairs {
		pairs[i] = index.Pair{TermID: uint32(rng.IntN(5000)), DocID: uint32(i / 100)}
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		inv := index.NewInverter()
		inv.Add(pairs...)
		_ = inv.Snapshot()
	}
}

// BenchmarkEngineRun builds a full index from a small generated collection.
func BenchmarkEngineRun(b *testing.B) {
	root := writeCollection(b, 4, 250, 80)
	for _, name := range []string{"fixed", "vbyte"} {
		b.Run(name, func(b *testing.B) {
			e, err := indexer.NewEngine(config.IndexerConfig{Codec: name, Workers: 4})
			if err != nil {
				b.Fatal(err)
			}
			b.ReportAllocs()
			b.ResetTimer()
			var stats *indexer.RunStats
			for i := 0; i < b.N; i++ {
				stats, err = e.Run(context.Background(), root, b.TempDir())
				if err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(stats.PostingsBytes), "postings-bytes")
		})
	}
}
