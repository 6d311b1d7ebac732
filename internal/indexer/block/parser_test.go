package block

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/idmap"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/bsbi-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseAssignsIDsInFileOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "0", "b.txt"), "dog dog fish")
	writeFile(t, filepath.Join(root, "0", "a.txt"), "cat dog")
	if err := os.MkdirAll(filepath.Join(root, "0", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	terms, docs := idmap.New(), idmap.New()
	p := NewParser(terms, docs, tokenizer.Normalize, 4)
	pairs, err := p.Parse(context.Background(), root, "0")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// a.txt sorts first, so it is doc 0 and its terms come first.
	want := []index.Pair{
		{TermID: 0, DocID: 0}, // cat
		{TermID: 1, DocID: 0}, // dog
		{TermID: 1, DocID: 1}, // dog
		{TermID: 1, DocID: 1}, // dog
		{TermID: 2, DocID: 1}, // fish
	}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	if key, _ := docs.Key(0); key != filepath.Join(root, "0", "a.txt") {
		t.Fatalf("doc 0 = %q", key)
	}
	if docs.Len() != 2 {
		t.Fatalf("nested directory was treated as a document: %d docs", docs.Len())
	}
	if key, _ := terms.Key(2); key != "fish" {
		t.Fatalf("term 2 = %q", key)
	}
}

func TestParseSharesMapsAcrossBlocks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "0", "a.txt"), "cat")
	writeFile(t, filepath.Join(root, "1", "a.txt"), "cat fish")

	terms, docs := idmap.New(), idmap.New()
	p := NewParser(terms, docs, nil, 2)
	if _, err := p.Parse(context.Background(), root, "0"); err != nil {
		t.Fatal(err)
	}
	pairs, err := p.Parse(context.Background(), root, "1")
	if err != nil {
		t.Fatal(err)
	}
	want := []index.Pair{{TermID: 0, DocID: 1}, {TermID: 1, DocID: 1}}
	if !reflect.DeepEqual(pairs, want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
}

func TestParseEmptyDocumentGetsID(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "0", "empty.txt"), "the and of")

	docs := idmap.New()
	p := NewParser(idmap.New(), docs, tokenizer.Normalize, 1)
	pairs, err := p.Parse(context.Background(), root, "0")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 0 {
		t.Fatalf("expected no pairs, got %v", pairs)
	}
	if docs.Len() != 1 {
		t.Fatalf("empty document should still be registered, docs = %d", docs.Len())
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "0", "a.txt"), "fine")
	writeFile(t, filepath.Join(root, "0", "b.txt"), "bad \xff\xfe bytes")

	p := NewParser(idmap.New(), idmap.New(), tokenizer.Normalize, 2)
	if _, err := p.Parse(context.Background(), root, "0"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestParseMissingBlock(t *testing.T) {
	p := NewParser(idmap.New(), idmap.New(), tokenizer.Normalize, 1)
	if _, err := p.Parse(context.Background(), t.TempDir(), "missing"); err == nil {
		t.Fatal("expected error for missing block directory")
	}
}

func TestParseCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "0", "a.txt"), "cat")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewParser(idmap.New(), idmap.New(), tokenizer.Normalize, 1)
	if _, err := p.Parse(ctx, root, "0"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBlocksSorted(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"2", "0", "10", "1"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeFile(t, filepath.Join(root, "README"), "not a block")

	blocks, err := Blocks(root)
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"0", "1", "10", "2"}; !reflect.DeepEqual(blocks, want) {
		t.Fatalf("Blocks = %v, want %v", blocks, want)
	}
}
