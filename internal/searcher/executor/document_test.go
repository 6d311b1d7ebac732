package executor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

func TestReadDocument(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "3")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name, content string
		want          Document
	}{
		{
			name:    "17.txt",
			content: "Heart disease\tThe study followed patients for ten years.",
			want: Document{
				ID:      "3-17",
				Title:   "Heart disease",
				Body:    "The study followed patients for ten years.",
				Preview: "The study followed pa...",
			},
		},
		{
			name:    "18.txt",
			content: "Title\tfirst\tsecond",
			want:    Document{ID: "3-18", Title: "Title", Body: "first\tsecond", Preview: "first\t..."},
		},
		{
			name:    "19.txt",
			content: "no title here",
			want:    Document{ID: "3-19", Body: "no title here", Preview: "no tit..."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			got, err := ReadDocument(path)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadDocumentPreviewCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.txt")
	body := strings.Repeat("é", 200)
	if err := os.WriteFile(path, []byte("T\t"+body), 0o644); err != nil {
		t.Fatal(err)
	}
	doc, err := ReadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Preview != strings.Repeat("é", 30)+"..." {
		t.Fatalf("preview = %q", doc.Preview)
	}
}

func TestReadDocumentErrors(t *testing.T) {
	if _, err := ReadDocument(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("t\t\xff"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadDocument(path); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
