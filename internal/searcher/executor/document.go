package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	apperrors "github.com/Adithya-Monish-Kumar-K/bsbi-search/pkg/errors"
)

const previewLimit = 30

// Document is a collection file in "title<TAB>text" form.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Body    string `json:"body,omitempty"`
	Preview string `json:"preview"`
}

// ReadDocument loads the document at path. The ID is "<block>-<file stem>".
// A file without a tab is all body and has no title.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading document: %w", err)
	}
	if !utf8.Valid(data) {
		return Document{}, apperrors.Newf(apperrors.ErrInvalidInput, "%s is not valid UTF-8", path)
	}
	title, body, found := strings.Cut(string(data), "\t")
	if !found {
		title, body = "", title
	}
	return Document{
		ID:      DocumentID(path),
		Title:   strings.TrimSpace(title),
		Body:    body,
		Preview: preview(body),
	}, nil
}

// DocumentID names a document by its block directory and file stem.
func DocumentID(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Base(filepath.Dir(path)) + "-" + stem
}

// preview keeps the first half of body, at most previewLimit runes.
func preview(body string) string {
	runes := []rune(body)
	n := min(len(runes)/2, previewLimit)
	return string(runes[:n]) + "..."
}
