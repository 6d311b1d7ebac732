// Package tokenizer turns raw document or query text into normalised index
// terms. It lower-cases input, splits on non-alphanumeric boundaries, removes
// English stop-words and applies the Snowball English stemmer.
package tokenizer

import (
	"iter"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

// Func produces the lazy, finite term sequence for one text. Indexing and
// retrieval must use the same Func.
type Func func(text string) iter.Seq[string]

// Normalize is the default Func.
func Normalize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		words := strings.FieldsFuncSeq(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for word := range words {
			if utf8.RuneCountInString(word) < 2 || english.IsStopWord(word) {
				continue
			}
			stemmed := english.Stem(word, false)
			if stemmed == "" || english.IsStopWord(stemmed) {
				continue
			}
			if !yield(stemmed) {
				return
			}
		}
	}
}

// Terms collects the output of Normalize.
func Terms(text string) []string {
	return slices.Collect(Normalize(text))
}
