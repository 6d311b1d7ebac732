package tokenizer

import (
	"reflect"
	"testing"
)

func TestNormalizeLowercasesStemsAndDropsStopWords(t *testing.T) {
	got := Terms("The Cats were RUNNING, and the dog jumped!")
	want := []string{"cat", "run", "dog", "jump"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected terms.\nwant: %v\n got: %v", want, got)
	}
}

func TestNormalizeSplitsOnPunctuationAndDropsShortTokens(t *testing.T) {
	got := Terms("x-ray a b 42 c3po")
	want := []string{"ray", "42", "c3po"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected terms.\nwant: %v\n got: %v", want, got)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	for _, text := range []string{"", "   ", "the and of", "!!! ..."} {
		if got := Terms(text); len(got) != 0 {
			t.Fatalf("Terms(%q) = %v, want none", text, got)
		}
	}
}

func TestNormalizeIsLazy(t *testing.T) {
	var got []string
	for term := range Normalize("alpha beta gamma delta") {
		got = append(got, term)
		if len(got) == 2 {
			break
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected early stop after 2 terms, got %v", got)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	text := "dog dog fish"
	a, b := Terms(text), Terms(text)
	if !reflect.DeepEqual(a, b) || !reflect.DeepEqual(a, []string{"dog", "dog", "fish"}) {
		t.Fatalf("non-deterministic or unexpected output: %v vs %v", a, b)
	}
}

func TestNormalizeUsesSnowballStopWords(t *testing.T) {
	got := Terms("They don't know what we were doing")
	if !reflect.DeepEqual(got, []string{"know"}) {
		t.Fatalf("unexpected terms: %v", got)
	}
}
