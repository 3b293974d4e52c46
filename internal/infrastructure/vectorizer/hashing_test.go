package vectorizer

import (
	"math"
	"testing"
)

func TestVectorizeDeterministic(t *testing.T) {
	h := New(Options{})
	v1 := h.Vectorize("Приказ о назначении на должность DOC_0001")
	v2 := h.Vectorize("Приказ о назначении на должность DOC_0001")
	if len(v1.Indices) != len(v2.Indices) || len(v1.Values) != len(v2.Values) {
		t.Fatalf("vector sizes mismatch: %d/%d vs %d/%d", len(v1.Indices), len(v1.Values), len(v2.Indices), len(v2.Values))
	}
	for i := range v1.Indices {
		if v1.Indices[i] != v2.Indices[i] || v1.Values[i] != v2.Values[i] {
			t.Fatalf("mismatch at %d", i)
		}
	}
}

func TestVectorizeSortedAndNormalized(t *testing.T) {
	v := New(Options{}).Vectorize("zulu alpha beta gamma alpha alpha")
	if v.Empty() {
		t.Fatalf("expected non-empty vector")
	}
	var norm float64
	for i := range v.Indices {
		if i > 0 && v.Indices[i-1] >= v.Indices[i] {
			t.Fatalf("indices not strictly ascending at %d", i)
		}
		norm += float64(v.Values[i]) * float64(v.Values[i])
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Fatalf("expected unit norm, got %f", norm)
	}
}

func TestVectorizeNoiseInputIsEmpty(t *testing.T) {
	v := New(Options{}).Vectorize("___---!!! a б")
	if !v.Empty() {
		t.Fatalf("expected empty vector, got %+v", v)
	}
}

func TestVectorizeMaxTermsKeepsMostFrequent(t *testing.T) {
	h := New(Options{MaxTerms: 1})
	v := h.Vectorize("письмо письмо письмо ответ")
	if len(v.Indices) != 1 {
		t.Fatalf("expected 1 term, got %d", len(v.Indices))
	}
	if v.Indices[0] != h.Index("письмо") {
		t.Fatalf("expected most frequent term to survive")
	}
}

func TestTokenizeUnicode(t *testing.T) {
	tokens := Tokenize("Привет DOC_0001 версия-2")
	want := []string{"привет", "doc", "0001", "версия"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, tokens)
		}
	}
}
