package linear

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/vectorizer"
)

const testArtifact = `
classes: [Order, Ordinance, Letters, Miscellaneous]
intercepts: [0, 0, 0, 0.1]
weights:
  Order:
    приказываю: 4.0
    приказ: 3.0
  Ordinance:
    постановляет: 4.0
  Letters:
    уважаемый: 3.5
    письмо: 2.0
`

func TestPredictPicksHighestScoringClass(t *testing.T) {
	vec := vectorizer.New(vectorizer.Options{})
	m, err := Load(strings.NewReader(testArtifact), vec)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	text := "Уважаемый Иван Петрович, направляем письмо"
	pred, err := m.Predict(context.Background(), domain.Features{Text: text, Vector: vec.Vectorize(text)})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Label != "Letters" {
		t.Fatalf("expected Letters, got %s", pred.Label)
	}
	if pred.Confidence == nil || *pred.Confidence <= 0.25 || *pred.Confidence > 1 {
		t.Fatalf("unexpected confidence %v", pred.Confidence)
	}
}

func TestPredictEmptyVectorFallsBackToIntercepts(t *testing.T) {
	vec := vectorizer.New(vectorizer.Options{})
	m, err := Load(strings.NewReader(testArtifact), vec)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	pred, err := m.Predict(context.Background(), domain.Features{})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Label != "Miscellaneous" {
		t.Fatalf("expected Miscellaneous, got %s", pred.Label)
	}
}

func TestLoadRejectsMismatchedIntercepts(t *testing.T) {
	_, err := Load(strings.NewReader("classes: [a, b]\nintercepts: [1]\n"), vectorizer.New(vectorizer.Options{}))
	if err == nil {
		t.Fatalf("expected error")
	}
}
