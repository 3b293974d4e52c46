package centroid

import (
	"context"
	"strings"
	"testing"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/vectorizer"
)

const testArtifact = `
centroids:
  - {приказываю: 1.0, приказ: 0.8}
  - {постановляет: 1.0, администрация: 0.5}
  - {уважаемый: 1.0, письмо: 0.7}
  - {информация: 1.0}
`

func TestPredictReturnsClusterIDWithoutConfidence(t *testing.T) {
	vec := vectorizer.New(vectorizer.Options{})
	m, err := Load(strings.NewReader(testArtifact), vec)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	text := "Администрация города постановляет"
	pred, err := m.Predict(context.Background(), domain.Features{Text: text, Vector: vec.Vectorize(text)})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if pred.Label != "1" {
		t.Fatalf("expected cluster 1, got %s", pred.Label)
	}
	if pred.Confidence != nil {
		t.Fatalf("clustering must not report confidence")
	}
	if domain.CategoryFromLabel(pred.Label) != domain.CategoryOrdinance {
		t.Fatalf("cluster 1 must map to Ordinance")
	}
}

func TestPredictEmptyVectorIsInferenceError(t *testing.T) {
	m, err := Load(strings.NewReader(testArtifact), vectorizer.New(vectorizer.Options{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	_, err = m.Predict(context.Background(), domain.Features{})
	if !domain.IsKind(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}
