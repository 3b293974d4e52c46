// Package linear implements a multinomial logistic regression model over
// hashed term features. The model is trained elsewhere and loaded from a
// YAML artifact whose weights are keyed by token.
package linear

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

// Indexer maps a token to its feature index. It must be the same hashing
// used by the vectorizer feeding Predict.
type Indexer interface {
	Index(token string) uint32
}

type artifact struct {
	Classes    []string                      `yaml:"classes"`
	Intercepts []float64                     `yaml:"intercepts"`
	Weights    map[string]map[string]float64 `yaml:"weights"`
}

type Model struct {
	classes    []string
	intercepts []float64
	weights    []map[uint32]float64
}

func Load(r io.Reader, indexer Indexer) (*Model, error) {
	var a artifact
	if err := yaml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode linear model: %w", err)
	}
	if len(a.Classes) < 2 {
		return nil, errors.New("linear model needs at least two classes")
	}
	if len(a.Intercepts) == 0 {
		a.Intercepts = make([]float64, len(a.Classes))
	}
	if len(a.Intercepts) != len(a.Classes) {
		return nil, fmt.Errorf("linear model intercepts/classes mismatch: %d/%d", len(a.Intercepts), len(a.Classes))
	}

	m := &Model{
		classes:    a.Classes,
		intercepts: a.Intercepts,
		weights:    make([]map[uint32]float64, len(a.Classes)),
	}
	for i, class := range a.Classes {
		w := make(map[uint32]float64, len(a.Weights[class]))
		for token, value := range a.Weights[class] {
			w[indexer.Index(token)] += value
		}
		m.weights[i] = w
	}
	return m, nil
}

func (m *Model) Predict(_ context.Context, features domain.Features) (domain.Prediction, error) {
	scores := make([]float64, len(m.classes))
	for c := range m.classes {
		score := m.intercepts[c]
		for i, idx := range features.Vector.Indices {
			score += float64(features.Vector.Values[i]) * m.weights[c][idx]
		}
		scores[c] = score
	}

	probs := softmax(scores)
	best := 0
	for c := 1; c < len(probs); c++ {
		if probs[c] > probs[best] {
			best = c
		}
	}
	confidence := probs[best]
	if math.IsNaN(confidence) {
		return domain.Prediction{}, domain.WrapError(domain.ErrInference, "linear predict", errors.New("non-finite scores"))
	}
	return domain.Prediction{Label: m.classes[best], Confidence: &confidence}, nil
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
