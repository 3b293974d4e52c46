// Package centroid implements the clustering model: a document is assigned
// to the nearest centroid by cosine similarity and labeled with the cluster
// id. It produces no confidence.
package centroid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type Indexer interface {
	Index(token string) uint32
}

type artifact struct {
	Centroids []map[string]float64 `yaml:"centroids"`
}

type Model struct {
	centroids []map[uint32]float64
}

func Load(r io.Reader, indexer Indexer) (*Model, error) {
	var a artifact
	if err := yaml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode centroid model: %w", err)
	}
	if len(a.Centroids) == 0 {
		return nil, errors.New("centroid model has no centroids")
	}

	m := &Model{centroids: make([]map[uint32]float64, len(a.Centroids))}
	for i, raw := range a.Centroids {
		c := make(map[uint32]float64, len(raw))
		var norm float64
		for token, value := range raw {
			c[indexer.Index(token)] += value
		}
		for _, v := range c {
			norm += v * v
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for idx := range c {
				c[idx] /= norm
			}
		}
		m.centroids[i] = c
	}
	return m, nil
}

func (m *Model) Predict(_ context.Context, features domain.Features) (domain.Prediction, error) {
	if features.Vector.Empty() {
		return domain.Prediction{}, domain.WrapError(domain.ErrInference, "centroid predict", errors.New("empty feature vector"))
	}
	best, bestScore := 0, math.Inf(-1)
	for i, c := range m.centroids {
		var score float64
		for j, idx := range features.Vector.Indices {
			score += float64(features.Vector.Values[j]) * c[idx]
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return domain.Prediction{Label: strconv.Itoa(best)}, nil
}
