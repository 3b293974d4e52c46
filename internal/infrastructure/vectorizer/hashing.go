package vectorizer

import (
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const (
	defaultDimension = 1 << 18
	defaultMaxTerms  = 2048
	defaultBM25K     = 1.2
	minTokenRunes    = 2
)

type Options struct {
	Dimension uint32
	MaxTerms  int
	K         float64
}

// Hashing maps text into a fixed-size sparse space with the hashing trick
// and BM25-style term-frequency saturation. The output is L2-normalized.
type Hashing struct {
	dimension uint32
	maxTerms  int
	k         float64
}

func New(opts Options) *Hashing {
	if opts.Dimension == 0 {
		opts.Dimension = defaultDimension
	}
	if opts.MaxTerms <= 0 {
		opts.MaxTerms = defaultMaxTerms
	}
	if opts.K <= 0 {
		opts.K = defaultBM25K
	}
	return &Hashing{dimension: opts.Dimension, maxTerms: opts.MaxTerms, k: opts.K}
}

func (h *Hashing) Vectorize(text string) domain.FeatureVector {
	termFreq := make(map[uint32]float64, 128)
	for _, token := range Tokenize(text) {
		termFreq[h.Index(token)]++
	}
	return h.termFreqToSparse(termFreq)
}

// Index returns the feature index of an already tokenized term.
func (h *Hashing) Index(token string) uint32 {
	f := fnv.New32a()
	_, _ = f.Write([]byte(token))
	return f.Sum32() % h.dimension
}

func (h *Hashing) termFreqToSparse(tf map[uint32]float64) domain.FeatureVector {
	if len(tf) == 0 {
		return domain.FeatureVector{}
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	if len(indices) > h.maxTerms {
		// Keep the most frequent terms, ties broken by index for determinism.
		sort.Slice(indices, func(i, j int) bool {
			if tf[indices[i]] != tf[indices[j]] {
				return tf[indices[i]] > tf[indices[j]]
			}
			return indices[i] < indices[j]
		})
		indices = indices[:h.maxTerms]
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, 0, len(indices))
	var norm float64
	for _, idx := range indices {
		tfValue := tf[idx]
		weight := (tfValue * (h.k + 1.0)) / (tfValue + h.k)
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			weight = 0
		}
		norm += weight * weight
		values = append(values, float32(weight))
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range values {
			values[i] *= inv
		}
	}
	return domain.FeatureVector{Indices: indices, Values: values}
}

// Tokenize lower-cases text and splits it into letter/digit runs. Single
// rune tokens are dropped.
func Tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 64)
	var b strings.Builder
	runes := 0
	flush := func() {
		if runes >= minTokenRunes {
			out = append(out, b.String())
		}
		b.Reset()
		runes = 0
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			runes++
			continue
		}
		flush()
	}
	flush()
	return out
}
