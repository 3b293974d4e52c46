package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

// DefaultMinTextLength is the shortest trimmed text, in characters, that is
// worth classifying.
const DefaultMinTextLength = 10

type noopObserver struct{}

func (noopObserver) ObserveClassification(string, domain.Category) {}
func (noopObserver) ObserveArchiveMember(domain.MemberStatus)      {}

func observerOrNoop(o ports.ClassificationObserver) ports.ClassificationObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}

// labelled is one model prediction mapped onto the category set.
type labelled struct {
	label      string
	category   domain.Category
	confidence *float64
}

func predict(ctx context.Context, classifier ports.Classifier, vectorizer ports.Vectorizer, text string) (labelled, error) {
	prediction, err := classifier.Predict(ctx, domain.Features{Text: text, Vector: vectorizer.Vectorize(text)})
	if err != nil {
		return labelled{}, fmt.Errorf("classify text: %w", err)
	}
	return labelled{
		label:      prediction.Label,
		category:   domain.CategoryFromLabel(prediction.Label),
		confidence: normalizeConfidence(prediction.Confidence),
	}, nil
}

// normalizeConfidence clamps into [0,1]. NaN is treated as absent.
func normalizeConfidence(c *float64) *float64 {
	if c == nil || math.IsNaN(*c) {
		return nil
	}
	v := math.Min(math.Max(*c, 0), 1)
	return &v
}

func checkTextLength(text string, minLength int) error {
	if n := utf8.RuneCountInString(strings.TrimSpace(text)); n < minLength {
		return fmt.Errorf("extracted text too short: %d < %d characters", n, minLength)
	}
	return nil
}

func requireUser(req domain.RequestContext, operation string) error {
	if strings.TrimSpace(req.UserID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, operation, errors.New("user id is required"))
	}
	return nil
}
