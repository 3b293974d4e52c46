package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

const maxCommentRunes = 2000

type RatingUseCase struct {
	records ports.ClassificationStore
	ratings ports.RatingStore
	now     func() time.Time
}

func NewRatingUseCase(records ports.ClassificationStore, ratings ports.RatingStore) *RatingUseCase {
	return &RatingUseCase{
		records: records,
		ratings: ratings,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRating stores the first rating a user gives to a classification.
// Later attempts by the same user fail with ErrAlreadyRated.
func (uc *RatingUseCase) SubmitRating(
	ctx context.Context,
	req domain.RequestContext,
	classificationID string,
	score int,
	comment string,
) (*domain.Rating, error) {
	if err := requireUser(req, "submit rating"); err != nil {
		return nil, err
	}
	if score < domain.MinRatingScore || score > domain.MaxRatingScore {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"submit rating",
			fmt.Errorf("score %d outside %d..%d", score, domain.MinRatingScore, domain.MaxRatingScore),
		)
	}
	classificationID = strings.TrimSpace(classificationID)
	if classificationID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit rating", fmt.Errorf("classification id is required"))
	}

	if _, err := uc.records.GetClassification(ctx, classificationID); err != nil {
		return nil, fmt.Errorf("load classification: %w", err)
	}

	rating := &domain.Rating{
		ClassificationID: classificationID,
		UserID:           req.UserID,
		Score:            score,
		Comment:          truncateRunes(strings.TrimSpace(comment), maxCommentRunes),
		CreatedAt:        uc.now(),
	}
	created, err := uc.ratings.CreateRating(ctx, rating)
	if err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}
	if !created {
		return nil, domain.WrapError(
			domain.ErrAlreadyRated,
			"submit rating",
			fmt.Errorf("user %s already rated classification %s", req.UserID, classificationID),
		)
	}
	return rating, nil
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
