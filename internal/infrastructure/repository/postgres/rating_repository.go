package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// CreateRating inserts the rating unless the user already rated the
// classification, in which case it reports false and stores nothing.
func (r *RatingRepository) CreateRating(ctx context.Context, rating *domain.Rating) (bool, error) {
	id := rating.ID
	if id == "" {
		id = uuid.NewString()
	}
	result, err := r.db.ExecContext(ctx, `
INSERT INTO ratings (id, classification_id, user_id, score, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (classification_id, user_id) DO NOTHING
`, id, rating.ClassificationID, rating.UserID, rating.Score, rating.Comment, rating.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert rating rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}
	rating.ID = id
	return true, nil
}
