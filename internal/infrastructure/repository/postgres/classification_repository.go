package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type ClassificationRepository struct {
	db *sql.DB
}

func NewClassificationRepository(db *sql.DB) *ClassificationRepository {
	return &ClassificationRepository{db: db}
}

func (r *ClassificationRepository) CreateClassification(ctx context.Context, record *domain.ClassificationRecord) (string, error) {
	if !record.PredictedClass.Valid() {
		return "", domain.WrapError(domain.ErrInvalidInput, "insert classification", fmt.Errorf("unknown category %q", record.PredictedClass))
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO classifications (
	id, user_id, filename, model_name, predicted_class, confidence, archive_job_id, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		record.ID, record.UserID, record.Filename, record.ModelName, string(record.PredictedClass),
		nullFloat(record.Confidence), nullString(record.ArchiveJobID), record.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert classification: %w", err)
	}
	return record.ID, nil
}

func (r *ClassificationRepository) GetClassification(ctx context.Context, id string) (*domain.ClassificationRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, filename, model_name, predicted_class, confidence, archive_job_id, created_at
FROM classifications
WHERE id = $1
`, id)

	var (
		record     domain.ClassificationRecord
		class      string
		confidence sql.NullFloat64
		jobID      sql.NullString
	)
	err := row.Scan(&record.ID, &record.UserID, &record.Filename, &record.ModelName, &class, &confidence, &jobID, &record.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get classification", fmt.Errorf("classification not found: %s", id))
		}
		return nil, fmt.Errorf("scan classification: %w", err)
	}
	record.PredictedClass = domain.Category(class)
	if confidence.Valid {
		record.Confidence = &confidence.Float64
	}
	record.ArchiveJobID = jobID.String
	return &record, nil
}

// ListAllClassifications returns every record with the operator login and
// the earliest rating left for it.
func (r *ClassificationRepository) ListAllClassifications(ctx context.Context) ([]domain.AnalyticsRow, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT c.id, c.user_id, c.filename, c.model_name, c.predicted_class, c.confidence, c.archive_job_id, c.created_at,
	COALESCE(u.login, c.user_id), rt.score, COALESCE(rt.comment, '')
FROM classifications c
LEFT JOIN users u ON u.id = c.user_id
LEFT JOIN LATERAL (
	SELECT score, comment
	FROM ratings
	WHERE classification_id = c.id
	ORDER BY created_at ASC
	LIMIT 1
) rt ON true
ORDER BY c.created_at DESC, c.predicted_class ASC, c.id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	out := make([]domain.AnalyticsRow, 0)
	for rows.Next() {
		item, err := scanAnalyticsRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return out, nil
}

func scanAnalyticsRow(row rowScanner) (domain.AnalyticsRow, error) {
	var (
		item       domain.AnalyticsRow
		class      string
		confidence sql.NullFloat64
		jobID      sql.NullString
		score      sql.NullInt64
	)
	err := row.Scan(
		&item.ID, &item.UserID, &item.Filename, &item.ModelName, &class, &confidence, &jobID, &item.CreatedAt,
		&item.Login, &score, &item.Comment,
	)
	if err != nil {
		return domain.AnalyticsRow{}, fmt.Errorf("scan classification row: %w", err)
	}
	item.PredictedClass = domain.Category(class)
	if confidence.Valid {
		v := confidence.Float64
		item.Confidence = &v
	}
	item.ArchiveJobID = jobID.String
	if score.Valid {
		v := int(score.Int64)
		item.Rating = &v
	}
	return item, nil
}
