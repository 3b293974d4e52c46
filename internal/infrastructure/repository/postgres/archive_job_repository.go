package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type ArchiveJobRepository struct {
	db *sql.DB
}

func NewArchiveJobRepository(db *sql.DB) *ArchiveJobRepository {
	return &ArchiveJobRepository{db: db}
}

func (r *ArchiveJobRepository) CreateArchiveJob(ctx context.Context, job *domain.ArchiveJob) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO archive_jobs (
	id, user_id, source_filename, model_name, file_count, status, upload_key, output_key, error_message, locale, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		job.ID, job.UserID, job.SourceFilename, job.ModelName, job.FileCount, string(job.Status),
		job.UploadKey, job.OutputKey, job.Error, string(job.Locale), job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert archive job: %w", err)
	}
	return job.ID, nil
}

func (r *ArchiveJobRepository) GetArchiveJob(ctx context.Context, id string) (*domain.ArchiveJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, source_filename, model_name, file_count, status, upload_key, output_key, error_message, locale, created_at, updated_at
FROM archive_jobs
WHERE id = $1
`, id)

	var job domain.ArchiveJob
	var status, locale string
	err := row.Scan(
		&job.ID, &job.UserID, &job.SourceFilename, &job.ModelName, &job.FileCount, &status,
		&job.UploadKey, &job.OutputKey, &job.Error, &locale, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get archive job", fmt.Errorf("archive job not found: %s", id))
		}
		return nil, fmt.Errorf("scan archive job: %w", err)
	}
	job.Status = domain.ArchiveJobStatus(status)
	job.Locale = domain.Locale(locale)
	return &job, nil
}

func (r *ArchiveJobRepository) UpdateArchiveJobFileCount(ctx context.Context, id string, count int) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE archive_jobs
SET file_count = $2, updated_at = $3
WHERE id = $1
`, id, count, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update archive file count: %w", err)
	}
	return expectOneRow(result, "update archive file count", id)
}

// UpdateArchiveJobStatus sets the status and error text. An empty outputKey
// keeps the stored one.
func (r *ArchiveJobRepository) UpdateArchiveJobStatus(ctx context.Context, id string, status domain.ArchiveJobStatus, outputKey, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE archive_jobs
SET status = $2, output_key = COALESCE(NULLIF($3, ''), output_key), error_message = $4, updated_at = $5
WHERE id = $1
`, id, string(status), outputKey, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update archive job status: %w", err)
	}
	return expectOneRow(result, "update archive job status", id)
}

func expectOneRow(result sql.Result, operation, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, operation, fmt.Errorf("archive job not found: %s", id))
	}
	return nil
}
