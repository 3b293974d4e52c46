package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

// DocumentClassifier is the inbound contract for single-file classification.
type DocumentClassifier interface {
	ClassifyDocument(ctx context.Context, req domain.RequestContext, file domain.MemberFile, modelName string) (*domain.DocumentResult, error)
}

// ArchiveClassifier is the inbound contract for synchronous archive runs.
type ArchiveClassifier interface {
	ClassifyArchive(ctx context.Context, req domain.RequestContext, sourceFilename string, archive []byte, modelName string) (*domain.ArchiveResult, error)
}

// ArchiveJobService queues archive runs for the worker and exposes their state.
type ArchiveJobService interface {
	EnqueueArchive(ctx context.Context, req domain.RequestContext, sourceFilename string, body io.Reader, modelName string) (*domain.ArchiveJob, error)
	GetJob(ctx context.Context, jobID string) (*domain.ArchiveJob, error)
	OpenResult(ctx context.Context, jobID string) (io.ReadCloser, error)
}

// ArchiveJobProcessor runs a queued archive job by id.
type ArchiveJobProcessor interface {
	ProcessJob(ctx context.Context, jobID string) error
}

// RatingService records operator feedback on a classification.
type RatingService interface {
	SubmitRating(ctx context.Context, req domain.RequestContext, classificationID string, score int, comment string) (*domain.Rating, error)
}

// AnalyticsService builds the filtered analytics view.
type AnalyticsService interface {
	View(ctx context.Context, req domain.RequestContext, filter domain.AnalyticsFilter) (*domain.AnalyticsView, error)
	Export(ctx context.Context, req domain.RequestContext, filter domain.AnalyticsFilter) ([]domain.AnalyticsRow, error)
}

// OperatorDirectory remembers the operators behind write requests.
type OperatorDirectory interface {
	RememberOperator(ctx context.Context, req domain.RequestContext) error
}

// ModelCatalog lists selectable models per scope and names the one used when
// the operator selects none.
type ModelCatalog interface {
	Models(scope domain.ModelScope) []domain.ModelInfo
	DefaultName(scope domain.ModelScope) string
}
