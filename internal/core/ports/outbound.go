package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

// ClassificationStore persists classification events.
type ClassificationStore interface {
	CreateClassification(ctx context.Context, record *domain.ClassificationRecord) (string, error)
	GetClassification(ctx context.Context, id string) (*domain.ClassificationRecord, error)
	ListAllClassifications(ctx context.Context) ([]domain.AnalyticsRow, error)
}

// ArchiveJobStore persists archive job state.
type ArchiveJobStore interface {
	CreateArchiveJob(ctx context.Context, job *domain.ArchiveJob) (string, error)
	GetArchiveJob(ctx context.Context, id string) (*domain.ArchiveJob, error)
	UpdateArchiveJobFileCount(ctx context.Context, id string, count int) error
	UpdateArchiveJobStatus(ctx context.Context, id string, status domain.ArchiveJobStatus, outputKey, errMessage string) error
}

// UserStore keeps the last known login of each operator.
type UserStore interface {
	UpsertUser(ctx context.Context, user domain.User) error
}

// RatingStore persists ratings. CreateRating reports false when the user has
// already rated the classification.
type RatingStore interface {
	CreateRating(ctx context.Context, rating *domain.Rating) (bool, error)
}

// ObjectStorage stores uploaded and produced archives.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ArchiveQueue publishes/consumes queued archive job ids.
type ArchiveQueue interface {
	PublishArchiveQueued(ctx context.Context, jobID string) error
	SubscribeArchiveQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a document. Supports decides from the
// name and declared type alone, before the content is read.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.MemberFile) (string, error)
	Supports(file domain.MemberFile) bool
}

// Vectorizer turns text into model features.
type Vectorizer interface {
	Vectorize(text string) domain.FeatureVector
}

// Classifier predicts a label from features.
type Classifier interface {
	Predict(ctx context.Context, features domain.Features) (domain.Prediction, error)
}

// ModelRegistry resolves a model selector to a loaded classifier. An empty
// name selects the default model of the scope.
type ModelRegistry interface {
	Resolve(name string, scope domain.ModelScope) (Classifier, domain.ModelInfo, error)
	Models(scope domain.ModelScope) []domain.ModelInfo
}

// ArchiveCodec unpacks and builds ZIP containers.
type ArchiveCodec interface {
	Unpack(archive []byte, dir string) ([]string, error)
	Pack(dir string, folders []string) ([]byte, error)
}

// ClassificationObserver receives classification events, usually for metrics.
type ClassificationObserver interface {
	ObserveClassification(model string, category domain.Category)
	ObserveArchiveMember(status domain.MemberStatus)
}
