package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

// ArchiveJobUseCase queues uploaded archives and runs them in the worker
// through the same pipeline as synchronous requests.
type ArchiveJobUseCase struct {
	pipeline      *ArchiveClassificationUseCase
	jobs          ports.ArchiveJobStore
	storage       ports.ObjectStorage
	queue         ports.ArchiveQueue
	defaultLocale domain.Locale
}

func NewArchiveJobUseCase(
	pipeline *ArchiveClassificationUseCase,
	jobs ports.ArchiveJobStore,
	storage ports.ObjectStorage,
	queue ports.ArchiveQueue,
	defaultLocale domain.Locale,
) *ArchiveJobUseCase {
	if defaultLocale == "" {
		defaultLocale = domain.LocaleRU
	}
	return &ArchiveJobUseCase{
		pipeline:      pipeline,
		jobs:          jobs,
		storage:       storage,
		queue:         queue,
		defaultLocale: defaultLocale,
	}
}

func uploadKey(jobID string) string { return "archives/" + jobID + "/upload.zip" }
func resultKey(jobID string) string { return "archives/" + jobID + "/classified.zip" }

func (uc *ArchiveJobUseCase) EnqueueArchive(
	ctx context.Context,
	req domain.RequestContext,
	sourceFilename string,
	body io.Reader,
	modelName string,
) (*domain.ArchiveJob, error) {
	if err := requireUser(req, "enqueue archive"); err != nil {
		return nil, err
	}
	_, info, err := uc.pipeline.models.Resolve(modelName, domain.ModelScopeArchive)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	key := uploadKey(id)
	if err := uc.storage.Save(ctx, key, body); err != nil {
		return nil, fmt.Errorf("save archive upload: %w", err)
	}

	now := time.Now().UTC()
	job := &domain.ArchiveJob{
		ID:             id,
		UserID:         req.UserID,
		SourceFilename: sourceFilename,
		ModelName:      info.Name,
		Status:         domain.ArchiveJobQueued,
		UploadKey:      key,
		Locale:         req.Locale,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := uc.jobs.CreateArchiveJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create archive job: %w", err)
	}

	if err := uc.queue.PublishArchiveQueued(ctx, job.ID); err != nil {
		publishErr := fmt.Errorf("publish archive job: %w", err)
		if failErr := uc.jobs.UpdateArchiveJobStatus(ctx, job.ID, domain.ArchiveJobFailed, "", publishErr.Error()); failErr != nil {
			return nil, fmt.Errorf("%w; mark failed status: %v", publishErr, failErr)
		}
		return nil, publishErr
	}
	return job, nil
}

func (uc *ArchiveJobUseCase) GetJob(ctx context.Context, jobID string) (*domain.ArchiveJob, error) {
	job, err := uc.jobs.GetArchiveJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("fetch archive job: %w", err)
	}
	return job, nil
}

// OpenResult streams the classified archive of a completed job.
func (uc *ArchiveJobUseCase) OpenResult(ctx context.Context, jobID string) (io.ReadCloser, error) {
	job, err := uc.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.ArchiveJobCompleted || job.OutputKey == "" {
		return nil, domain.WrapError(domain.ErrNotFound, "open archive result", fmt.Errorf("job %s has status %s", job.ID, job.Status))
	}
	rc, err := uc.storage.Open(ctx, job.OutputKey)
	if err != nil {
		return nil, fmt.Errorf("open archive result: %w", err)
	}
	return rc, nil
}

// ProcessJob runs a queued job. Jobs that are no longer queued are left
// alone so redelivered messages do not classify an archive twice.
func (uc *ArchiveJobUseCase) ProcessJob(ctx context.Context, jobID string) error {
	job, err := uc.jobs.GetArchiveJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("fetch archive job: %w", err)
	}
	if job.Status != domain.ArchiveJobQueued {
		return nil
	}
	if err := uc.jobs.UpdateArchiveJobStatus(ctx, job.ID, domain.ArchiveJobProcessing, "", ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	outputKey, runErr := uc.runQueued(ctx, job)
	status, message := terminalStatus(runErr)
	// A job timeout must still leave a terminal status behind.
	if err := uc.jobs.UpdateArchiveJobStatus(context.WithoutCancel(ctx), job.ID, status, outputKey, message); err != nil {
		if runErr != nil {
			return fmt.Errorf("%w; mark %s status: %v", runErr, status, err)
		}
		return fmt.Errorf("set status=%s: %w", status, err)
	}
	if errors.Is(runErr, domain.ErrNoEligibleMembers) {
		return nil
	}
	return runErr
}

func (uc *ArchiveJobUseCase) runQueued(ctx context.Context, job *domain.ArchiveJob) (string, error) {
	archive, err := uc.readUpload(ctx, job.UploadKey)
	if err != nil {
		return "", err
	}
	classifier, _, err := uc.pipeline.models.Resolve(job.ModelName, domain.ModelScopeArchive)
	if err != nil {
		return "", err
	}

	// Folder names follow the locale of the operator who queued the job.
	locale := job.Locale
	if locale == "" {
		locale = uc.defaultLocale
	}
	req := domain.RequestContext{UserID: job.UserID, Locale: locale}
	result, err := uc.pipeline.run(ctx, req, job, archive, classifier)
	if err != nil {
		return "", err
	}

	key := resultKey(job.ID)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(result.Archive)); err != nil {
		return "", fmt.Errorf("save classified archive: %w", err)
	}
	return key, nil
}

func (uc *ArchiveJobUseCase) readUpload(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open archive upload: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read archive upload: %w", err)
	}
	return data, nil
}
