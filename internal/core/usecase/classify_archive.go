package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

type ArchiveClassificationUseCase struct {
	jobs       ports.ArchiveJobStore
	records    ports.ClassificationStore
	codec      ports.ArchiveCodec
	extractor  ports.TextExtractor
	vectorizer ports.Vectorizer
	models     ports.ModelRegistry
	observer   ports.ClassificationObserver
	logger     *slog.Logger

	minTextLength int
	scratchRoot   string
	now           func() time.Time
}

type ArchiveOptions struct {
	MinTextLength int
	// ScratchRoot is the parent of per-run scratch directories. Empty means
	// the system temp dir.
	ScratchRoot string
	Observer    ports.ClassificationObserver
	Logger      *slog.Logger
}

func NewArchiveClassificationUseCase(
	jobs ports.ArchiveJobStore,
	records ports.ClassificationStore,
	codec ports.ArchiveCodec,
	extractor ports.TextExtractor,
	vectorizer ports.Vectorizer,
	models ports.ModelRegistry,
	options ArchiveOptions,
) *ArchiveClassificationUseCase {
	minTextLength := options.MinTextLength
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveClassificationUseCase{
		jobs:          jobs,
		records:       records,
		codec:         codec,
		extractor:     extractor,
		vectorizer:    vectorizer,
		models:        models,
		observer:      observerOrNoop(options.Observer),
		logger:        logger,
		minTextLength: minTextLength,
		scratchRoot:   options.ScratchRoot,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ClassifyArchive records a new archive job and runs it synchronously. When
// no member could be classified the result is returned together with
// ErrNoEligibleMembers and carries no archive.
func (uc *ArchiveClassificationUseCase) ClassifyArchive(
	ctx context.Context,
	req domain.RequestContext,
	sourceFilename string,
	archive []byte,
	modelName string,
) (*domain.ArchiveResult, error) {
	if err := requireUser(req, "classify archive"); err != nil {
		return nil, err
	}
	classifier, info, err := uc.models.Resolve(modelName, domain.ModelScopeArchive)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	job := &domain.ArchiveJob{
		UserID:         req.UserID,
		SourceFilename: sourceFilename,
		ModelName:      info.Name,
		Status:         domain.ArchiveJobProcessing,
		Locale:         req.Locale,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	id, err := uc.jobs.CreateArchiveJob(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("create archive job: %w", err)
	}
	job.ID = id

	result, runErr := uc.run(ctx, req, job, archive, classifier)
	if statusErr := uc.finish(ctx, job, result, runErr); statusErr != nil {
		uc.logger.Error("archive job status update failed", "job_id", job.ID, "error", statusErr)
	}
	return result, runErr
}

// finish stores the terminal job status, also after the caller went away.
// Produced archives of synchronous runs are streamed back to the caller, so
// no output key is recorded.
func (uc *ArchiveClassificationUseCase) finish(ctx context.Context, job *domain.ArchiveJob, result *domain.ArchiveResult, runErr error) error {
	status, message := terminalStatus(runErr)
	job.Status = status
	job.Error = message
	if result != nil {
		result.Job = *job
	}
	return uc.jobs.UpdateArchiveJobStatus(context.WithoutCancel(ctx), job.ID, status, "", message)
}

func terminalStatus(runErr error) (domain.ArchiveJobStatus, string) {
	switch {
	case runErr == nil:
		return domain.ArchiveJobCompleted, ""
	case domain.IsKind(runErr, domain.ErrNoEligibleMembers):
		return domain.ArchiveJobEmpty, ""
	default:
		return domain.ArchiveJobFailed, runErr.Error()
	}
}

// run is the pipeline body shared by synchronous and queued jobs. The job
// must already exist in the store.
func (uc *ArchiveClassificationUseCase) run(
	ctx context.Context,
	req domain.RequestContext,
	job *domain.ArchiveJob,
	archive []byte,
	classifier ports.Classifier,
) (*domain.ArchiveResult, error) {
	scratch, err := os.MkdirTemp(uc.scratchRoot, "archive-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	inputDir := filepath.Join(scratch, "input")
	outputDir := filepath.Join(scratch, "output")

	members, err := uc.codec.Unpack(archive, inputDir)
	if err != nil {
		return nil, fmt.Errorf("unpack archive: %w", err)
	}

	logger := uc.logger.With("job_id", job.ID)
	result := &domain.ArchiveResult{Outcomes: make([]domain.MemberOutcome, 0, len(members))}
	var memberErr error
	for _, member := range members {
		if ctx.Err() != nil {
			break
		}
		outcome, err := uc.processMember(ctx, req, job, classifier, inputDir, outputDir, member)
		if err != nil {
			if outcome.ClassificationID != "" {
				result.Processed++
			}
			memberErr = err
			break
		}
		switch outcome.Status {
		case domain.MemberProcessed:
			result.Processed++
		case domain.MemberSkipped:
			logger.Warn("archive member skipped", "member", member, "reason", outcome.Reason)
		case domain.MemberFailed:
			logger.Warn("archive member failed", "member", member, "reason", outcome.Reason)
		}
		uc.observer.ObserveArchiveMember(outcome.Status)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	// file_count must match the records already saved, however the run ended.
	if err := uc.jobs.UpdateArchiveJobFileCount(context.WithoutCancel(ctx), job.ID, result.Processed); err != nil {
		return nil, fmt.Errorf("update archive file count: %w", err)
	}
	job.FileCount = result.Processed
	result.Job = *job

	if memberErr != nil {
		return nil, memberErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("archive run stopped after %d of %d members: %w", len(result.Outcomes), len(members), err)
	}

	if result.Processed == 0 {
		return result, domain.WrapError(
			domain.ErrNoEligibleMembers,
			"classify archive",
			fmt.Errorf("%d members, none classified", len(members)),
		)
	}

	folders := make([]string, 0, len(domain.Categories))
	for _, category := range domain.Categories {
		folders = append(folders, category.Label(req.Locale))
	}
	packed, err := uc.codec.Pack(outputDir, folders)
	if err != nil {
		return nil, fmt.Errorf("pack classified archive: %w", err)
	}
	result.Archive = packed

	logger.Info("archive classified", "members", len(members), "processed", result.Processed)
	return result, nil
}

// processMember classifies a single unpacked file. Per-member problems are
// reported in the outcome; the returned error is reserved for scratch
// filesystem failures that make the whole run unusable.
func (uc *ArchiveClassificationUseCase) processMember(
	ctx context.Context,
	req domain.RequestContext,
	job *domain.ArchiveJob,
	classifier ports.Classifier,
	inputDir, outputDir, member string,
) (domain.MemberOutcome, error) {
	outcome := domain.MemberOutcome{Path: member}
	name := path.Base(member)
	file := domain.MemberFile{Name: name, DeclaredMIME: domain.MIMETypeByExtension(name)}

	if !uc.extractor.Supports(file) {
		outcome.Status = domain.MemberSkipped
		outcome.Reason = "unsupported file type"
		return outcome, nil
	}

	src := filepath.Join(inputDir, filepath.FromSlash(member))
	content, err := os.ReadFile(src)
	if err != nil {
		return outcome, fmt.Errorf("read unpacked member %s: %w", member, err)
	}
	file.Content = content

	text, err := uc.extractor.Extract(ctx, file)
	if err != nil {
		outcome.Status = domain.MemberFailed
		outcome.Reason = err.Error()
		return outcome, nil
	}
	if err := checkTextLength(text, uc.minTextLength); err != nil {
		outcome.Status = domain.MemberSkipped
		outcome.Reason = err.Error()
		return outcome, nil
	}

	prediction, err := predict(ctx, classifier, uc.vectorizer, text)
	if err != nil {
		outcome.Status = domain.MemberFailed
		outcome.Reason = err.Error()
		return outcome, nil
	}

	record := &domain.ClassificationRecord{
		UserID:         req.UserID,
		Filename:       name,
		ModelName:      job.ModelName,
		PredictedClass: prediction.category,
		Confidence:     prediction.confidence,
		ArchiveJobID:   job.ID,
		CreatedAt:      uc.now(),
	}
	id, err := uc.records.CreateClassification(ctx, record)
	if err != nil {
		outcome.Status = domain.MemberFailed
		outcome.Reason = fmt.Sprintf("save classification: %v", err)
		return outcome, nil
	}
	uc.observer.ObserveClassification(job.ModelName, prediction.category)
	outcome.ClassificationID = id

	folder := filepath.Join(outputDir, prediction.category.Label(req.Locale))
	if err := copyIntoFolder(src, folder, name); err != nil {
		return outcome, fmt.Errorf("route member %s: %w", member, err)
	}

	outcome.Status = domain.MemberProcessed
	outcome.Category = prediction.category
	return outcome, nil
}

func copyIntoFolder(src, folder, name string) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("create category folder: %w", err)
	}
	dst, err := availableName(folder, name)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open member: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create routed copy: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write routed copy: %w", err)
	}
	return out.Close()
}

// availableName returns a path in folder for name that does not exist yet,
// appending " (2)", " (3)", ... before the extension on collisions.
func availableName(folder, name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; ; i++ {
		p := filepath.Join(folder, candidate)
		_, err := os.Stat(p)
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat routed copy: %w", err)
		}
		candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
	}
}
