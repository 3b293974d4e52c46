package usecase

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/infrastructure/archive"
)

func newArchiveUseCase(t *testing.T, jobs *jobStoreFake, records *recordStoreFake, registry registryFake, observer *observerFake) (*ArchiveClassificationUseCase, string) {
	t.Helper()
	scratch := t.TempDir()
	options := ArchiveOptions{ScratchRoot: scratch}
	if observer != nil {
		options.Observer = observer
	}
	uc := NewArchiveClassificationUseCase(
		jobs,
		records,
		archive.NewCodec(0),
		&extractorFake{},
		vectorizerFake{},
		registry,
		options,
	)
	return uc, scratch
}

func assertScratchEmpty(t *testing.T, scratch string) {
	t.Helper()
	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected scratch dir to be removed, found %d entries", len(entries))
	}
}

func TestClassifyArchiveRoutesMembersIntoCategoryFolders(t *testing.T) {
	jobs := newJobStoreFake()
	records := &recordStoreFake{}
	observer := &observerFake{}
	uc, scratch := newArchiveUseCase(t, jobs, records, defaultRegistry(), observer)

	data := buildArchive(t,
		zipMember{name: "a.txt", body: "приказ о назначении на должность"},
		zipMember{name: "nested/deeper/b.txt", body: "приказ об отпуске сотрудника"},
		zipMember{name: "c.txt", body: "письмо в адрес администрации"},
	)

	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1", Login: "admin"}, "batch.zip", data, "")
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	if result.Processed != 3 {
		t.Fatalf("expected 3 processed members, got %d", result.Processed)
	}

	job := jobs.job(result.Job.ID)
	if job.FileCount != 3 || job.Status != domain.ArchiveJobCompleted || job.ModelName != "Logistic Regression" {
		t.Fatalf("unexpected job %+v", job)
	}
	if len(records.records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records.records))
	}
	counts := map[domain.Category]int{}
	for _, r := range records.records {
		if r.ArchiveJobID != job.ID || r.UserID != "u1" {
			t.Fatalf("record not tagged with job/user: %+v", r)
		}
		counts[r.PredictedClass]++
	}
	if counts[domain.CategoryOrder] != 2 || counts[domain.CategoryLetters] != 1 {
		t.Fatalf("unexpected category counts %v", counts)
	}

	entries := archiveEntries(t, result.Archive)
	if len(entries) != 3 {
		t.Fatalf("expected 3 routed files, got %v", entries)
	}
	if entries["Приказ/b.txt"] != "приказ об отпуске сотрудника" {
		t.Fatalf("nested member not routed by base name: %v", entries)
	}
	if _, ok := entries["Письмо/c.txt"]; !ok {
		t.Fatalf("letter not routed: %v", entries)
	}
	if len(observer.classified) != 3 || observer.members[domain.MemberProcessed] != 3 {
		t.Fatalf("unexpected observer state %+v", observer)
	}
	assertScratchEmpty(t, scratch)
}

func TestClassifyArchiveNoEligibleMembers(t *testing.T) {
	jobs := newJobStoreFake()
	records := &recordStoreFake{}
	uc, scratch := newArchiveUseCase(t, jobs, records, defaultRegistry(), nil)

	data := buildArchive(t,
		zipMember{name: "scan1.png", body: "\x89PNG"},
		zipMember{name: "scan2.png", body: "\x89PNG"},
	)

	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "scans.zip", data, "")
	if !domain.IsKind(err, domain.ErrNoEligibleMembers) {
		t.Fatalf("expected ErrNoEligibleMembers, got %v", err)
	}
	if result == nil || result.Archive != nil {
		t.Fatalf("expected result without archive, got %+v", result)
	}
	if result.Count(domain.MemberSkipped) != 2 {
		t.Fatalf("expected 2 skipped outcomes, got %+v", result.Outcomes)
	}
	if len(records.records) != 0 {
		t.Fatalf("expected no records, got %d", len(records.records))
	}
	job := jobs.job(result.Job.ID)
	if job.FileCount != 0 || job.Status != domain.ArchiveJobEmpty {
		t.Fatalf("unexpected job %+v", job)
	}
	assertScratchEmpty(t, scratch)
}

func TestClassifyArchiveReportsPerMemberOutcomes(t *testing.T) {
	jobs := newJobStoreFake()
	records := &recordStoreFake{failFor: map[string]bool{"unsaved.txt": true}}
	uc, _ := newArchiveUseCase(t, jobs, records, defaultRegistry(), nil)

	data := buildArchive(t,
		zipMember{name: "short.txt", body: "коротко"},
		zipMember{name: "broken.pdf", body: "BROKEN"},
		zipMember{name: "unsaved.txt", body: "постановление правительства области"},
		zipMember{name: "ok.txt", body: "постановление о бюджете на год"},
		zipMember{name: "image.jpg", body: "jpeg"},
	)

	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "mixed.zip", data, "")
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}

	byPath := map[string]domain.MemberOutcome{}
	for _, o := range result.Outcomes {
		byPath[o.Path] = o
	}
	if byPath["short.txt"].Status != domain.MemberSkipped {
		t.Fatalf("short text must be skipped: %+v", byPath["short.txt"])
	}
	if byPath["broken.pdf"].Status != domain.MemberFailed || byPath["broken.pdf"].Reason == "" {
		t.Fatalf("extraction failure must be reported: %+v", byPath["broken.pdf"])
	}
	if byPath["unsaved.txt"].Status != domain.MemberFailed {
		t.Fatalf("persistence failure must be reported: %+v", byPath["unsaved.txt"])
	}
	if byPath["image.jpg"].Status != domain.MemberSkipped {
		t.Fatalf("unsupported member must be skipped: %+v", byPath["image.jpg"])
	}
	ok := byPath["ok.txt"]
	if ok.Status != domain.MemberProcessed || ok.Category != domain.CategoryOrdinance || ok.ClassificationID == "" {
		t.Fatalf("unexpected outcome %+v", ok)
	}

	if result.Processed != 1 || jobs.job(result.Job.ID).FileCount != 1 {
		t.Fatalf("expected file count 1, got processed=%d job=%+v", result.Processed, jobs.job(result.Job.ID))
	}
	entries := archiveEntries(t, result.Archive)
	if len(entries) != 1 {
		t.Fatalf("expected only the recorded member in output, got %v", entries)
	}
	if _, ok := entries["Постановление/ok.txt"]; !ok {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestClassifyArchiveSuffixesNameCollisions(t *testing.T) {
	jobs := newJobStoreFake()
	uc, _ := newArchiveUseCase(t, jobs, &recordStoreFake{}, defaultRegistry(), nil)

	data := buildArchive(t,
		zipMember{name: "a/report.txt", body: "приказ номер один от января"},
		zipMember{name: "b/report.txt", body: "приказ номер два от февраля"},
	)

	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1", Locale: domain.LocaleEN}, "dup.zip", data, "")
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	entries := archiveEntries(t, result.Archive)
	if entries["Order/report.txt"] != "приказ номер один от января" {
		t.Fatalf("unexpected entries %v", entries)
	}
	if entries["Order/report (2).txt"] != "приказ номер два от февраля" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestClassifyArchiveUnknownLabelFallsBackToMiscellaneous(t *testing.T) {
	jobs := newJobStoreFake()
	records := &recordStoreFake{}
	uc, _ := newArchiveUseCase(t, jobs, records, defaultRegistry(), nil)

	data := buildArchive(t, zipMember{name: "memo.txt", body: "служебная записка без ключевых слов"})
	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "memo.zip", data, "")
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	if records.records[0].PredictedClass != domain.CategoryMiscellaneous {
		t.Fatalf("expected Miscellaneous, got %q", records.records[0].PredictedClass)
	}
	if _, ok := archiveEntries(t, result.Archive)["Общее/memo.txt"]; !ok {
		t.Fatalf("expected member in Общее folder")
	}
}

func TestClassifyArchiveCorruptArchiveIsJobLevelError(t *testing.T) {
	jobs := newJobStoreFake()
	uc, scratch := newArchiveUseCase(t, jobs, &recordStoreFake{}, defaultRegistry(), nil)

	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "bad.zip", []byte("not a zip"), "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if result != nil {
		t.Fatalf("expected no result, got %+v", result)
	}
	job := jobs.job("job-1")
	if job.Status != domain.ArchiveJobFailed || job.Error == "" {
		t.Fatalf("expected failed job, got %+v", job)
	}
	assertScratchEmpty(t, scratch)
}

func TestClassifyArchiveJobCreationFailureAborts(t *testing.T) {
	jobs := newJobStoreFake()
	jobs.createErr = domain.WrapError(domain.ErrTemporary, "create archive job", context.DeadlineExceeded)
	records := &recordStoreFake{}
	uc, _ := newArchiveUseCase(t, jobs, records, defaultRegistry(), nil)

	data := buildArchive(t, zipMember{name: "a.txt", body: "приказ о назначении на должность"})
	if _, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "a.zip", data, ""); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if len(records.records) != 0 {
		t.Fatalf("expected nothing recorded")
	}
}

func TestClassifyArchiveRejectsUnknownModelAndMissingUser(t *testing.T) {
	uc, _ := newArchiveUseCase(t, newJobStoreFake(), &recordStoreFake{}, defaultRegistry(), nil)
	data := buildArchive(t, zipMember{name: "a.txt", body: "приказ"})

	if _, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "a.zip", data, "SVM"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown model, got %v", err)
	}
	if _, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{}, "a.zip", data, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for missing user, got %v", err)
	}
}

func TestClassifyArchiveNeverExtractsUnsupportedMembers(t *testing.T) {
	uc, _ := newArchiveUseCase(t, newJobStoreFake(), &recordStoreFake{}, defaultRegistry(), nil)
	extractor := uc.extractor.(*extractorFake)

	data := buildArchive(t,
		zipMember{name: "scan.png", body: "приказ о назначении на должность"},
		zipMember{name: "photo.JPG", body: "приказ о назначении на должность"},
		zipMember{name: "order.txt", body: "приказ о назначении на должность"},
	)
	result, err := uc.ClassifyArchive(context.Background(), domain.RequestContext{UserID: "u1"}, "mixed.zip", data, "")
	if err != nil {
		t.Fatalf("ClassifyArchive() error = %v", err)
	}
	if result.Count(domain.MemberSkipped) != 2 || result.Processed != 1 {
		t.Fatalf("unexpected outcomes %+v", result.Outcomes)
	}
	if len(extractor.extracted) != 1 {
		t.Fatalf("expected a single extraction, got %d", len(extractor.extracted))
	}
	got := extractor.extracted[0]
	if got.Name != "order.txt" || got.DeclaredMIME != domain.MIMEText {
		t.Fatalf("unexpected extracted file %q (%s)", got.Name, got.DeclaredMIME)
	}
}

func TestClassifyArchiveCancelledRunStillRecordsFileCount(t *testing.T) {
	jobs := newJobStoreFake()
	jobs.honorContext = true
	records := &recordStoreFake{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry := defaultRegistry()
	calls := 0
	registry.classifier = cancellingClassifier{inner: registry.classifier, after: 1, cancel: cancel, calls: &calls}
	uc, scratch := newArchiveUseCase(t, jobs, records, registry, nil)

	data := buildArchive(t,
		zipMember{name: "a.txt", body: "приказ о назначении на должность"},
		zipMember{name: "b.txt", body: "письмо в адрес администрации"},
		zipMember{name: "c.txt", body: "постановление о бюджете на год"},
	)
	_, err := uc.ClassifyArchive(ctx, domain.RequestContext{UserID: "u1"}, "batch.zip", data, "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(records.records) != 1 || calls != 1 {
		t.Fatalf("expected the run to stop after one member, records=%d predictions=%d", len(records.records), calls)
	}

	job := jobs.job("job-1")
	if job.FileCount != len(records.records) {
		t.Fatalf("file_count %d does not match %d records", job.FileCount, len(records.records))
	}
	if job.Status != domain.ArchiveJobFailed || job.Error == "" {
		t.Fatalf("expected failed job, got %+v", job)
	}
	assertScratchEmpty(t, scratch)
}
