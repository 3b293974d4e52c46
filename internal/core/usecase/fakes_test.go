package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

// jobStoreFake keeps jobs in memory. With honorContext set, updates fail on a
// done context the way a database driver does.
type jobStoreFake struct {
	mu           sync.Mutex
	jobs         map[string]*domain.ArchiveJob
	createErr    error
	seq          int
	honorContext bool
}

func newJobStoreFake() *jobStoreFake {
	return &jobStoreFake{jobs: make(map[string]*domain.ArchiveJob)}
}

func (f *jobStoreFake) CreateArchiveJob(_ context.Context, job *domain.ArchiveJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	if job.ID == "" {
		f.seq++
		job.ID = fmt.Sprintf("job-%d", f.seq)
	}
	copyJob := *job
	f.jobs[job.ID] = &copyJob
	return job.ID, nil
}

func (f *jobStoreFake) GetArchiveJob(_ context.Context, id string) (*domain.ArchiveJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get archive job", errors.New(id))
	}
	copyJob := *job
	return &copyJob, nil
}

func (f *jobStoreFake) UpdateArchiveJobFileCount(ctx context.Context, id string, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.honorContext && ctx.Err() != nil {
		return ctx.Err()
	}
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.FileCount = count
	return nil
}

func (f *jobStoreFake) UpdateArchiveJobStatus(ctx context.Context, id string, status domain.ArchiveJobStatus, outputKey, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.honorContext && ctx.Err() != nil {
		return ctx.Err()
	}
	job, ok := f.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	if outputKey != "" {
		job.OutputKey = outputKey
	}
	job.Error = errMessage
	return nil
}

func (f *jobStoreFake) job(id string) domain.ArchiveJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.jobs[id]
}

type recordStoreFake struct {
	records []domain.ClassificationRecord
	rows    []domain.AnalyticsRow
	failFor map[string]bool
	listErr error
}

func (f *recordStoreFake) CreateClassification(_ context.Context, record *domain.ClassificationRecord) (string, error) {
	if f.failFor[record.Filename] {
		return "", errors.New("db unavailable")
	}
	record.ID = fmt.Sprintf("rec-%d", len(f.records)+1)
	f.records = append(f.records, *record)
	return record.ID, nil
}

func (f *recordStoreFake) GetClassification(_ context.Context, id string) (*domain.ClassificationRecord, error) {
	for _, r := range f.records {
		if r.ID == id {
			copyRecord := r
			return &copyRecord, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get classification", errors.New(id))
}

func (f *recordStoreFake) ListAllClassifications(context.Context) ([]domain.AnalyticsRow, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.AnalyticsRow, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

// extractorFake treats every supported file as UTF-8 text and remembers what
// it was asked to extract. Content equal to "BROKEN" fails extraction.
type extractorFake struct {
	extracted []domain.MemberFile
}

func (*extractorFake) Supports(file domain.MemberFile) bool {
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".txt", ".pdf", ".docx":
		return true
	default:
		return false
	}
}

func (f *extractorFake) Extract(_ context.Context, file domain.MemberFile) (string, error) {
	f.extracted = append(f.extracted, file)
	if string(file.Content) == "BROKEN" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", errors.New("corrupt document"))
	}
	return strings.TrimSpace(string(file.Content)), nil
}

type vectorizerFake struct{}

func (vectorizerFake) Vectorize(text string) domain.FeatureVector {
	return domain.FeatureVector{Indices: []uint32{uint32(len(text))}, Values: []float32{1}}
}

// keywordClassifier labels text by the first keyword it contains.
type keywordClassifier struct {
	keywords   []string
	labels     []string
	confidence *float64
	err        error
}

func (c keywordClassifier) Predict(_ context.Context, features domain.Features) (domain.Prediction, error) {
	if c.err != nil {
		return domain.Prediction{}, c.err
	}
	for i, kw := range c.keywords {
		if strings.Contains(features.Text, kw) {
			return domain.Prediction{Label: c.labels[i], Confidence: c.confidence}, nil
		}
	}
	return domain.Prediction{Label: "unknown", Confidence: c.confidence}, nil
}

// cancellingClassifier cancels the run after answering `after` predictions.
type cancellingClassifier struct {
	inner  ports.Classifier
	after  int
	cancel context.CancelFunc
	calls  *int
}

func (c cancellingClassifier) Predict(ctx context.Context, features domain.Features) (domain.Prediction, error) {
	prediction, err := c.inner.Predict(ctx, features)
	*c.calls++
	if *c.calls >= c.after {
		c.cancel()
	}
	return prediction, err
}

type registryFake struct {
	classifier ports.Classifier
	info       domain.ModelInfo
}

func (r registryFake) Resolve(name string, _ domain.ModelScope) (ports.Classifier, domain.ModelInfo, error) {
	if name != "" && name != r.info.Name {
		return nil, domain.ModelInfo{}, domain.WrapError(domain.ErrInvalidInput, "resolve model", errors.New(name))
	}
	return r.classifier, r.info, nil
}

func (r registryFake) Models(domain.ModelScope) []domain.ModelInfo {
	return []domain.ModelInfo{r.info}
}

type observerFake struct {
	classified []domain.Category
	members    map[domain.MemberStatus]int
}

func (o *observerFake) ObserveClassification(_ string, category domain.Category) {
	o.classified = append(o.classified, category)
}

func (o *observerFake) ObserveArchiveMember(status domain.MemberStatus) {
	if o.members == nil {
		o.members = make(map[domain.MemberStatus]int)
	}
	o.members[status]++
}

// defaultRegistry recognises orders, ordinances and letters by Russian
// keywords; the order model answers with cluster ids like the clustering
// model does.
func defaultRegistry() registryFake {
	return registryFake{
		classifier: keywordClassifier{
			keywords: []string{"приказ", "постановление", "письмо"},
			labels:   []string{"0", "Ordinance", "Письмо"},
		},
		info: domain.ModelInfo{Name: "Logistic Regression", Kind: "linear"},
	}
}

type zipMember struct {
	name string
	body string
}

func buildArchive(t *testing.T, members ...zipMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatalf("create %s: %v", m.name, err)
		}
		if _, err := io.WriteString(w, m.body); err != nil {
			t.Fatalf("write %s: %v", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close archive: %v", err)
	}
	return buf.Bytes()
}

// archiveEntries lists entry names and bodies of a produced archive.
func archiveEntries(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open produced archive: %v", err)
	}
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = string(raw)
	}
	return out
}
