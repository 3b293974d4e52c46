package domain

import (
	"path"
	"strings"
	"time"
)

// RequestContext carries the operator identity and display preferences of a
// single interaction.
type RequestContext struct {
	UserID string `json:"user_id"`
	Login  string `json:"login,omitempty"`
	Locale Locale `json:"locale,omitempty"`
}

// User maps an operator id to the login shown in analytics.
type User struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

type ClassificationRecord struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Filename       string    `json:"filename"`
	ModelName      string    `json:"model_name"`
	PredictedClass Category  `json:"predicted_class"`
	Confidence     *float64  `json:"confidence,omitempty"`
	ArchiveJobID   string    `json:"archive_job_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ArchiveJobStatus string

const (
	ArchiveJobQueued     ArchiveJobStatus = "queued"
	ArchiveJobProcessing ArchiveJobStatus = "processing"
	ArchiveJobCompleted  ArchiveJobStatus = "completed"
	ArchiveJobEmpty      ArchiveJobStatus = "empty"
	ArchiveJobFailed     ArchiveJobStatus = "failed"
)

type ArchiveJob struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	SourceFilename string           `json:"source_filename"`
	ModelName      string           `json:"model_name"`
	FileCount      int              `json:"file_count"`
	Status         ArchiveJobStatus `json:"status"`
	Locale         Locale           `json:"locale,omitempty"`
	UploadKey      string           `json:"-"`
	OutputKey      string           `json:"-"`
	Error          string           `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type Rating struct {
	ID               string    `json:"id"`
	ClassificationID string    `json:"classification_id"`
	UserID           string    `json:"user_id"`
	Score            int       `json:"score"`
	Comment          string    `json:"comment,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	MinRatingScore = 1
	MaxRatingScore = 5
)

// MemberFile is one document handed to a text extractor. DeclaredMIME is the
// uploader's content type, or the type implied by the extension for archive
// members, which carry none.
type MemberFile struct {
	Name         string
	Content      []byte
	DeclaredMIME string
}

const (
	MIMEText        = "text/plain"
	MIMEPDF         = "application/pdf"
	MIMEDOCX        = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEOctetStream = "application/octet-stream"
)

// MIMETypeByExtension maps a document file name to its content type.
func MIMETypeByExtension(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".txt":
		return MIMEText
	case ".pdf":
		return MIMEPDF
	case ".docx":
		return MIMEDOCX
	default:
		return MIMEOctetStream
	}
}

// FeatureVector is a sparse vector with ascending indices.
type FeatureVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v FeatureVector) Empty() bool {
	return len(v.Indices) == 0
}

// Features is what a classifier receives: the vectorized text and the text
// itself for models that work on raw input.
type Features struct {
	Text   string
	Vector FeatureVector
}

// Prediction is the raw model output. Confidence is nil when the model does
// not produce probabilities.
type Prediction struct {
	Label      string
	Confidence *float64
}

type ModelScope string

const (
	ModelScopeDocument ModelScope = "document"
	ModelScopeArchive  ModelScope = "archive"
)

type ModelInfo struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	HasConfidence bool   `json:"has_confidence"`
}

type DocumentResult struct {
	Record     ClassificationRecord `json:"record"`
	Label      string               `json:"label"`
	Preview    string               `json:"preview"`
	WordCount  int                  `json:"word_count"`
	Language   string               `json:"language"`
	Confidence *float64             `json:"confidence,omitempty"`
}
