package extractor

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

type formatExtractor func(file domain.MemberFile) (string, error)

// Extractor dispatches on the file extension to a format specific extractor.
// Files without an extension are dispatched on their declared MIME type.
type Extractor struct {
	formats    map[string]formatExtractor
	mediaTypes map[string]string
}

func NewExtractor() *Extractor {
	return &Extractor{
		formats: map[string]formatExtractor{
			".txt":  extractPlainText,
			".pdf":  extractPDF,
			".docx": extractDOCX,
		},
		mediaTypes: map[string]string{
			domain.MIMEText: ".txt",
			domain.MIMEPDF:  ".pdf",
			domain.MIMEDOCX: ".docx",
		},
	}
}

// Supports reports whether file can be extracted without reading its content.
func (e *Extractor) Supports(file domain.MemberFile) bool {
	_, ok := e.formats[e.format(file)]
	return ok
}

func (e *Extractor) Extract(_ context.Context, file domain.MemberFile) (string, error) {
	format := e.format(file)
	extract, ok := e.formats[format]
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedFormat, "extract text", fmt.Errorf("file %q (%s)", file.Name, file.DeclaredMIME))
	}
	text, err := extract(file)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", fmt.Errorf("%s: %w", file.Name, err))
	}
	return strings.TrimSpace(text), nil
}

// format returns the extension key of file. An explicit extension always
// wins, so a declared type never makes an unsupported extension extractable.
func (e *Extractor) format(file domain.MemberFile) string {
	if ext := extension(file.Name); ext != "" {
		return ext
	}
	mediaType, _, err := mime.ParseMediaType(file.DeclaredMIME)
	if err != nil {
		return ""
	}
	return e.mediaTypes[mediaType]
}

// extension returns the lower-cased extension including the dot.
func extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
