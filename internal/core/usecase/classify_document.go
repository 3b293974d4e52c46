package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
	"github.com/kirillkom/doc-classifier/internal/core/ports"
)

const previewLimit = 5000

type DocumentClassificationUseCase struct {
	records    ports.ClassificationStore
	extractor  ports.TextExtractor
	vectorizer ports.Vectorizer
	models     ports.ModelRegistry
	observer   ports.ClassificationObserver

	minTextLength int
	now           func() time.Time
}

func NewDocumentClassificationUseCase(
	records ports.ClassificationStore,
	extractor ports.TextExtractor,
	vectorizer ports.Vectorizer,
	models ports.ModelRegistry,
	minTextLength int,
	observer ports.ClassificationObserver,
) *DocumentClassificationUseCase {
	if minTextLength <= 0 {
		minTextLength = DefaultMinTextLength
	}
	return &DocumentClassificationUseCase{
		records:       records,
		extractor:     extractor,
		vectorizer:    vectorizer,
		models:        models,
		observer:      observerOrNoop(observer),
		minTextLength: minTextLength,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (uc *DocumentClassificationUseCase) ClassifyDocument(
	ctx context.Context,
	req domain.RequestContext,
	file domain.MemberFile,
	modelName string,
) (*domain.DocumentResult, error) {
	if err := requireUser(req, "classify document"); err != nil {
		return nil, err
	}
	if !uc.extractor.Supports(file) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify document", fmt.Errorf("unsupported file type: %q", file.Name))
	}
	classifier, info, err := uc.models.Resolve(modelName, domain.ModelScopeDocument)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractor.Extract(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if err := checkTextLength(text, uc.minTextLength); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "classify document", err)
	}

	prediction, err := predict(ctx, classifier, uc.vectorizer, text)
	if err != nil {
		return nil, err
	}

	record := domain.ClassificationRecord{
		UserID:         req.UserID,
		Filename:       file.Name,
		ModelName:      info.Name,
		PredictedClass: prediction.category,
		Confidence:     prediction.confidence,
		CreatedAt:      uc.now(),
	}
	id, err := uc.records.CreateClassification(ctx, &record)
	if err != nil {
		return nil, fmt.Errorf("save classification: %w", err)
	}
	record.ID = id
	uc.observer.ObserveClassification(info.Name, prediction.category)

	return &domain.DocumentResult{
		Record:     record,
		Label:      prediction.category.Label(req.Locale),
		Preview:    preview(text, previewLimit),
		WordCount:  len(strings.Fields(text)),
		Language:   detectLanguage(text),
		Confidence: prediction.confidence,
	}, nil
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// detectLanguage guesses ru/en from the share of Cyrillic and Latin letters.
func detectLanguage(text string) string {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	total := cyrillic + latin
	switch {
	case total == 0:
		return "unknown"
	case float64(cyrillic)/float64(total) >= 0.6:
		return "ru"
	case float64(latin)/float64(total) >= 0.6:
		return "en"
	default:
		return "unknown"
	}
}
