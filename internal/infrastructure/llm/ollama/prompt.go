package ollama

import (
	"strings"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const maxPromptRunes = 4000

func buildClassificationPrompt(text string) string {
	snippet := []rune(text)
	if len(snippet) > maxPromptRunes {
		snippet = snippet[:maxPromptRunes]
	}

	names := make([]string, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		names = append(names, string(c))
	}

	return `You classify official documents.
Allowed categories: ` + strings.Join(names, ", ") + `.
Order is an administrative order, Ordinance is a resolution of an authority,
Letters is correspondence, Miscellaneous is anything else.
Return strict JSON object with keys:
category (one of the allowed categories), confidence (number from 0 to 1).
No markdown, no extra keys.

Document:
` + string(snippet)
}
