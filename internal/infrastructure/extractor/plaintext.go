package extractor

import (
	"bytes"
	"errors"
	"unicode/utf8"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractPlainText(file domain.MemberFile) (string, error) {
	raw := bytes.TrimPrefix(file.Content, utf8BOM)
	if !utf8.Valid(raw) {
		return "", errors.New("text file is not valid utf-8")
	}
	return string(raw), nil
}
