package extractor

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/kirillkom/doc-classifier/internal/core/domain"
)

const docxBodyPart = "word/document.xml"

// maxBodyPartBytes bounds the decompressed main document part; the outer
// archive budget does not apply inside a .docx container.
const maxBodyPartBytes int64 = 32 << 20

func extractDOCX(file domain.MemberFile) (string, error) {
	return readDOCX(file.Content, maxBodyPartBytes)
}

func readDOCX(content []byte, limit int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open docx container: %w", err)
	}

	for _, f := range zr.File {
		if f.Name != docxBodyPart {
			continue
		}
		if f.UncompressedSize64 > uint64(limit) {
			return "", fmt.Errorf("%s is larger than %d bytes", docxBodyPart, limit)
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
		}
		defer rc.Close()

		body := &io.LimitedReader{R: rc, N: limit + 1}
		text, err := parseWordprocessingML(body)
		if body.N <= 0 {
			return "", fmt.Errorf("%s is larger than %d bytes", docxBodyPart, limit)
		}
		return text, err
	}
	return "", errors.New("docx has no main document part")
}

// parseWordprocessingML collects run text, keeping paragraphs on separate
// lines.
func parseWordprocessingML(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var b strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", docxBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
