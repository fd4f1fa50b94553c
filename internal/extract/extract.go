// Source document text extraction. Generation prompts are built from
// plain text, so PDF sources are flattened page by page before prompting.

package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Text extracts the prompt text from a source document. kind is the
// file kind recorded with the generation request ("pdf", "txt", "md").
func Text(document []byte, kind string) (string, error) {
	switch strings.ToLower(kind) {
	case "pdf":
		return pdfText(document)
	case "txt", "md", "markdown", "":
		return string(document), nil
	default:
		return "", fmt.Errorf("unsupported source document kind %q", kind)
	}
}

func pdfText(document []byte) (string, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		page, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		b.WriteString(page)
		b.WriteString("\n")
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("PDF contains no extractable text")
	}
	return text, nil
}
