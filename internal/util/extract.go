package util

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// minExtractedLength guards against scanned-image PDFs that yield a handful
// of stray characters instead of usable text.
const minExtractedLength = 100

// ExtractPDFText pulls the text layer out of a PDF. The result feeds the
// structuring chain, so an unreadably short extraction is an error rather
// than an empty success.
func ExtractPDFText(path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var full strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("page %d: failed to extract text: %w", n+1, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			full.WriteString(text)
			full.WriteString("\n\n")
		}
	}

	result := strings.TrimSpace(full.String())
	if len(result) == 0 {
		return "", fmt.Errorf("no text extracted from PDF (document may be empty or image-only)")
	}
	if len(result) < minExtractedLength {
		return "", fmt.Errorf("extracted text too short for meaningful evaluation")
	}
	return result, nil
}
