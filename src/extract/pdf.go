package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDF extracts text from a PDF by streaming its pages through MuPDF.
// Pages that yield no text (e.g. scanned images) are skipped; pages are
// joined with blank lines.
func PDF(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to read page %d: %w", i+1, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, strings.TrimSpace(text))
		}
	}

	return strings.Join(pages, "\n\n"), nil
}
