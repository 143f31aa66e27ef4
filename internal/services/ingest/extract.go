// File: internal/services/ingest/extract.go
package ingest

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}

// PDFExtractor reads every page of a PDF with MuPDF.
type PDFExtractor struct{}

func (PDFExtractor) Extract(data []byte) (string, error) {
	pdf, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer pdf.Close()

	pages := make([]string, 0, pdf.NumPage())
	for i := 0; i < pdf.NumPage(); i++ {
		text, err := pdf.Text(i)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return strings.Join(pages, "\n\n"), nil
}
