package scanning

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFText wraps a TextDetector and reads digital PDFs directly from their
// embedded text layer. Scanned PDFs and all other uploads go to the wrapped
// detector.
type PDFText struct {
	next TextDetector
}

// NewPDFText creates a PDFText decorating next
func NewPDFText(next TextDetector) *PDFText {
	return &PDFText{next: next}
}

// DetectText returns the PDF text layer when there is one, otherwise the result of the wrapped detector
func (p *PDFText) DetectText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	if normalizeMIME(contentType, imageData) == mimePDF {
		if text := pdfTextLayer(imageData); text != "" {
			slog.Debug("Using embedded PDF text layer", "length", len(text))
			return text, nil
		}
	}
	return p.next.DetectText(ctx, imageData, contentType)
}

// Close closes the wrapped detector
func (p *PDFText) Close() error {
	return p.next.Close()
}

// pdfTextLayer returns the text of every page, one line per text row, or ""
// if the PDF cannot be read
func pdfTextLayer(data []byte) (text string) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			slog.Debug("Unreadable PDF text layer", "panic", r)
			text = ""
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				b.WriteString(line)
				b.WriteString("\n")
			}
		}
	}

	return strings.TrimSpace(b.String())
}
