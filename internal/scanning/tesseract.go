package scanning

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the TextDetector interface using a local Tesseract install
type Tesseract struct {
	tessdataPrefix string
	languages      []string
	newClient      func() *gosseract.Client
}

// NewTesseract creates a new Tesseract TextDetector. An empty tessdataPrefix
// leaves TESSDATA_PREFIX from the environment in effect.
func NewTesseract(tessdataPrefix string, languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{
		tessdataPrefix: tessdataPrefix,
		languages:      languages,
		newClient:      gosseract.NewClient,
	}
}

// DetectText runs OCR with a fresh client per call; gosseract clients are not
// safe for concurrent use
func (t *Tesseract) DetectText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	pngData, err := preparePNG(imageData, contentType)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := t.newClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.tessdataPrefix); err != nil {
			return "", fmt.Errorf("setting tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetImageFromBytes(pngData); err != nil {
		return "", fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", &OCRError{Engine: "tesseract", Message: err.Error()}
	}

	return strings.TrimSpace(text), nil
}

// Close is a no-op; clients are closed after every call
func (t *Tesseract) Close() error {
	return nil
}
