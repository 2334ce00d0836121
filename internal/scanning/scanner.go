package scanning

import (
	"context"
	"fmt"
)

// TextDetector defines the interface for OCR text detection
type TextDetector interface {
	// DetectText returns the raw newline-separated text found in an image or PDF.
	// It returns an empty string when no text is found.
	DetectText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close closes the detector and releases resources
	Close() error
}

// OCRError is a failure reported by the OCR engine itself, as opposed to a
// failure preparing the image
type OCRError struct {
	Engine  string
	Message string
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("%s OCR error: %s", e.Engine, e.Message)
}
