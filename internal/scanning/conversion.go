package scanning

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const mimePDF = "application/pdf"

// ErrUnreadableImage marks uploads that could not be turned into an image for OCR
var ErrUnreadableImage = errors.New("unreadable image")

// normalizeMIME lowercases the content type, drops parameters, and sniffs the
// data when the client sent nothing useful
func normalizeMIME(contentType string, data []byte) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i != -1 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if isHEICFormat(data) {
			return "image/heic"
		}
		mimeType, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	return mimeType
}

// preparePNG turns an upload into PNG bytes for the OCR engines. PDFs are
// rendered from their first page; receipts are single page.
func preparePNG(data []byte, contentType string) ([]byte, error) {
	mimeType := normalizeMIME(contentType, data)

	switch {
	case mimeType == mimePDF:
		pngData, err := renderPDFPage(data)
		if err != nil {
			return nil, fmt.Errorf("%w: converting PDF to image: %w", ErrUnreadableImage, err)
		}
		return pngData, nil
	case mimeType == "image/png" && !isHEICFormat(data):
		return data, nil
	default:
		pngData, err := reencodePNG(data, mimeType)
		if err != nil {
			return nil, fmt.Errorf("%w: converting image to PNG: %w", ErrUnreadableImage, err)
		}
		return pngData, nil
	}
}

func renderPDFPage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

func reencodePNG(imageData []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)

	// Go's image package has no HEIC support (iPhone photos)
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return encodePNG(img)
	}

	img, _, err = image.Decode(bytes.NewReader(imageData))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
