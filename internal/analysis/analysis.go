package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zombor/splitmate/internal/receipt"
	"github.com/zombor/splitmate/internal/split"
)

// ErrNotFound is returned when no analysis exists for an ID
var ErrNotFound = errors.New("analysis not found")

// Analysis is one processed upload: the OCR text, the parsed receipt and the
// suggested split
type Analysis struct {
	ID          string                `json:"id"`
	Filename    string                `json:"filename"`
	ContentType string                `json:"content_type"`
	Instruction string                `json:"instruction"`
	Names       []string              `json:"names"`
	Text        string                `json:"text"`
	Parsed      receipt.ParsedReceipt `json:"parsed"`
	Suggestion  *split.Suggestion     `json:"suggestion"`
	CreatedAt   time.Time             `json:"created_at"`
}

// UpstreamError wraps a failure of the OCR engine or the generative model
type UpstreamError struct {
	Stage string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// ParseNames splits a comma-separated participant list, trimming whitespace
// and dropping empty entries
func ParseNames(s string) []string {
	names := make([]string, 0)
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
