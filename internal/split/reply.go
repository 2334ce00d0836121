package split

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// modelReply is the shape the fallback prompt asks for
type modelReply struct {
	Allocation map[string]decimal.Decimal `json:"allocation"`
	Summary    string                     `json:"summary"`
}

var errNoAllocation = errors.New("reply has no allocation")

// decodeReply extracts the JSON object from a model reply. The text is only
// ever decoded as JSON data.
func decodeReply(text string) (*modelReply, error) {
	text = strings.TrimSpace(text)

	// Remove markdown code blocks if present
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in reply")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in reply")
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &reply); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if reply.Allocation == nil {
		return nil, errNoAllocation
	}

	return &reply, nil
}
