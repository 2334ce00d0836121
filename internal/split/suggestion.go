package split

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/zombor/splitmate/internal/receipt"
)

// Source records which path produced a Suggestion
type Source string

const (
	// SourceRule is the deterministic percentage rule
	SourceRule Source = "rule"
	// SourceModel is a decoded reply from the generative fallback
	SourceModel Source = "model"
	// SourceUnparsed is a fallback reply that could not be decoded
	SourceUnparsed Source = "unparsed"
)

const (
	ruleSummary     = "Split by explicit percent rule in prompt."
	unparsedSummary = "Model response could not be parsed."
)

// Suggestion is a proposed split of a receipt total. When Source is
// SourceUnparsed, Allocation is nil and Raw holds the model's reply.
type Suggestion struct {
	Source     Source                     `json:"source"`
	Allocation map[string]decimal.Decimal `json:"allocation,omitempty"`
	Summary    string                     `json:"summary"`
	Raw        string                     `json:"raw,omitempty"`
}

// HasAllocation reports whether the suggestion carries an allocation
func (s Suggestion) HasAllocation() bool {
	return s.Source != SourceUnparsed
}

// MarshalJSON writes either {allocation, summary} or {raw, summary}, never both
func (s Suggestion) MarshalJSON() ([]byte, error) {
	if s.Source == SourceUnparsed {
		return json.Marshal(struct {
			Source  Source `json:"source"`
			Raw     string `json:"raw"`
			Summary string `json:"summary"`
		}{s.Source, s.Raw, s.Summary})
	}

	allocation := make(map[string]json.Number, len(s.Allocation))
	for name, amount := range s.Allocation {
		if s.Source == SourceRule {
			allocation[name] = receipt.Amount(amount)
		} else {
			allocation[name] = json.Number(amount.String())
		}
	}
	return json.Marshal(struct {
		Source     Source                 `json:"source"`
		Allocation map[string]json.Number `json:"allocation"`
		Summary    string                 `json:"summary"`
	}{s.Source, allocation, s.Summary})
}
