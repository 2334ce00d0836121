package split

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/splitmate/internal/llm"
	"github.com/zombor/splitmate/internal/receipt"
)

// ErrNoGenerator is returned when the percentage rule does not apply and no
// fallback model is configured
var ErrNoGenerator = errors.New("no generator configured for fallback")

// Allocator suggests how to divide a receipt total between participants
type Allocator struct {
	generator llm.Generator
}

// NewAllocator creates an Allocator. generator may be nil, in which case only
// the percentage rule is available.
func NewAllocator(generator llm.Generator) *Allocator {
	return &Allocator{generator: generator}
}

// Suggest tries the explicit percentage rule first and asks the model only when
// it does not apply. An undecodable model reply is not an error; it comes back
// as a SourceUnparsed suggestion. Errors mean the model could not be reached.
func (a *Allocator) Suggest(ctx context.Context, parsed receipt.ParsedReceipt, instruction string, names []string) (*Suggestion, error) {
	if allocation, ok := percentRule(instruction, names, parsed.Total); ok {
		return &Suggestion{
			Source:     SourceRule,
			Allocation: allocation,
			Summary:    ruleSummary,
		}, nil
	}

	if a.generator == nil {
		return nil, ErrNoGenerator
	}

	slog.Debug("No percent rule in instruction, asking model", "participants", len(names))

	raw, err := a.generator.Generate(ctx, buildPrompt(parsed, instruction, names))
	if err != nil {
		return nil, fmt.Errorf("generating split suggestion: %w", err)
	}

	reply, err := decodeReply(raw)
	if err != nil {
		slog.Warn("Could not decode model reply", "error", err, "length", len(raw))
		return &Suggestion{
			Source:  SourceUnparsed,
			Raw:     raw,
			Summary: unparsedSummary,
		}, nil
	}

	return &Suggestion{
		Source:     SourceModel,
		Allocation: reply.Allocation,
		Summary:    reply.Summary,
	}, nil
}
